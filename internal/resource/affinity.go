// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"slices"

	corev1 "k8s.io/api/core/v1"
)

// Affinity types understood by the node affinity file of the control CLI.
const (
	AffinityHard = "Hard"
	AffinitySoft = "Soft"
)

// NodeAffinity is one entry of the node affinity file passed with --node-affinity-file-path.
// The file maps pod names to their node affinities.
type NodeAffinity struct {
	AffinityType string   `json:"affinityType"`
	Key          string   `json:"key"`
	Op           string   `json:"op"`
	Values       []string `json:"values"`
}

// SatisfiedBy checks if affinity carries n as a match expression. Hard affinities are looked up in the required
// node selector terms, soft ones in the preferred terms.
func (n NodeAffinity) SatisfiedBy(affinity *corev1.NodeAffinity) bool {
	if affinity == nil {
		return false
	}
	var terms []corev1.NodeSelectorTerm
	switch n.AffinityType {
	case AffinityHard:
		if affinity.RequiredDuringSchedulingIgnoredDuringExecution != nil {
			terms = affinity.RequiredDuringSchedulingIgnoredDuringExecution.NodeSelectorTerms
		}
	case AffinitySoft:
		for _, preferred := range affinity.PreferredDuringSchedulingIgnoredDuringExecution {
			terms = append(terms, preferred.Preference)
		}
	}
	for _, term := range terms {
		for _, expr := range term.MatchExpressions {
			if expr.Key == n.Key && string(expr.Operator) == n.Op && slices.Equal(expr.Values, n.Values) {
				return true
			}
		}
	}
	return false
}

// ToNodeAffinity converts affinities into the node affinity of a pod spec, one selector term per affinity.
func ToNodeAffinity(affinities []NodeAffinity) *corev1.NodeAffinity {
	if len(affinities) == 0 {
		return nil
	}
	nodeAffinity := &corev1.NodeAffinity{}
	for _, a := range affinities {
		term := corev1.NodeSelectorTerm{
			MatchExpressions: []corev1.NodeSelectorRequirement{{Key: a.Key, Operator: corev1.NodeSelectorOperator(a.Op), Values: a.Values}},
		}
		switch a.AffinityType {
		case AffinityHard:
			if nodeAffinity.RequiredDuringSchedulingIgnoredDuringExecution == nil {
				nodeAffinity.RequiredDuringSchedulingIgnoredDuringExecution = &corev1.NodeSelector{}
			}
			required := nodeAffinity.RequiredDuringSchedulingIgnoredDuringExecution
			required.NodeSelectorTerms = append(required.NodeSelectorTerms, term)
		case AffinitySoft:
			nodeAffinity.PreferredDuringSchedulingIgnoredDuringExecution = append(nodeAffinity.PreferredDuringSchedulingIgnoredDuringExecution,
				corev1.PreferredSchedulingTerm{Weight: 1, Preference: term})
		}
	}
	return nodeAffinity
}
