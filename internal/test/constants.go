// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package test

// DefaultImage is the image of generated pods
const DefaultImage = "registry.k8s.io/pause:3.10"

// Constants for kind clusters
const (
	DefaultKindNodeImage   = "kindest/node:v1.33.1"
	DefaultKindClusterName = "operator-e2e"
)
