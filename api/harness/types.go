// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package harness

import metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

// Config provides typed access to the harness configuration
type Config struct {
	// ToolPath is the path to the control CLI executable. It can be overwritten with E2E_TOOL_PATH.
	ToolPath string `json:"toolPath"`
	// Kubeconfig is the path to the kubeconfig of the target cluster. It can be overwritten with E2E_KUBECONFIG.
	// If empty the default loading rules are used.
	Kubeconfig string `json:"kubeconfig,omitempty"`
	// KubeContext selects a context from the kubeconfig. It can be overwritten with E2E_KUBECONTEXT.
	KubeContext string `json:"kubeContext,omitempty"`
	// OperatorImage overrides the image of the operator on deploy.
	OperatorImage string `json:"operatorImage,omitempty"`
	// OperatorNamespace is the namespace of the cluster scoped operator.
	OperatorNamespace string `json:"operatorNamespace,omitempty"`
	// Policies are the retry policies of commands and waits.
	Policies *Policies `json:"policies,omitempty"`
	// Instances names the instances created by the scenarios.
	Instances *Instances `json:"instances,omitempty"`
	// BlackDuck carries the credentials required to create a blackduck instance.
	BlackDuck *BlackDuckCredentials `json:"blackDuck,omitempty"`
	// Kind configures the throwaway cluster used when no kubeconfig is given.
	Kind *KindCluster `json:"kind,omitempty"`
}

// Policies captures the retry policy of every command and wait of the harness
type Policies struct {
	Command     *RetryPolicy `json:"command,omitempty"`
	PodsRunning *RetryPolicy `json:"podsRunning,omitempty"`
	PodsDeleted *RetryPolicy `json:"podsDeleted,omitempty"`
	CRD         *RetryPolicy `json:"crd,omitempty"`
}

// RetryPolicy is a bounded fixed delay retry. The first attempt never waits.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the first one.
	MaxAttempts *int `json:"maxAttempts,omitempty"`
	// Delay is the time waited between two attempts.
	Delay *metav1.Duration `json:"delay,omitempty"`
}

// Instances captures the names of the managed instances and of the namespaces used by the scenarios.
type Instances struct {
	Alert     string `json:"alert,omitempty"`
	BlackDuck string `json:"blackDuck,omitempty"`
	OpsSight  string `json:"opsSight,omitempty"`
	// IsolationNamespaces are the two namespaces used to check that operators do not interfere.
	IsolationNamespaces []string `json:"isolationNamespaces,omitempty"`
}

// BlackDuckCredentials are the passwords passed on creation of a blackduck instance.
type BlackDuckCredentials struct {
	AdminPassword    string `json:"adminPassword"`
	PostgresPassword string `json:"postgresPassword"`
	UserPassword     string `json:"userPassword"`
}

// KindCluster configures a kind cluster.
type KindCluster struct {
	// Name of the cluster.
	Name string `json:"name,omitempty"`
	// NodeImage is the node image. If empty the kind default is used.
	NodeImage string `json:"nodeImage,omitempty"`
	// WaitForReady is how long to wait for the control plane.
	WaitForReady *metav1.Duration `json:"waitForReady,omitempty"`
	// Retain keeps the cluster after the suite.
	Retain bool `json:"retain,omitempty"`
}
