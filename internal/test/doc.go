// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

/*
Package test contains test utilities.

Unit tests simulate the cluster and the control CLI:

	// a fake client knowing the custom kinds
	c := test.NewFakeClientBuilder(resource.AlertKind.GroupVersionKind()).Build()

	// a fake executor answering every command line with handler
	fexec := test.NewHandlerExec(func(cmd string, args ...string) ([]byte, error) { ... })

Objects are generated with GeneratePods, GeneratePodsForSelector, GenerateCRD and GenerateCustomResource.

Tests built with the envtest tag run against a local kube-apiserver:

	testEnv, err := test.CreateControllerTestEnv(test.GenerateCRD(gvk))
	defer testEnv.Delete()

The e2e suite runs against a kind cluster when no kubeconfig is given:

	kindCluster, err := test.CreateKindCluster(test.KindConfig{Name: "operator-e2e"})
	defer kindCluster.Delete()
*/
package test
