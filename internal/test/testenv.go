// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package test

import (
	"fmt"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/envtest"
)

// ControllerTestEnv is a convenience interface to be used by tests to access controller-runtime testEnv.
type ControllerTestEnv interface {
	// GetClient provides access to the kubernetes client.Client to access the Kube ApiServer.
	GetClient() client.Client
	// GetConfig provides access to *rest.Config.
	GetConfig() *rest.Config
	// Delete stops the test environment.
	Delete() error
}

type controllerTestEnv struct {
	client     client.Client
	restConfig *rest.Config
	testEnv    *envtest.Environment
}

// CreateControllerTestEnv starts a kube-apiserver and etcd with the given CRDs installed.
func CreateControllerTestEnv(crds ...*apiextensionsv1.CustomResourceDefinition) (ControllerTestEnv, error) {
	testEnv := &envtest.Environment{
		CRDs:                  crds,
		ErrorIfCRDPathMissing: false,
		Scheme:                Scheme,
	}
	cfg, err := testEnv.Start()
	if err != nil {
		return nil, fmt.Errorf("failed to start test environment: %w", err)
	}
	c, err := createClient("envtest", cfg, Scheme)
	if err != nil {
		_ = testEnv.Stop()
		return nil, err
	}
	return &controllerTestEnv{
		client:     c,
		restConfig: cfg,
		testEnv:    testEnv,
	}, nil
}

func (te *controllerTestEnv) GetClient() client.Client {
	return te.client
}

func (te *controllerTestEnv) GetConfig() *rest.Config {
	return te.restConfig
}

func (te *controllerTestEnv) Delete() error {
	return te.testEnv.Stop()
}
