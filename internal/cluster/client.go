// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"fmt"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/apiutil"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

var logger = log.Log.WithName("cluster")

// Scheme knows the core types and CustomResourceDefinitions.
var Scheme = runtime.NewScheme()

func init() {
	localSchemeBuilder := runtime.NewSchemeBuilder(
		clientgoscheme.AddToScheme,
		apiextensionsv1.AddToScheme,
	)
	utilruntime.Must(localSchemeBuilder.AddToScheme(Scheme))
}

// LoadRestConfig builds a *rest.Config from the kubeconfig at kubeconfigPath. An empty path falls back to the
// default loading rules ($KUBECONFIG, then ~/.kube/config). An empty kubeContext uses the current context.
func LoadRestConfig(kubeconfigPath, kubeContext string) (*rest.Config, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		loadingRules.ExplicitPath = kubeconfigPath
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: kubeContext}
	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig %q: %w", kubeconfigPath, err)
	}
	return restConfig, nil
}

// NewClientForConfig creates a client.Client which discovers custom resource kinds lazily, so kinds
// registered after the client was created can still be queried.
func NewClientForConfig(restConfig *rest.Config) (client.Client, error) {
	httpClient, err := rest.HTTPClientFor(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}
	mapper, err := apiutil.NewDynamicRESTMapper(restConfig, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic REST mapper: %w", err)
	}
	return client.New(restConfig, client.Options{
		HTTPClient: httpClient,
		Scheme:     Scheme,
		Mapper:     mapper,
	})
}

// NewClient creates a client.Client for the cluster described by the kubeconfig at kubeconfigPath.
func NewClient(kubeconfigPath, kubeContext string) (client.Client, error) {
	restConfig, err := LoadRestConfig(kubeconfigPath, kubeContext)
	if err != nil {
		return nil, err
	}
	logger.V(4).Info("Creating client", "host", restConfig.Host)
	return NewClientForConfig(restConfig)
}
