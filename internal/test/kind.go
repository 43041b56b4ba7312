// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package test

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/apiutil"
	kind "sigs.k8s.io/kind/pkg/cluster"
)

const (
	kindConfigDirPrefix = "kind-"
	kubeConfigFileName  = "kubeconfig"
	kindLogVerbosity    = 1
)

// KindCluster is a kind cluster a test suite runs against.
type KindCluster interface {
	// GetRestConfig returns the *rest.Config of the cluster.
	GetRestConfig() *rest.Config
	// GetClient returns a client.Client for the cluster.
	GetClient() client.Client
	// KubeConfigPath returns the path of a kubeconfig file for the cluster, to be handed to other tools.
	KubeConfigPath() string
	// Delete deletes the cluster unless it is retained or was reused.
	Delete() error
}

// KindConfig configures a kind cluster.
type KindConfig struct {
	Name         string
	NodeImage    string
	WaitForReady time.Duration
	// Retain keeps the cluster on Delete.
	Retain bool
	// Scheme of the client. If nil the client-go scheme is used.
	Scheme *runtime.Scheme
	// LogWriter receives the output of kind. If nil it is discarded.
	LogWriter io.Writer
}

type kindCluster struct {
	provider       *kind.Provider
	config         KindConfig
	reused         bool
	restConfig     *rest.Config
	client         client.Client
	kubeConfigPath string
}

// CreateKindCluster creates a kind cluster or reuses an existing one with the same name.
func CreateKindCluster(config KindConfig) (KindCluster, error) {
	fillDefaultKindConfigValues(&config)
	provider := kind.NewProvider(kind.ProviderWithLogger(NewKindLogger(config.LogWriter, kindLogVerbosity)))
	existing, err := provider.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list kind clusters: %w", err)
	}
	reused := slices.Contains(existing, config.Name)
	if !reused {
		if err = doCreateCluster(config, provider); err != nil {
			return nil, err
		}
	}
	kubeConfig, err := provider.KubeConfig(config.Name, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get kubeconfig for kind cluster %s: %w", config.Name, err)
	}
	kubeConfigPath, err := writeKubeConfig([]byte(kubeConfig))
	if err != nil {
		return nil, err
	}
	restConfig, err := createRestConfig(config.Name, []byte(kubeConfig))
	if err != nil {
		return nil, err
	}
	c, err := createClient(config.Name, restConfig, config.Scheme)
	if err != nil {
		return nil, err
	}
	return &kindCluster{
		provider:       provider,
		config:         config,
		reused:         reused,
		restConfig:     restConfig,
		client:         c,
		kubeConfigPath: kubeConfigPath,
	}, nil
}

func doCreateCluster(config KindConfig, provider *kind.Provider) error {
	err := provider.Create(config.Name,
		kind.CreateWithNodeImage(config.NodeImage),
		kind.CreateWithRetain(false),
		kind.CreateWithWaitForReady(config.WaitForReady),
		kind.CreateWithDisplayUsage(false),
		kind.CreateWithDisplaySalutation(false),
	)
	if err != nil {
		return fmt.Errorf("failed to create kind cluster %s: %w", config.Name, err)
	}
	return nil
}

func writeKubeConfig(kubeConfig []byte) (string, error) {
	dir, err := os.MkdirTemp("", kindConfigDirPrefix)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, kubeConfigFileName)
	if err = os.WriteFile(path, kubeConfig, 0o600); err != nil {
		return "", fmt.Errorf("failed to store the kubeconfig file at %s: %w", path, err)
	}
	return path, nil
}

func createRestConfig(clusterName string, kubeConfig []byte) (*rest.Config, error) {
	clientConfig, err := clientcmd.NewClientConfigFromBytes(kubeConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create config from kubeconfig of kind cluster %s: %w", clusterName, err)
	}
	return clientConfig.ClientConfig()
}

func createClient(clusterName string, restConfig *rest.Config, scheme *runtime.Scheme) (client.Client, error) {
	httpClient, err := rest.HTTPClientFor(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client for kind cluster %s: %w", clusterName, err)
	}
	mapper, err := apiutil.NewDynamicRESTMapper(restConfig, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic REST mapper for kind cluster %s: %w", clusterName, err)
	}
	return client.New(restConfig, client.Options{HTTPClient: httpClient, Mapper: mapper, Scheme: scheme})
}

func (kc *kindCluster) GetRestConfig() *rest.Config {
	return kc.restConfig
}

func (kc *kindCluster) GetClient() client.Client {
	return kc.client
}

func (kc *kindCluster) KubeConfigPath() string {
	return kc.kubeConfigPath
}

func (kc *kindCluster) Delete() error {
	defer func() {
		_ = os.RemoveAll(filepath.Dir(kc.kubeConfigPath))
	}()
	if kc.config.Retain || kc.reused {
		return nil
	}
	if err := kc.provider.Delete(kc.config.Name, ""); err != nil {
		return fmt.Errorf("failed to delete kind cluster %s: %w", kc.config.Name, err)
	}
	return nil
}

func fillDefaultKindConfigValues(config *KindConfig) {
	if strings.TrimSpace(config.Name) == "" {
		config.Name = DefaultKindClusterName
	}
	if strings.TrimSpace(config.NodeImage) == "" {
		config.NodeImage = DefaultKindNodeImage
	}
	if config.Scheme == nil {
		config.Scheme = Scheme
	}
	if config.LogWriter == nil {
		config.LogWriter = io.Discard
	}
}
