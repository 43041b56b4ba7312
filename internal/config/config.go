// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	hapi "github.com/blackducksoftware/operator-e2e/api/harness"
	"github.com/blackducksoftware/operator-e2e/internal/resource"
	"github.com/blackducksoftware/operator-e2e/internal/util"
)

// Environment variables overwriting values of the config file.
const (
	EnvToolPath    = "E2E_TOOL_PATH"
	EnvKubeconfig  = "E2E_KUBECONFIG"
	EnvKubeContext = "E2E_KUBECONTEXT"
)

const (
	DefaultToolPath                = "synopsysctl"
	DefaultCommandAttempts         = 3
	DefaultCommandDelay            = 5 * time.Second
	DefaultPodsRunningAttempts     = 60
	DefaultPodsRunningDelay        = 5 * time.Second
	DefaultPodsDeletedAttempts     = 30
	DefaultPodsDeletedDelay        = 5 * time.Second
	DefaultCRDAttempts             = 10
	DefaultCRDDelay                = 4 * time.Second
	DefaultAlertName               = "alt"
	DefaultBlackDuckName           = "bd"
	DefaultOpsSightName            = "ops"
	DefaultKindClusterName         = "operator-e2e"
	DefaultKindClusterWaitForReady = 2 * time.Minute
)

// DefaultIsolationNamespaces are the namespaces of the two operators checked for isolation.
var DefaultIsolationNamespaces = []string{"test-space1", "test-space2"}

// LoadConfig reads the harness configuration from file, fills in defaults, applies environment overrides and validates it.
// An empty file name loads the defaults only.
func LoadConfig(file string) (*hapi.Config, error) {
	config := &hapi.Config{}
	if file != "" {
		var err error
		if config, err = util.ReadAndUnmarshall[hapi.Config](file); err != nil {
			return nil, err
		}
	}
	fillDefaultValues(config)
	applyEnvOverrides(config)
	if err := validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// ToRetryPolicy converts a filled in policy of the configuration.
func ToRetryPolicy(p *hapi.RetryPolicy) util.RetryPolicy {
	return util.RetryPolicy{MaxAttempts: *p.MaxAttempts, Delay: p.Delay.Duration}
}

// AdapterPolicies returns the wait policies of the configuration.
func AdapterPolicies(c *hapi.Config) resource.Policies {
	return resource.Policies{
		PodsRunning: ToRetryPolicy(c.Policies.PodsRunning),
		PodsDeleted: ToRetryPolicy(c.Policies.PodsDeleted),
		CRD:         ToRetryPolicy(c.Policies.CRD),
	}
}

func validate(c *hapi.Config) error {
	v := new(util.Validator)
	v.MustNotBeEmpty("toolPath", c.ToolPath)
	v.MustNotBeEmpty("operatorNamespace", c.OperatorNamespace)
	validatePolicy(v, "policies.command", c.Policies.Command)
	validatePolicy(v, "policies.podsRunning", c.Policies.PodsRunning)
	validatePolicy(v, "policies.podsDeleted", c.Policies.PodsDeleted)
	validatePolicy(v, "policies.crd", c.Policies.CRD)
	v.MustNotBeEmpty("instances.alert", c.Instances.Alert)
	v.MustNotBeEmpty("instances.blackDuck", c.Instances.BlackDuck)
	v.MustNotBeEmpty("instances.opsSight", c.Instances.OpsSight)
	v.MustHaveLength("instances.isolationNamespaces", c.Instances.IsolationNamespaces, 2)
	if c.BlackDuck != nil {
		v.MustNotBeEmpty("blackDuck.adminPassword", c.BlackDuck.AdminPassword)
		v.MustNotBeEmpty("blackDuck.postgresPassword", c.BlackDuck.PostgresPassword)
		v.MustNotBeEmpty("blackDuck.userPassword", c.BlackDuck.UserPassword)
	}
	v.MustNotBeNegativeDuration("kind.waitForReady", *c.Kind.WaitForReady)
	return v.Error
}

func validatePolicy(v *util.Validator, key string, p *hapi.RetryPolicy) {
	v.MustBePositive(key+".maxAttempts", *p.MaxAttempts)
	v.MustNotBeNegativeDuration(key+".delay", *p.Delay)
}

func fillDefaultValues(c *hapi.Config) {
	if c.ToolPath == "" {
		c.ToolPath = DefaultToolPath
	}
	if c.OperatorNamespace == "" {
		c.OperatorNamespace = resource.DefaultOperatorNamespace
	}
	if c.Policies == nil {
		c.Policies = &hapi.Policies{}
	}
	c.Policies.Command = fillDefaultPolicy(c.Policies.Command, DefaultCommandAttempts, DefaultCommandDelay)
	c.Policies.PodsRunning = fillDefaultPolicy(c.Policies.PodsRunning, DefaultPodsRunningAttempts, DefaultPodsRunningDelay)
	c.Policies.PodsDeleted = fillDefaultPolicy(c.Policies.PodsDeleted, DefaultPodsDeletedAttempts, DefaultPodsDeletedDelay)
	c.Policies.CRD = fillDefaultPolicy(c.Policies.CRD, DefaultCRDAttempts, DefaultCRDDelay)
	if c.Instances == nil {
		c.Instances = &hapi.Instances{}
	}
	if c.Instances.Alert == "" {
		c.Instances.Alert = DefaultAlertName
	}
	if c.Instances.BlackDuck == "" {
		c.Instances.BlackDuck = DefaultBlackDuckName
	}
	if c.Instances.OpsSight == "" {
		c.Instances.OpsSight = DefaultOpsSightName
	}
	if len(c.Instances.IsolationNamespaces) == 0 {
		c.Instances.IsolationNamespaces = append([]string(nil), DefaultIsolationNamespaces...)
	}
	if c.Kind == nil {
		c.Kind = &hapi.KindCluster{}
	}
	if c.Kind.Name == "" {
		c.Kind.Name = DefaultKindClusterName
	}
	if c.Kind.WaitForReady == nil {
		c.Kind.WaitForReady = &metav1.Duration{Duration: DefaultKindClusterWaitForReady}
	}
}

func fillDefaultPolicy(p *hapi.RetryPolicy, attempts int, delay time.Duration) *hapi.RetryPolicy {
	if p == nil {
		p = &hapi.RetryPolicy{}
	}
	if p.MaxAttempts == nil {
		p.MaxAttempts = ptr.To(attempts)
	}
	if p.Delay == nil {
		p.Delay = &metav1.Duration{Duration: delay}
	}
	return p
}

func applyEnvOverrides(c *hapi.Config) {
	if v, ok := util.LookupEnv(EnvToolPath); ok {
		c.ToolPath = v
	}
	if v, ok := util.LookupEnv(EnvKubeconfig); ok {
		c.Kubeconfig = v
	}
	if v, ok := util.LookupEnv(EnvKubeContext); ok {
		c.KubeContext = v
	}
}
