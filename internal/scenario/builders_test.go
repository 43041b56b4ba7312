// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package scenario_test

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	hapi "github.com/blackducksoftware/operator-e2e/api/harness"
	"github.com/blackducksoftware/operator-e2e/internal/config"
	e2eerrors "github.com/blackducksoftware/operator-e2e/internal/errors"
	"github.com/blackducksoftware/operator-e2e/internal/harness"
	"github.com/blackducksoftware/operator-e2e/internal/resource"
	"github.com/blackducksoftware/operator-e2e/internal/scenario"
	testutil "github.com/blackducksoftware/operator-e2e/internal/test"
	"github.com/blackducksoftware/operator-e2e/internal/util"
)

const operatorImage = "docker.io/blackducksoftware/synopsys-operator:2019.6.0"

var _ = Describe("Scenarios against a simulated cluster", func() {
	var (
		ctx    context.Context
		sim    *simulatedCluster
		fexec  *testutil.HandlerExec
		env    *harness.Env
		sleeps *atomic.Int32
	)

	BeforeEach(func() {
		ctx = context.Background()
		sleeps = &atomic.Int32{}
		DeferCleanup(testutil.WithVar(&util.SleepFn, func(ctx context.Context, _ time.Duration) error {
			sleeps.Add(1)
			return ctx.Err()
		}))
		cfg, err := config.LoadConfig("")
		Expect(err).ToNot(HaveOccurred())
		cfg.ToolPath = config.DefaultToolPath
		cfg.OperatorImage = operatorImage
		cfg.BlackDuck = &hapi.BlackDuckCredentials{AdminPassword: "a", PostgresPassword: "p", UserPassword: "u"}
		sim = newSimulatedCluster()
		fexec = testutil.NewHandlerExec(sim.handle)
		env = harness.NewEnv(cfg, sim.client, fexec, GinkgoLogr)
	})

	expectClusterToBeClean := func() {
		crds, err := sim.crdNames(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(crds).To(BeEmpty())
		namespaces, err := sim.namespaceNames(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(namespaces).To(BeEmpty())
		for _, kind := range resource.ManagedKinds() {
			exists, err := env.Adapter(kind).CRDExists(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(exists).To(BeFalse())
		}
	}

	Describe("Lifecycle", func() {
		It("should take every managed kind through its lifecycle and leave nothing behind", func() {
			Expect(scenario.Lifecycle(env, resource.ManagedKinds()...).Run(ctx, GinkgoLogr)).To(Succeed())
			Expect(fexec.Calls()).To(Equal([]string{
				"deploy -i " + operatorImage + " --cluster-scoped --enable-alert --enable-blackduck --enable-opssight",
				"create alert alt --persistent-storage=false",
				"stop alert alt",
				"start alert alt",
				"get alerts -n alt",
				"describe alert alt",
				"update alert alt",
				"delete alert alt",
				"create blackduck bd --admin-password a --postgres-password p --user-password u",
				"stop blackduck bd",
				"start blackduck bd",
				"get blackducks -n bd",
				"describe blackduck bd",
				"update blackduck bd",
				"delete blackduck bd",
				"create opssight ops",
				"stop opssight ops",
				"start opssight ops",
				"get opssights -n ops",
				"describe opssight ops",
				"update opssight ops",
				"delete opssight ops",
				"destroy",
			}))
			Expect(sleeps.Load()).To(BeZero(), "a cluster converging at once should never be waited for")
			expectClusterToBeClean()
		})

		It("should skip the remaining steps of an instance that cannot be started", func() {
			sim.failOn("start opssight")

			err := scenario.Lifecycle(env, resource.OpsSightKind).Run(ctx, GinkgoLogr)
			Expect(e2eerrors.IsCommandExecution(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("start-opssight-ops"))
			Expect(fexec.CallCount("stop opssight")).To(Equal(1))
			Expect(fexec.CallCount("update opssight")).To(BeZero())
			expectClusterToBeClean()
		})

		It("should run the teardown after a failed create and report the command failure", func() {
			sim.failOn("create blackduck")

			err := scenario.Lifecycle(env, resource.ManagedKinds()...).Run(ctx, GinkgoLogr)
			Expect(e2eerrors.IsCommandExecution(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("simulated failure"))
			Expect(fexec.CallCount("create blackduck")).To(Equal(config.DefaultCommandAttempts))
			Expect(fexec.CallCount("create opssight")).To(BeZero(), "steps after the failure should be skipped")
			Expect(fexec.CallCount("destroy")).To(Equal(1), "the teardown should destroy the operator")
			expectClusterToBeClean()
		})

		It("should remove the CRDs in the teardown even if the operator cannot be destroyed", func() {
			sim.failOn("destroy")

			err := scenario.Lifecycle(env, resource.AlertKind).Run(ctx, GinkgoLogr)
			Expect(e2eerrors.IsCommandExecution(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("destroy-operator-synopsys-operator"))
			Expect(fexec.CallCount("destroy")).To(Equal(2 * config.DefaultCommandAttempts))
			expectClusterToBeClean()
		})

		It("should report CRDs which survive the destruction of the operator", func() {
			sim.keepCRDsOnDestroy = true

			err := scenario.Lifecycle(env, resource.AlertKind).Run(ctx, GinkgoLogr)
			Expect(e2eerrors.IsResourceStillPresent(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("crds-gone"))
			Expect(sleeps.Load()).To(BeEquivalentTo(config.DefaultCRDAttempts - 1))
			expectClusterToBeClean()
		})
	})

	Describe("NamespaceIsolation", func() {
		It("should keep the operators in different namespaces independent", func() {
			Expect(scenario.NamespaceIsolation(env).Run(ctx, GinkgoLogr)).To(Succeed())
			Expect(fexec.Calls()).To(Equal([]string{
				"deploy -i " + operatorImage + " --enable-alert -n test-space1",
				"deploy -i " + operatorImage + " --enable-blackduck -n test-space2",
				"create alert alt -n test-space1",
				"create blackduck bd -n test-space2 --admin-password a --postgres-password p --user-password u",
				"delete alert alt -n test-space1",
				"destroy test-space1",
				"delete blackduck bd -n test-space2",
				"destroy test-space2",
			}))
			expectClusterToBeClean()
		})

		It("should fail without touching the cluster unless exactly two namespaces are configured", func() {
			env.Config.Instances.IsolationNamespaces = []string{"test-space1"}

			err := scenario.NamespaceIsolation(env).Run(ctx, GinkgoLogr)
			Expect(err).To(MatchError(ContainSubstring("needs exactly 2 namespaces, got 1")))
			Expect(fexec.Calls()).To(BeEmpty())
			expectClusterToBeClean()
		})

		It("should fail if destroying one operator takes down the other", func() {
			sim.leakyDestroy = true

			err := scenario.NamespaceIsolation(env).Run(ctx, GinkgoLogr)
			Expect(e2eerrors.IsResourceNotReady(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("operator-pods-running-test-space2"))
			Expect(sleeps.Load()).To(BeEquivalentTo(config.DefaultPodsRunningAttempts - 1))
			Expect(fexec.CallCount("delete blackduck")).To(BeZero())
			expectClusterToBeClean()
		})
	})

	Describe("MockManifests", func() {
		It("should apply the rendered manifests and wait for the instances", func() {
			Expect(scenario.MockManifests(env, scenario.MockFormats...).Run(ctx, GinkgoLogr)).To(Succeed())
			Expect(fexec.Calls()).To(Equal([]string{
				"deploy -i " + operatorImage + " --cluster-scoped --enable-alert",
				"create alert alt-yaml --persistent-storage=false --mock yaml",
				"delete alert alt-yaml",
				"create alert alt-json --persistent-storage=false --mock json",
				"delete alert alt-json",
				"create alert alt-kube-yaml --persistent-storage=false --mock-kube yaml",
				"create alert alt-kube-json --persistent-storage=false --mock-kube json",
				"destroy",
			}))
			Expect(sim.createdResources()).To(Equal([]string{"alt-yaml/alt-yaml", "alt-json/alt-json"}))
			expectClusterToBeClean()
		})

		It("should not apply anything if the manifest cannot be rendered", func() {
			err := scenario.MockManifests(env, "toml").Run(ctx, GinkgoLogr)
			Expect(e2eerrors.IsCommandExecution(err)).To(BeTrue())
			Expect(sim.createdResources()).To(BeEmpty())
			expectClusterToBeClean()
		})
	})

	Describe("NodeAffinity", func() {
		nodeAffinityFile := func() string {
			creates := fexec.Calls()[1]
			Expect(creates).To(MatchRegexp(`^create blackduck bd --persistent-storage=false --admin-password a --postgres-password p --user-password u --node-affinity-file-path \S+/node-affinity-[0-9a-f]{8}\.json$`))
			fields := strings.Fields(creates)
			return fields[len(fields)-1]
		}

		It("should find the node affinity on the documentation pod and remove the affinity file", func() {
			Expect(scenario.NodeAffinity(env, scenario.DefaultNodeAffinity()).Run(ctx, GinkgoLogr)).To(Succeed())
			calls := fexec.Calls()
			Expect(calls).To(HaveLen(4))
			Expect(calls[0]).To(Equal("deploy -i " + operatorImage + " --cluster-scoped --enable-blackduck"))
			Expect(calls[2:]).To(Equal([]string{"delete blackduck bd", "destroy"}))
			Expect(nodeAffinityFile()).ToNot(BeAnExistingFile())
			expectClusterToBeClean()
		})

		It("should fail if the documentation pod lacks the node affinity", func() {
			sim.ignoreNodeAffinity = true

			err := scenario.NodeAffinity(env, scenario.DefaultNodeAffinity()).Run(ctx, GinkgoLogr)
			Expect(e2eerrors.IsResourceNotReady(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("lacks node affinity kubernetes.io/arch In"))
			Expect(fexec.CallCount("delete blackduck")).To(BeZero())
			Expect(nodeAffinityFile()).ToNot(BeAnExistingFile())
			expectClusterToBeClean()
		})
	})

	Describe("ByName", func() {
		It("should leave out blackduck scenarios without blackduck credentials", func() {
			env.Config.BlackDuck = nil

			sc, err := scenario.ByName(env, scenario.LifecycleName)
			Expect(err).ToNot(HaveOccurred())
			Expect(sc.Run(ctx, GinkgoLogr)).To(Succeed())
			Expect(fexec.CallCount("create alert")).To(Equal(1))
			Expect(fexec.CallCount("create opssight")).To(Equal(1))
			Expect(fexec.CallCount("create blackduck")).To(BeZero())
			expectClusterToBeClean()

			for _, name := range []string{scenario.NamespaceIsolationName, scenario.NodeAffinityName} {
				_, err = scenario.ByName(env, name)
				Expect(err).To(MatchError(scenario.ErrMissingCredentials), name)
			}
			_, err = scenario.ByName(env, scenario.MockManifestsName)
			Expect(err).ToNot(HaveOccurred())
		})

		It("should build every known scenario", func() {
			for _, name := range scenario.Names() {
				sc, err := scenario.ByName(env, name)
				Expect(err).ToNot(HaveOccurred())
				Expect(sc.Name).To(Equal(name))
				Expect(sc.Steps).ToNot(BeEmpty())
				Expect(sc.Teardown).ToNot(BeEmpty())
			}
			_, err := scenario.ByName(env, "upgrade")
			Expect(err).To(HaveOccurred())
		})
	})
})
