// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/blackducksoftware/operator-e2e/internal/cluster"
	"github.com/blackducksoftware/operator-e2e/internal/config"
	e2eerrors "github.com/blackducksoftware/operator-e2e/internal/errors"
	"github.com/blackducksoftware/operator-e2e/internal/harness"
	"github.com/blackducksoftware/operator-e2e/internal/resource"
	"github.com/blackducksoftware/operator-e2e/internal/util"
)

// steps creates the steps of a scenario against one Env and records what has to be cleaned up.
type steps struct {
	env     *harness.Env
	tracker *tracker
}

func newSteps(env *harness.Env) *steps {
	return &steps{env: env, tracker: newTracker()}
}

func (s *steps) deployOperator(namespace string, opts resource.Options) Step {
	return Step{
		Name: "deploy-operator-" + namespace,
		Fn: func(ctx context.Context) error {
			s.tracker.addOperator(namespace)
			s.tracker.addNamespace(namespace)
			return s.env.Adapter(resource.OperatorKind).Deploy(ctx, namespace, opts).Err
		},
	}
}

func (s *steps) destroyOperator(namespace string) Step {
	return Step{
		Name: "destroy-operator-" + namespace,
		Fn: func(ctx context.Context) error {
			if err := s.env.Adapter(resource.OperatorKind).Destroy(ctx, namespace, resource.Options{}).Err; err != nil {
				return err
			}
			s.tracker.removeOperator(namespace)
			return nil
		},
	}
}

func (s *steps) create(kind resource.Kind, namespace string, opts resource.Options) Step {
	return Step{
		Name: fmt.Sprintf("create-%s-%s", kind.Name(), opts.Name),
		Fn: func(ctx context.Context) error {
			s.tracker.addNamespace(namespace)
			return s.env.Adapter(kind).Deploy(ctx, namespace, opts).Err
		},
	}
}

func (s *steps) delete(kind resource.Kind, namespace string, opts resource.Options) Step {
	return Step{
		Name: fmt.Sprintf("delete-%s-%s", kind.Name(), opts.Name),
		Fn: func(ctx context.Context) error {
			return s.env.Adapter(kind).Destroy(ctx, namespace, opts).Err
		},
	}
}

// act runs `<action> <kind> <name>` of the control CLI, e.g. stop or start.
func (s *steps) act(action resource.Action, kind resource.Kind, namespace string, opts resource.Options) Step {
	return Step{
		Name: fmt.Sprintf("%s-%s-%s", action, kind.Name(), opts.Name),
		Fn: func(ctx context.Context) error {
			adapter := s.env.Adapter(kind)
			switch action {
			case resource.ActionStop:
				return adapter.Stop(ctx, namespace, opts).Err
			case resource.ActionStart:
				return adapter.Start(ctx, namespace, opts).Err
			default:
				return adapter.Update(ctx, namespace, opts).Err
			}
		},
	}
}

func (s *steps) podsRunning(kind resource.Kind, namespace string) Step {
	return Step{
		Name: fmt.Sprintf("%s-pods-running-%s", kind.Name(), namespace),
		Fn: func(ctx context.Context) error {
			return s.env.Adapter(kind).ArePodsRunning(ctx, namespace).Err
		},
	}
}

func (s *steps) podsDeleted(kind resource.Kind, namespace string) Step {
	return Step{
		Name: fmt.Sprintf("%s-pods-deleted-%s", kind.Name(), namespace),
		Fn: func(ctx context.Context) error {
			return s.env.Adapter(kind).ArePodsDeleted(ctx, namespace).Err
		},
	}
}

func (s *steps) crdsRegistered(kinds ...resource.Kind) Step {
	return Step{
		Name: "crds-registered",
		Fn: func(ctx context.Context) error {
			for _, kind := range kinds {
				if err := s.env.Adapter(kind).DoesCRDExist(ctx).Err; err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (s *steps) crdsGone(kinds ...resource.Kind) Step {
	return Step{
		Name: "crds-gone",
		Fn: func(ctx context.Context) error {
			return verifyCRDsGone(ctx, s.env, kinds)
		},
	}
}

// listed checks that `get` and `describe` of the control CLI both report the instance.
func (s *steps) listed(kind resource.Kind, namespace, name string) Step {
	return Step{
		Name: fmt.Sprintf("list-%s-%s", kind.Name(), name),
		Fn: func(ctx context.Context) error {
			adapter := s.env.Adapter(kind)
			result := adapter.List(ctx, namespace)
			if result.Err != nil {
				return result.Err
			}
			if !bytes.Contains(result.Value, []byte(name)) {
				return e2eerrors.New(e2eerrors.ErrResourceNotReady, fmt.Sprintf("%s %s is not listed by get %s", kind.Name(), name, kind.Plural()))
			}
			return adapter.Describe(ctx, namespace, name).Err
		},
	}
}

func (s *steps) createNamespace(namespace string) Step {
	return Step{
		Name: "create-namespace-" + namespace,
		Fn: func(ctx context.Context) error {
			s.tracker.addNamespace(namespace)
			return s.env.Mutator.CreateNamespace(ctx, namespace)
		},
	}
}

func (s *steps) deleteNamespace(namespace string) Step {
	return Step{
		Name: "delete-namespace-" + namespace,
		Fn: func(ctx context.Context) error {
			return s.env.Mutator.DeleteNamespace(ctx, namespace)
		},
	}
}

// writeNodeAffinities writes the node affinity file read by `create blackduck --node-affinity-file-path`.
func (s *steps) writeNodeAffinities(path string, affinities map[string][]resource.NodeAffinity) Step {
	return Step{
		Name: "write-node-affinities",
		Fn: func(context.Context) error {
			data, err := json.Marshal(affinities)
			if err != nil {
				return err
			}
			s.tracker.addFile(path)
			return os.WriteFile(path, data, 0o600)
		},
	}
}

// nodeAffinityApplied checks that every pod of kind whose name contains podName carries affinity.
func (s *steps) nodeAffinityApplied(kind resource.Kind, namespace, podName string, affinity resource.NodeAffinity) Step {
	return Step{
		Name: fmt.Sprintf("%s-node-affinity-%s", kind.Name(), podName),
		Fn: func(ctx context.Context) error {
			pods, err := s.env.Probe.ListPods(ctx, namespace, kind.LabelSelector())
			if err != nil {
				return err
			}
			found := false
			for _, pod := range pods {
				if !strings.Contains(pod.Name, podName) {
					continue
				}
				found = true
				if !affinity.SatisfiedBy(pod.NodeAffinity) {
					return e2eerrors.New(e2eerrors.ErrResourceNotReady, fmt.Sprintf("pod %s/%s lacks node affinity %s %s %v", namespace, pod.Name, affinity.Key, affinity.Op, affinity.Values))
				}
			}
			if !found {
				return e2eerrors.New(e2eerrors.ErrResourceNotReady, fmt.Sprintf("no %s pod %s in namespace %s", kind.Name(), podName, namespace))
			}
			return nil
		},
	}
}

// render runs the control CLI with args and stores its output in manifest.
func (s *steps) render(name string, manifest *[]byte, args ...string) Step {
	return Step{
		Name: "render-" + name,
		Fn: func(ctx context.Context) error {
			result := s.env.Tool.Exec(ctx, args...)
			if result.Err != nil {
				return result.Err
			}
			*manifest = result.Value
			return nil
		},
	}
}

func (s *steps) apply(name, namespace string, manifest *[]byte) Step {
	return Step{
		Name: "apply-" + name,
		Fn: func(ctx context.Context) error {
			objs, err := cluster.DecodeManifests(*manifest)
			if err != nil {
				return err
			}
			if len(objs) == 0 {
				return fmt.Errorf("manifest %s contains no objects", name)
			}
			for _, obj := range objs {
				if err = s.env.Mutator.Apply(ctx, obj, namespace); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func failWith(err error) StepFn {
	return func(context.Context) error {
		return err
	}
}

func verifyCRDsGone(ctx context.Context, env *harness.Env, kinds []resource.Kind) error {
	for _, kind := range kinds {
		result := env.Adapter(kind).IsCRDGone(ctx)
		if e2eerrors.IsResourceNotReady(result.Err) {
			return e2eerrors.WrapError(result.Err, e2eerrors.ErrResourceStillPresent, fmt.Sprintf("customresourcedefinition %s is still present", kind.CRDName()))
		}
		if result.Err != nil {
			return result.Err
		}
	}
	return nil
}

func verifyNamespacesGone(ctx context.Context, env *harness.Env, namespaces []string) error {
	for _, namespace := range namespaces {
		result := util.Poll(ctx, env.Logger, "namespace-gone-"+namespace, func() (bool, error) {
			exists, err := env.Probe.NamespaceExists(ctx, namespace)
			return !exists, err
		}, config.ToRetryPolicy(env.Config.Policies.PodsDeleted), cluster.IsTransientError)
		if e2eerrors.IsResourceNotReady(result.Err) {
			return e2eerrors.WrapError(result.Err, e2eerrors.ErrResourceStillPresent, fmt.Sprintf("namespace %s is still present", namespace))
		}
		if result.Err != nil {
			return result.Err
		}
	}
	return nil
}
