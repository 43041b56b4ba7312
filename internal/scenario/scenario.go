// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package scenario

import (
	"context"
	"fmt"

	"github.com/gardener/gardener/pkg/utils/flow"
	"github.com/go-logr/logr"
	multierr "github.com/hashicorp/go-multierror"
)

// StepFn performs one step of a scenario. A non-nil error fails the step.
type StepFn func(ctx context.Context) error

// Step is a named unit of a scenario.
type Step struct {
	Name string
	Fn   StepFn
}

// Scenario is a fixed sequence of steps followed by a teardown.
// The steps stop at the first failure. The teardown runs in any case.
type Scenario struct {
	Name     string
	Steps    []Step
	Teardown []Step
}

// Run executes the scenario and returns the first step failure. If all steps succeeded the
// aggregated teardown errors are returned instead. Teardown errors never replace a step failure, they are only logged.
func (s *Scenario) Run(ctx context.Context, logger logr.Logger) error {
	log := logger.WithValues("scenario", s.Name)
	log.Info("Starting scenario", "steps", len(s.Steps))
	failure := s.runSteps(ctx, log)
	teardownErr := s.runTeardown(ctx, log)
	if failure != nil {
		if teardownErr != nil {
			log.Error(teardownErr, "Teardown failed after scenario failure")
		}
		log.Error(failure, "Scenario failed")
		return failure
	}
	if teardownErr != nil {
		log.Error(teardownErr, "Teardown failed")
		return teardownErr
	}
	log.Info("Scenario succeeded")
	return nil
}

// runSteps chains the steps in a flow where every task depends on its predecessor, so a failed task skips all later ones.
func (s *Scenario) runSteps(ctx context.Context, log logr.Logger) error {
	if len(s.Steps) == 0 {
		return nil
	}
	g := flow.NewGraph(s.Name)
	var (
		failure  error
		previous flow.TaskIDs
	)
	for i, step := range s.Steps {
		taskID := g.Add(flow.Task{
			Name:         fmt.Sprintf("%02d-%s", i+1, step.Name),
			Fn:           createTaskFn(step, &failure, log),
			Dependencies: previous,
		})
		previous = flow.NewTaskIDs(taskID)
	}
	if err := g.Compile().Run(ctx, flow.Opts{Log: log}); err != nil && failure == nil {
		failure = fmt.Errorf("scenario %s aborted: %w", s.Name, err)
	}
	return failure
}

func createTaskFn(step Step, failure *error, log logr.Logger) flow.TaskFn {
	return func(ctx context.Context) error {
		log.Info("Running step", "step", step.Name)
		if err := step.Fn(ctx); err != nil {
			*failure = fmt.Errorf("step %s failed: %w", step.Name, err)
			return *failure
		}
		return nil
	}
}

// runTeardown runs every teardown step regardless of earlier failures or the cancellation of ctx.
func (s *Scenario) runTeardown(ctx context.Context, log logr.Logger) error {
	ctx = context.WithoutCancel(ctx)
	var errs error
	for _, step := range s.Teardown {
		log.Info("Running teardown step", "step", step.Name)
		if err := step.Fn(ctx); err != nil {
			log.Error(err, "Teardown step failed", "step", step.Name)
			errs = multierr.Append(errs, fmt.Errorf("teardown step %s failed: %w", step.Name, err))
		}
	}
	return errs
}
