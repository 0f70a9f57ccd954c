/*******************************************************************************
*
* Copyright 2024 SAP SE
*
* Licensed under the Apache License, Version 2.0 (the "License");
* you may not use this file except in compliance with the License.
* You should have received a copy of the License along with this
* program. If not, you may obtain a copy of the License at
*
*     http://www.apache.org/licenses/LICENSE-2.0
*
* Unless required by applicable law or agreed to in writing, software
* distributed under the License is distributed on an "AS IS" BASIS,
* WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
* See the License for the specific language governing permissions and
* limitations under the License.
*
*******************************************************************************/

package applier

import (
	"context"
	"sync"
	"time"

	"github.com/sapcc/go-bits/logg"

	"github.com/sapcc/conclave/internal/actions"
	"github.com/sapcc/conclave/internal/lifecycle"
)

//DefaultActionTimeout is the per-action upper bound used when
//NewSequentialApplier is not given one explicitly.
const DefaultActionTimeout = 10 * time.Minute

//SequentialApplier executes a plan's actions strictly in order, on a single
//goroutine per LaunchActionPlan call: per-plan execution is strictly
//serial. Distinct plans run concurrently on their
//own goroutines.
type SequentialApplier struct {
	store         lifecycle.Store
	capability    actions.Capability
	actionTimeout time.Duration

	mu        sync.Mutex
	cancelled map[string]bool
}

var _ Applier = (*SequentialApplier)(nil)

//NewSequentialApplier builds a SequentialApplier. actionTimeout <= 0 uses
//DefaultActionTimeout.
func NewSequentialApplier(store lifecycle.Store, capability actions.Capability, actionTimeout time.Duration) *SequentialApplier {
	if actionTimeout <= 0 {
		actionTimeout = DefaultActionTimeout
	}
	return &SequentialApplier{
		store:         store,
		capability:    capability,
		actionTimeout: actionTimeout,
		cancelled:     make(map[string]bool),
	}
}

//LaunchActionPlan implements Applier: it dispatches asynchronously and
//returns once the plan is accepted, not once it has finished.
func (a *SequentialApplier) LaunchActionPlan(ctx context.Context, planUUID string) error {
	if _, err := a.store.GetActionPlan(planUUID); err != nil {
		return err
	}
	plannedActions, err := a.store.GetPlannedActions(planUUID)
	if err != nil {
		return err
	}
	go a.run(planUUID, plannedActions)
	return nil
}

//RequestCancellation marks planUUID for cancellation. It does not block;
//the run loop observes the flag before dispatching its next not-yet-started
//action.
func (a *SequentialApplier) RequestCancellation(planUUID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelled[planUUID] = true
}

func (a *SequentialApplier) isCancelled(planUUID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancelled[planUUID]
}

func (a *SequentialApplier) clearCancellation(planUUID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.cancelled, planUUID)
}

func (a *SequentialApplier) run(planUUID string, plannedActions []lifecycle.PlannedAction) {
	defer a.clearCancellation(planUUID)

	if _, err := a.store.UpdateState(planUUID, lifecycle.StateOngoing, func(from lifecycle.State) error {
		return lifecycle.ValidateInternalTransition(from, lifecycle.StateOngoing)
	}); err != nil {
		logg.Error("applier: plan %s could not enter ONGOING: %s", planUUID, err.Error())
		return
	}

	var completed []actions.Action
	for _, pa := range plannedActions {
		if a.isCancelled(planUUID) {
			break //(a) prevent dispatch of not-yet-started actions
		}

		act := toAction(pa)
		execErr := a.executeWithTimeout(act)

		if a.isCancelled(planUUID) {
			//(c) leave the plan CANCELLED regardless of the in-flight
			//action's result
			a.settle(planUUID, lifecycle.StateCancelled)
			return
		}

		if execErr != nil {
			logg.Error("applier: action %s (%s) failed for plan %s: %s", act.Type, act.ResourceID, planUUID, execErr.Error())
			a.revertInReverseOrder(completed)
			a.settle(planUUID, lifecycle.StateFailed)
			return
		}
		completed = append(completed, act)
	}

	if a.isCancelled(planUUID) {
		a.settle(planUUID, lifecycle.StateCancelled)
		return
	}
	a.settle(planUUID, lifecycle.StateSucceeded)
}

func (a *SequentialApplier) settle(planUUID string, to lifecycle.State) {
	if _, err := a.store.UpdateState(planUUID, to, func(from lifecycle.State) error {
		return lifecycle.ValidateInternalTransition(from, to)
	}); err != nil {
		logg.Error("applier: plan %s could not settle into %s: %s", planUUID, to, err.Error())
	}
}

//revertInReverseOrder performs the best-effort revert sequence: completed
//actions are reverted in reverse order; a revert failure is logged and
//does not stop the sequence.
func (a *SequentialApplier) revertInReverseOrder(completed []actions.Action) {
	for i := len(completed) - 1; i >= 0; i-- {
		act := completed[i]
		if err := actions.Revert(act, a.capability); err != nil {
			logg.Error("applier: revert of action %s (%s) failed: %s", act.Type, act.ResourceID, err.Error())
		}
	}
}

//executeWithTimeout runs actions.Execute with a.actionTimeout as its upper
//bound; a timeout is reported as an actions.ActionError.
func (a *SequentialApplier) executeWithTimeout(act actions.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- actions.Execute(act, a.capability)
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(a.actionTimeout):
		return actions.ActionError{Message: "action timed out"}
	}
}

func toAction(pa lifecycle.PlannedAction) actions.Action {
	return actions.Action{
		Type:       actions.Type(pa.ActionType),
		ResourceID: pa.ResourceID,
		Params:     pa.InputParameters,
		Position:   pa.Position,
	}
}
