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

//Package lifecycle implements the ActionPlan state machine: the State
//enum, the externally- and internally-admissible transition tables, and
//the persisted ActionPlan record together with a Store abstraction the
//management surface and the applier both write through.
package lifecycle

import "fmt"

//State is a point in an ActionPlan's lifecycle.
type State string

const (
	StateRecommended State = "RECOMMENDED"
	StateTriggered   State = "TRIGGERED"
	StateOngoing     State = "ONGOING"
	StateSucceeded   State = "SUCCEEDED"
	StateFailed      State = "FAILED"
	StateCancelled   State = "CANCELLED"
	StateDeleted     State = "DELETED"
)

//IllegalTransitionError is returned when a requested state change is not in
//the admissible transition table for its origin.
type IllegalTransitionError struct {
	From, To State
}

//Error implements the error interface.
func (e IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot transition action plan from %s to %s", e.From, e.To)
}

//externalTransitions are the transitions requested via the management
//surface.
var externalTransitions = map[State]map[State]bool{
	StateRecommended: {StateTriggered: true, StateCancelled: true},
	StateTriggered:   {StateCancelled: true},
	StateOngoing:     {StateCancelled: true},
}

//internalTransitions are driven by the applier, never by a management-surface
//patch.
var internalTransitions = map[State]map[State]bool{
	StateTriggered: {StateOngoing: true, StateCancelled: true},
	StateOngoing:   {StateSucceeded: true, StateFailed: true, StateCancelled: true},
}

//ValidateExternalTransition checks a state change requested via the
//management surface (a PATCH to /state). Soft-delete is handled separately
//by Store.SoftDelete, not through this table.
func ValidateExternalTransition(from, to State) error {
	if externalTransitions[from][to] {
		return nil
	}
	return IllegalTransitionError{From: from, To: to}
}

//ValidateInternalTransition checks a state change driven by the applier.
func ValidateInternalTransition(from, to State) error {
	if internalTransitions[from][to] {
		return nil
	}
	return IllegalTransitionError{From: from, To: to}
}
