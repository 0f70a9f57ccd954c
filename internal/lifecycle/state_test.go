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

package lifecycle

import "testing"

func TestExternalTransitionsAllowed(t *testing.T) {
	cases := []struct{ from, to State }{
		{StateRecommended, StateTriggered},
		{StateRecommended, StateCancelled},
		{StateTriggered, StateCancelled},
		{StateOngoing, StateCancelled},
	}
	for _, c := range cases {
		if err := ValidateExternalTransition(c.from, c.to); err != nil {
			t.Errorf("expected %s->%s to be allowed, got %s", c.from, c.to, err.Error())
		}
	}
}

//scenario 7: a SUCCEEDED plan rejects a patch to TRIGGERED.
func TestScenarioStateMachineRejection(t *testing.T) {
	if err := ValidateExternalTransition(StateSucceeded, StateTriggered); err == nil {
		t.Fatal("expected IllegalTransitionError for SUCCEEDED->TRIGGERED")
	}
}

func TestExternalTransitionsRejected(t *testing.T) {
	cases := []struct{ from, to State }{
		{StateSucceeded, StateTriggered},
		{StateFailed, StateTriggered},
		{StateCancelled, StateTriggered},
		{StateDeleted, StateTriggered},
		{StateRecommended, StateOngoing},
		{StateTriggered, StateOngoing}, //internal-only, not external
	}
	for _, c := range cases {
		if err := ValidateExternalTransition(c.from, c.to); err == nil {
			t.Errorf("expected %s->%s to be rejected", c.from, c.to)
		}
	}
}

func TestInternalTransitionsAllowed(t *testing.T) {
	cases := []struct{ from, to State }{
		{StateTriggered, StateOngoing},
		{StateOngoing, StateSucceeded},
		{StateOngoing, StateFailed},
	}
	for _, c := range cases {
		if err := ValidateInternalTransition(c.from, c.to); err != nil {
			t.Errorf("expected %s->%s to be allowed, got %s", c.from, c.to, err.Error())
		}
	}
}

func TestRejectedTransitionDoesNotMutateStore(t *testing.T) {
	store := NewMemoryStore()
	plan, err := store.CreateActionPlan(ActionPlan{UUID: "plan0", AuditUUID: "audit0", State: StateSucceeded}, nil)
	if err != nil {
		t.Fatalf("CreateActionPlan: %s", err.Error())
	}

	_, err = store.UpdateState(plan.UUID, StateTriggered, func(from State) error {
		return ValidateExternalTransition(from, StateTriggered)
	})
	if err == nil {
		t.Fatal("expected IllegalTransitionError")
	}

	reloaded, err := store.GetActionPlan(plan.UUID)
	if err != nil {
		t.Fatalf("GetActionPlan: %s", err.Error())
	}
	if reloaded.State != StateSucceeded {
		t.Fatalf("expected state to remain SUCCEEDED, got %s", reloaded.State)
	}
}

func TestSoftDeleteIsTerminalAndExcludedFromListing(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.CreateActionPlan(ActionPlan{UUID: "plan0", AuditUUID: "audit0"}, nil); err != nil {
		t.Fatalf("CreateActionPlan: %s", err.Error())
	}
	if err := store.SoftDelete("plan0"); err != nil {
		t.Fatalf("SoftDelete: %s", err.Error())
	}

	plan, err := store.GetActionPlan("plan0")
	if err != nil {
		t.Fatalf("GetActionPlan: %s", err.Error())
	}
	if plan.State != StateDeleted || plan.DeletedAt == nil {
		t.Fatalf("expected plan to be soft-deleted, got %+v", plan)
	}

	listed, err := store.ListActionPlans(ListFilter{})
	if err != nil {
		t.Fatalf("ListActionPlans: %s", err.Error())
	}
	if len(listed) != 0 {
		t.Fatalf("expected deleted plan excluded from default listing, got %d", len(listed))
	}

	listedWithDeleted, err := store.ListActionPlans(ListFilter{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("ListActionPlans with IncludeDeleted: %s", err.Error())
	}
	if len(listedWithDeleted) != 1 {
		t.Fatalf("expected deleted plan retained for audit, got %d", len(listedWithDeleted))
	}
}

func TestGetUnknownPlanIsNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.GetActionPlan("does-not-exist")
	if _, ok := err.(NotFoundError); !ok {
		t.Fatalf("expected NotFoundError, got %T", err)
	}
}
