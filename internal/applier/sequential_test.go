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
	"errors"
	"testing"
	"time"

	"github.com/sapcc/conclave/internal/actions"
	"github.com/sapcc/conclave/internal/lifecycle"
)

var errSimulatedMigrationFailure = errors.New("simulated migration failure")

//migrate actions are validated before execution, so VM resource ids must be
//well-formed uuids
const (
	testVM0 = "00000000-0000-0000-0000-000000000000"
	testVM1 = "11111111-1111-1111-1111-111111111111"
)

func waitForState(t *testing.T, store lifecycle.Store, planUUID string, want lifecycle.State) lifecycle.ActionPlan {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		plan, err := store.GetActionPlan(planUUID)
		if err != nil {
			t.Fatalf("GetActionPlan: %s", err.Error())
		}
		if plan.State == want {
			return plan
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("plan %s did not reach state %s in time", planUUID, want)
	return lifecycle.ActionPlan{}
}

func seedTriggeredPlan(t *testing.T, store lifecycle.Store, uuid string, planActions []lifecycle.PlannedAction) {
	t.Helper()
	_, err := store.CreateActionPlan(lifecycle.ActionPlan{UUID: uuid, AuditUUID: "audit0", State: lifecycle.StateTriggered}, planActions)
	if err != nil {
		t.Fatalf("CreateActionPlan: %s", err.Error())
	}
}

func TestLaunchActionPlanSucceeds(t *testing.T) {
	store := lifecycle.NewMemoryStore()
	cap := actions.NewFakeCapability(map[string]string{testVM0: "host1"}, nil)
	seedTriggeredPlan(t, store, "plan0", []lifecycle.PlannedAction{
		{ActionType: string(actions.TypeMigrate), ResourceID: testVM0, InputParameters: map[string]string{
			actions.ParamMigrationType: actions.MigrationTypeLive,
			actions.ParamSrcHypervisor: "host1",
			actions.ParamDstHypervisor: "host2",
		}},
	})

	app := NewSequentialApplier(store, cap, time.Second)
	if err := app.LaunchActionPlan(context.Background(), "plan0"); err != nil {
		t.Fatalf("LaunchActionPlan: %s", err.Error())
	}

	waitForState(t, store, "plan0", lifecycle.StateSucceeded)
	if host, _ := cap.CurrentHost(testVM0); host != "host2" {
		t.Fatalf("expected vm0 on host2, got %s", host)
	}
}

//vmFailingCapability wraps FakeCapability and fails LiveMigrate for one
//specific VM, so a test can force a deterministic mid-plan failure without
//racing the applier goroutine.
type vmFailingCapability struct {
	*actions.FakeCapability
	failVMUUID string
}

func (c *vmFailingCapability) LiveMigrate(vmUUID, dstHypervisorUUID string) error {
	if vmUUID == c.failVMUUID {
		return errSimulatedMigrationFailure
	}
	return c.FakeCapability.LiveMigrate(vmUUID, dstHypervisorUUID)
}

func TestLaunchActionPlanFailsAndReverts(t *testing.T) {
	store := lifecycle.NewMemoryStore()
	cap := &vmFailingCapability{
		FakeCapability: actions.NewFakeCapability(map[string]string{testVM0: "host1", testVM1: "host1"}, nil),
		failVMUUID:     testVM1,
	}

	seedTriggeredPlan(t, store, "plan0", []lifecycle.PlannedAction{
		{ActionType: string(actions.TypeMigrate), ResourceID: testVM0, Position: 0, InputParameters: map[string]string{
			actions.ParamMigrationType: actions.MigrationTypeLive,
			actions.ParamSrcHypervisor: "host1",
			actions.ParamDstHypervisor: "host2",
		}},
		{ActionType: string(actions.TypeMigrate), ResourceID: testVM1, Position: 1, InputParameters: map[string]string{
			actions.ParamMigrationType: actions.MigrationTypeLive,
			actions.ParamSrcHypervisor: "host1",
			actions.ParamDstHypervisor: "host2",
		}},
	})

	app := NewSequentialApplier(store, cap, time.Second)
	if err := app.LaunchActionPlan(context.Background(), "plan0"); err != nil {
		t.Fatalf("LaunchActionPlan: %s", err.Error())
	}

	waitForState(t, store, "plan0", lifecycle.StateFailed)
	if host, _ := cap.CurrentHost(testVM0); host != "host1" {
		t.Fatalf("expected vm0 reverted back to host1, got %s", host)
	}
}

func TestCancellationPreventsUndispatchedActions(t *testing.T) {
	store := lifecycle.NewMemoryStore()
	cap := actions.NewFakeCapability(map[string]string{testVM0: "host1"}, nil)
	seedTriggeredPlan(t, store, "plan0", []lifecycle.PlannedAction{
		{ActionType: string(actions.TypeMigrate), ResourceID: testVM0, InputParameters: map[string]string{
			actions.ParamMigrationType: actions.MigrationTypeLive,
			actions.ParamSrcHypervisor: "host1",
			actions.ParamDstHypervisor: "host2",
		}},
	})

	app := NewSequentialApplier(store, cap, time.Second)
	app.RequestCancellation("plan0")
	if err := app.LaunchActionPlan(context.Background(), "plan0"); err != nil {
		t.Fatalf("LaunchActionPlan: %s", err.Error())
	}

	waitForState(t, store, "plan0", lifecycle.StateCancelled)
	if host, _ := cap.CurrentHost(testVM0); host != "host1" {
		t.Fatalf("expected vm0 untouched on host1, got %s", host)
	}
}
