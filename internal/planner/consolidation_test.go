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

package planner

import (
	"testing"

	"github.com/sapcc/conclave/internal/accounting"
	"github.com/sapcc/conclave/internal/actions"
	"github.com/sapcc/conclave/internal/cluster"
	"github.com/sapcc/conclave/internal/metrics"
)

var stdCapacity = cluster.Triple{CPU: 40, RAM: 65536, Disk: 256000}
var unitCC = CapacityCoefficients{CPU: 1, RAM: 1, Disk: 1}

func setVM(oracle *metrics.FixedOracle, uuid string, cpuUtilPercent, ramUsageMB, diskBytes float64) {
	oracle.Set(uuid, metrics.MeterCPUUtilPercent, cpuUtilPercent)
	oracle.Set(uuid, metrics.MeterMemoryUsageMB, ramUsageMB)
	oracle.Set(uuid, metrics.MeterDiskRootSizeBytes, diskBytes)
}

func countMigrateActions(solActions []actions.Action) int {
	n := 0
	for _, a := range solActions {
		if a.Type == actions.TypeMigrate {
			n++
		}
	}
	return n
}

//scenario 1: two hosts, one VM, no overload and nothing to consolidate (the
//asc < dsc guard keeps the VM in place); the idle host is still deactivated.
func TestScenarioNoOp(t *testing.T) {
	oracle := metrics.NewFixedOracle()
	setVM(oracle, "vm0", 10, 1, 10)

	model, err := cluster.NewModel(
		[]cluster.Hypervisor{
			{UUID: "node0", State: cluster.AdminStateOnline, Capacities: stdCapacity},
			{UUID: "node1", State: cluster.AdminStateOnline, Capacities: stdCapacity},
		},
		[]cluster.VM{{UUID: "vm0", State: cluster.VMStateActive, Demand: cluster.Triple{CPU: 10}}},
		map[string]string{"vm0": "node0"},
	)
	if err != nil {
		t.Fatalf("NewModel: %s", err.Error())
	}

	strategy := NewConsolidationStrategy(oracle)
	sol, err := strategy.Execute(model, unitCC)
	if err != nil {
		t.Fatalf("Execute: %s", err.Error())
	}

	if countMigrateActions(sol.Actions) != 0 {
		t.Fatalf("expected no migrations, got %d", countMigrateActions(sol.Actions))
	}
	if len(sol.Actions) != 1 || sol.Actions[0].Type != actions.TypeChangeNovaServiceState || sol.Actions[0].ResourceID != "node1" {
		t.Fatalf("expected exactly one deactivation of node1, got %+v", sol.Actions)
	}
	if host, _ := sol.Model.Mapping.HostOf("vm0"); host != "node0" {
		t.Fatalf("expected vm0 to remain on node0, got %s", host)
	}
}

//scenario 2: two lightly loaded hosts consolidate onto one.
func TestScenarioConsolidateTwoToOne(t *testing.T) {
	oracle := metrics.NewFixedOracle()
	setVM(oracle, "vm0", 10, 1, 10)
	setVM(oracle, "vm1", 30, 1, 10)

	model, err := cluster.NewModel(
		[]cluster.Hypervisor{
			{UUID: "node0", State: cluster.AdminStateOnline, Capacities: stdCapacity},
			{UUID: "node1", State: cluster.AdminStateOnline, Capacities: stdCapacity},
		},
		[]cluster.VM{
			{UUID: "vm0", State: cluster.VMStateActive, Demand: cluster.Triple{CPU: 10}},
			{UUID: "vm1", State: cluster.VMStateActive, Demand: cluster.Triple{CPU: 10}},
		},
		map[string]string{"vm0": "node0", "vm1": "node1"},
	)
	if err != nil {
		t.Fatalf("NewModel: %s", err.Error())
	}

	strategy := NewConsolidationStrategy(oracle)
	sol, err := strategy.Execute(model, unitCC)
	if err != nil {
		t.Fatalf("Execute: %s", err.Error())
	}

	if len(sol.Actions) != 2 {
		t.Fatalf("expected exactly 2 actions, got %d: %+v", len(sol.Actions), sol.Actions)
	}
	migrate := sol.Actions[0]
	deactivate := sol.Actions[1]
	if migrate.Type != actions.TypeMigrate || migrate.ResourceID != "vm0" ||
		migrate.Params[actions.ParamSrcHypervisor] != "node0" || migrate.Params[actions.ParamDstHypervisor] != "node1" {
		t.Fatalf("expected migrate(vm0, node0->node1) first, got %+v", migrate)
	}
	if deactivate.Type != actions.TypeChangeNovaServiceState || deactivate.ResourceID != "node0" ||
		deactivate.Params[actions.ParamState] != actions.ServiceStateDown {
		t.Fatalf("expected change_nova_service_state(node0, down) second, got %+v", deactivate)
	}
}

//scenario 3: an overloaded host sheds load until it is no longer overloaded.
func TestScenarioOffloadOverloadedHost(t *testing.T) {
	oracle := metrics.NewFixedOracle()
	setVM(oracle, "vm0", 100, 1, 10)

	//node0 is at RHU.cpu 0.025 > cc.cpu 0.024; node1 has twice the cores, so
	//the 1-core VM fits there under the same coefficient (1 <= 80*0.024)
	cc := CapacityCoefficients{CPU: 0.024, RAM: 1, Disk: 1}
	model, err := cluster.NewModel(
		[]cluster.Hypervisor{
			{UUID: "node0", State: cluster.AdminStateOnline, Capacities: stdCapacity},
			{UUID: "node1", State: cluster.AdminStateOnline, Capacities: cluster.Triple{CPU: 80, RAM: 65536, Disk: 256000}},
		},
		[]cluster.VM{{UUID: "vm0", State: cluster.VMStateActive, Demand: cluster.Triple{CPU: 1}}},
		map[string]string{"vm0": "node0"},
	)
	if err != nil {
		t.Fatalf("NewModel: %s", err.Error())
	}

	strategy := NewConsolidationStrategy(oracle)
	sol, err := strategy.Execute(model, cc)
	if err != nil {
		t.Fatalf("Execute: %s", err.Error())
	}

	foundMigrateFromNode0 := false
	for _, a := range sol.Actions {
		if a.Type == actions.TypeMigrate && a.Params[actions.ParamSrcHypervisor] == "node0" {
			foundMigrateFromNode0 = true
		}
	}
	if !foundMigrateFromNode0 {
		t.Fatalf("expected at least one migration off node0, got %+v", sol.Actions)
	}

	overloaded, err := isOverloaded(sol.Model, accounting.NewAccountant(oracle), "node0", cc)
	if err != nil {
		t.Fatalf("isOverloaded: %s", err.Error())
	}
	if overloaded {
		t.Fatal("expected node0 to no longer be overloaded after planning")
	}
}

//scenario 6: the only host with room is OFFLINE; the planner reactivates it
//before migrating into it.
func TestScenarioReactivation(t *testing.T) {
	oracle := metrics.NewFixedOracle()
	setVM(oracle, "vm0", 100, 1, 10)
	setVM(oracle, "vm1", 100, 1, 10)

	model, err := cluster.NewModel(
		[]cluster.Hypervisor{
			{UUID: "node0", State: cluster.AdminStateOnline, Capacities: cluster.Triple{CPU: 10, RAM: 65536, Disk: 256000}},
			{UUID: "node1", State: cluster.AdminStateOnline, Capacities: cluster.Triple{CPU: 5, RAM: 65536, Disk: 256000}},
			{UUID: "node2", State: cluster.AdminStateOffline, Capacities: cluster.Triple{CPU: 20, RAM: 65536, Disk: 256000}},
		},
		[]cluster.VM{
			{UUID: "vm0", State: cluster.VMStateActive, Demand: cluster.Triple{CPU: 12}},
			{UUID: "vm1", State: cluster.VMStateActive, Demand: cluster.Triple{CPU: 5}},
		},
		map[string]string{"vm0": "node0", "vm1": "node1"},
	)
	if err != nil {
		t.Fatalf("NewModel: %s", err.Error())
	}

	strategy := NewConsolidationStrategy(oracle)
	sol, err := strategy.Execute(model, unitCC)
	if err != nil {
		t.Fatalf("Execute: %s", err.Error())
	}

	reactivateIdx, migrateIdx := -1, -1
	for i, a := range sol.Actions {
		if a.Type == actions.TypeChangeNovaServiceState && a.ResourceID == "node2" && a.Params[actions.ParamState] == actions.ServiceStateUp && reactivateIdx == -1 {
			reactivateIdx = i
		}
		if a.Type == actions.TypeMigrate && a.Params[actions.ParamDstHypervisor] == "node2" && migrateIdx == -1 {
			migrateIdx = i
		}
	}
	if reactivateIdx == -1 {
		t.Fatal("expected node2 to be reactivated")
	}
	if migrateIdx == -1 {
		t.Fatal("expected a migration into node2")
	}
	if reactivateIdx >= migrateIdx {
		t.Fatalf("expected reactivation (index %d) to precede migration into node2 (index %d)", reactivateIdx, migrateIdx)
	}
}

//scenario 7 (state-machine rejection) belongs to the lifecycle package, not
//the planner.

//boundary: already within capacity under cc={1,1,1} yields an empty sequence
//(Step D deactivation is the only exception when a host starts empty).
func TestBoundaryWithinCapacityEmptySequence(t *testing.T) {
	oracle := metrics.NewFixedOracle()
	setVM(oracle, "vm0", 100, 1, 10)
	setVM(oracle, "vm1", 100, 1, 10)

	model, err := cluster.NewModel(
		[]cluster.Hypervisor{
			{UUID: "node0", State: cluster.AdminStateOnline, Capacities: stdCapacity},
			{UUID: "node1", State: cluster.AdminStateOnline, Capacities: stdCapacity},
		},
		[]cluster.VM{
			{UUID: "vm0", State: cluster.VMStateActive, Demand: cluster.Triple{CPU: 30}},
			{UUID: "vm1", State: cluster.VMStateActive, Demand: cluster.Triple{CPU: 30}},
		},
		map[string]string{"vm0": "node0", "vm1": "node1"},
	)
	if err != nil {
		t.Fatalf("NewModel: %s", err.Error())
	}

	strategy := NewConsolidationStrategy(oracle)
	sol, err := strategy.Execute(model, unitCC)
	if err != nil {
		t.Fatalf("Execute: %s", err.Error())
	}
	if len(sol.Actions) != 0 {
		t.Fatalf("expected empty sequence, both hosts fully used and neither can be emptied, got %+v", sol.Actions)
	}
}

//round-trip: re-running the planner on its own output with identical cc
//reaches a fixed point (empty sequence).
func TestFixedPointOnRerun(t *testing.T) {
	oracle := metrics.NewFixedOracle()
	setVM(oracle, "vm0", 10, 1, 10)
	setVM(oracle, "vm1", 30, 1, 10)

	model, err := cluster.NewModel(
		[]cluster.Hypervisor{
			{UUID: "node0", State: cluster.AdminStateOnline, Capacities: stdCapacity},
			{UUID: "node1", State: cluster.AdminStateOnline, Capacities: stdCapacity},
		},
		[]cluster.VM{
			{UUID: "vm0", State: cluster.VMStateActive, Demand: cluster.Triple{CPU: 10}},
			{UUID: "vm1", State: cluster.VMStateActive, Demand: cluster.Triple{CPU: 10}},
		},
		map[string]string{"vm0": "node0", "vm1": "node1"},
	)
	if err != nil {
		t.Fatalf("NewModel: %s", err.Error())
	}

	strategy := NewConsolidationStrategy(oracle)
	first, err := strategy.Execute(model, unitCC)
	if err != nil {
		t.Fatalf("first Execute: %s", err.Error())
	}

	second, err := strategy.Execute(first.Model, unitCC)
	if err != nil {
		t.Fatalf("second Execute: %s", err.Error())
	}
	if len(second.Actions) != 0 {
		t.Fatalf("expected fixed point (empty sequence) on second run, got %+v", second.Actions)
	}
}

//invariants 1, 3 and 4 from the testable-properties list, checked against
//the scenario-2 model's output.
func TestInvariantsHoldOnConsolidatedModel(t *testing.T) {
	oracle := metrics.NewFixedOracle()
	setVM(oracle, "vm0", 10, 1, 10)
	setVM(oracle, "vm1", 30, 1, 10)

	model, err := cluster.NewModel(
		[]cluster.Hypervisor{
			{UUID: "node0", State: cluster.AdminStateOnline, Capacities: stdCapacity},
			{UUID: "node1", State: cluster.AdminStateOnline, Capacities: stdCapacity},
		},
		[]cluster.VM{
			{UUID: "vm0", State: cluster.VMStateActive, Demand: cluster.Triple{CPU: 10}},
			{UUID: "vm1", State: cluster.VMStateActive, Demand: cluster.Triple{CPU: 10}},
		},
		map[string]string{"vm0": "node0", "vm1": "node1"},
	)
	if err != nil {
		t.Fatalf("NewModel: %s", err.Error())
	}

	strategy := NewConsolidationStrategy(oracle)
	sol, err := strategy.Execute(model, unitCC)
	if err != nil {
		t.Fatalf("Execute: %s", err.Error())
	}

	//invariant 1: every migrated VM ends up on its stated dst.
	seenVMs := make(map[string]bool)
	for _, a := range sol.Actions {
		if a.Type != actions.TypeMigrate {
			continue
		}
		if seenVMs[a.ResourceID] {
			t.Fatalf("invariant 3 violated: vm %s appears in more than one migration", a.ResourceID)
		}
		seenVMs[a.ResourceID] = true
		host, ok := sol.Model.Mapping.HostOf(a.ResourceID)
		if !ok || host != a.Params[actions.ParamDstHypervisor] {
			t.Fatalf("invariant 1 violated: vm %s expected on %s, got %s", a.ResourceID, a.Params[actions.ParamDstHypervisor], host)
		}
	}

	//invariant 4: every hypervisor with an empty vms_of has exactly one
	//emitted down action.
	downActionsFor := make(map[string]int)
	for _, a := range sol.Actions {
		if a.Type == actions.TypeChangeNovaServiceState && a.Params[actions.ParamState] == actions.ServiceStateDown {
			downActionsFor[a.ResourceID]++
		}
	}
	for _, h := range sol.Model.GetAllHypervisors() {
		empty := len(sol.Model.Mapping.VMsOf(h.UUID)) == 0
		if empty && downActionsFor[h.UUID] != 1 {
			t.Fatalf("invariant 4 violated: hypervisor %s is empty but has %d down actions", h.UUID, downActionsFor[h.UUID])
		}
		if !empty && downActionsFor[h.UUID] != 0 {
			t.Fatalf("invariant 4 violated: hypervisor %s is non-empty but has a down action", h.UUID)
		}
	}
}

//a VM that is not ACTIVE must not be scheduled for live migration.
func TestInvalidVMStateAbortsPlanning(t *testing.T) {
	oracle := metrics.NewFixedOracle()
	setVM(oracle, "vm0", 100, 1, 10)

	cc := CapacityCoefficients{CPU: 0.024, RAM: 1, Disk: 1}
	model, err := cluster.NewModel(
		[]cluster.Hypervisor{
			{UUID: "node0", State: cluster.AdminStateOnline, Capacities: stdCapacity},
			{UUID: "node1", State: cluster.AdminStateOnline, Capacities: stdCapacity},
		},
		[]cluster.VM{{UUID: "vm0", State: cluster.VMStatePaused, Demand: cluster.Triple{CPU: 1}}},
		map[string]string{"vm0": "node0"},
	)
	if err != nil {
		t.Fatalf("NewModel: %s", err.Error())
	}

	strategy := NewConsolidationStrategy(oracle)
	_, err = strategy.Execute(model, cc)
	if err == nil {
		t.Fatal("expected InvalidVMStateError for a paused VM on an overloaded host")
	}
	if _, ok := err.(InvalidVMStateError); !ok {
		t.Fatalf("expected InvalidVMStateError, got %T", err)
	}
}
