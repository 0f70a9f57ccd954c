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
	"sort"

	"github.com/sapcc/conclave/internal/accounting"
	"github.com/sapcc/conclave/internal/actions"
	"github.com/sapcc/conclave/internal/cluster"
	"github.com/sapcc/conclave/internal/metrics"
	"github.com/sapcc/conclave/internal/solution"
)

//ConsolidationStrategy is the smart-consolidation bin-packing strategy:
//offload overloaded hosts, consolidate onto fewer hosts, collapse
//migration chains/cycles, then deactivate emptied hosts. Grounded on
//SmartStrategy.execute() in original_source
//smart_consolidation.py, with the offload/consolidation loops corrected to
//match a first-fit-decreasing destination scan and the chain-collapse step
//that file left as a TODO.
type ConsolidationStrategy struct {
	oracle metrics.Oracle
}

//NewConsolidationStrategy builds a ConsolidationStrategy reading from oracle.
func NewConsolidationStrategy(oracle metrics.Oracle) *ConsolidationStrategy {
	return &ConsolidationStrategy{oracle: oracle}
}

var _ Strategy = (*ConsolidationStrategy)(nil)

//Execute runs the full pipeline on a clone of model and returns the
//resulting Solution. model itself is never mutated.
func (s *ConsolidationStrategy) Execute(model *cluster.Model, cc CapacityCoefficients) (*solution.Solution, error) {
	speculative := model.Clone()
	acc := accounting.NewAccountant(s.oracle)
	b := solution.NewBuilder()

	if err := offloadPhase(speculative, acc, cc, b); err != nil {
		return nil, err
	}
	if err := consolidationPhase(speculative, acc, cc, b); err != nil {
		return nil, err
	}
	b.CollapseMigrationChains()
	deactivateEmptyHypervisors(speculative, b)

	rcu, err := acc.RelativeClusterUtilization(speculative)
	if err != nil {
		return nil, err
	}

	return &solution.Solution{
		Actions:  b.Build(),
		Model:    speculative,
		Efficacy: rcu.CPU,
	}, nil
}

//offloadPhase migrates VMs off overloaded hypervisors.
func offloadPhase(model *cluster.Model, acc *accounting.Accountant, cc CapacityCoefficients, b *solution.Builder) error {
	hosts, err := sortedHypervisorsByCPUUtilAsc(model, acc)
	if err != nil {
		return err
	}

	for i := len(hosts) - 1; i >= 0; i-- {
		srcUUID := hosts[i]
		overloaded, err := isOverloaded(model, acc, srcUUID, cc)
		if err != nil {
			return err
		}
		if !overloaded {
			continue
		}

		vms, err := sortedVMsByCPUUtil(model, acc, srcUUID, true)
		if err != nil {
			return err
		}

		for _, vm := range vms {
			if vm.State != cluster.VMStateActive {
				return InvalidVMStateError{VMUUID: vm.UUID}
			}

			for j := len(hosts) - 1; j >= 0; j-- {
				dstUUID := hosts[j]
				if dstUUID == srcUUID {
					continue
				}
				fits, err := vmFits(model, acc, vm, dstUUID, cc)
				if err != nil {
					return err
				}
				if fits {
					reactivateIfOffline(model, b, dstUUID)
					curHost, _ := model.Mapping.HostOf(vm.UUID)
					if err := model.Mapping.Move(curHost, dstUUID, vm.UUID); err != nil {
						return err
					}
					b.AddMigrate(vm.UUID, curHost, dstUUID)
					break
				}
			}

			overloaded, err = isOverloaded(model, acc, srcUUID, cc)
			if err != nil {
				return err
			}
			if !overloaded {
				break
			}
		}
	}
	return nil
}

//consolidationPhase packs VMs onto fewer hypervisors by first-fit-decreasing.
func consolidationPhase(model *cluster.Model, acc *accounting.Accountant, cc CapacityCoefficients, b *solution.Builder) error {
	hosts, err := sortedHypervisorsByCPUUtilAsc(model, acc)
	if err != nil {
		return err
	}

	for asc := 0; asc < len(hosts); asc++ {
		srcUUID := hosts[asc]
		vms, err := sortedVMsByCPUUtil(model, acc, srcUUID, false)
		if err != nil {
			return err
		}

		for _, vm := range vms {
			if vm.State != cluster.VMStateActive {
				return InvalidVMStateError{VMUUID: vm.UUID}
			}

			for dsc := len(hosts) - 1; asc < dsc; dsc-- {
				dstUUID := hosts[dsc]
				fits, err := vmFits(model, acc, vm, dstUUID, cc)
				if err != nil {
					return err
				}
				if fits {
					reactivateIfOffline(model, b, dstUUID)
					curHost, _ := model.Mapping.HostOf(vm.UUID)
					if err := model.Mapping.Move(curHost, dstUUID, vm.UUID); err != nil {
						return err
					}
					b.AddMigrate(vm.UUID, curHost, dstUUID)
					break
				}
			}
		}
	}
	return nil
}

//deactivateEmptyHypervisors flips idle hosts offline: every
//hypervisor left with no mapped VMs is flipped offline and a down action
//is emitted. A hypervisor that is already OFFLINE and empty is left alone:
//re-deactivating an already-down host is a pure no-op at the applier level,
//and skipping it here is what makes re-running the planner on its own
//output reach a fixed point.
func deactivateEmptyHypervisors(model *cluster.Model, b *solution.Builder) {
	for _, h := range model.GetAllHypervisors() {
		if h.State == cluster.AdminStateOnline && len(model.Mapping.VMsOf(h.UUID)) == 0 {
			b.AddChangeServiceState(h.UUID, actions.ServiceStateDown)
			model.SetHypervisorState(h.UUID, cluster.AdminStateOffline)
		}
	}
}

//reactivateIfOffline emits a change_nova_service_state→up action and flips
//the speculative model's state before a migration lands on an OFFLINE
//destination.
func reactivateIfOffline(model *cluster.Model, b *solution.Builder, hypervisorUUID string) {
	h, ok := model.GetHypervisor(hypervisorUUID)
	if !ok || h.State != cluster.AdminStateOffline {
		return
	}
	b.AddChangeServiceState(hypervisorUUID, actions.ServiceStateUp)
	model.SetHypervisorState(hypervisorUUID, cluster.AdminStateOnline)
}

//isOverloaded is the overload predicate: only CPU
//gates overload.
func isOverloaded(model *cluster.Model, acc *accounting.Accountant, hypervisorUUID string, cc CapacityCoefficients) (bool, error) {
	util, err := acc.HypervisorUtilization(model, hypervisorUUID)
	if err != nil {
		return false, err
	}
	capacity, err := acc.HypervisorCapacity(model, hypervisorUUID)
	if err != nil {
		return false, err
	}
	return util.CPU > capacity.CPU*cc.CPU, nil
}

//vmFits is the fit predicate, checked across all three
//resource kinds, inclusive of the boundary (<=, not <).
func vmFits(model *cluster.Model, acc *accounting.Accountant, vm cluster.VM, hypervisorUUID string, cc CapacityCoefficients) (bool, error) {
	util, err := acc.HypervisorUtilization(model, hypervisorUUID)
	if err != nil {
		return false, err
	}
	capacity, err := acc.HypervisorCapacity(model, hypervisorUUID)
	if err != nil {
		return false, err
	}
	demand, err := acc.VMUtilization(vm)
	if err != nil {
		return false, err
	}
	for _, kind := range cluster.AllResourceKinds {
		if util.Get(kind)+demand.Get(kind) > capacity.Get(kind)*cc.Get(kind) {
			return false, nil
		}
	}
	return true, nil
}

//sortedHypervisorsByCPUUtilAsc returns hypervisor uuids ordered ascending
//by current (raw, not relative) CPU utilization, tie-broken by uuid for
//determinism.
func sortedHypervisorsByCPUUtilAsc(model *cluster.Model, acc *accounting.Accountant) ([]string, error) {
	hosts := model.GetAllHypervisors()
	type entry struct {
		uuid string
		cpu  float64
	}
	entries := make([]entry, 0, len(hosts))
	for _, h := range hosts {
		util, err := acc.HypervisorUtilization(model, h.UUID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{uuid: h.UUID, cpu: util.CPU})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].cpu != entries[j].cpu {
			return entries[i].cpu < entries[j].cpu
		}
		return entries[i].uuid < entries[j].uuid
	})
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.uuid
	}
	return out, nil
}

//sortedVMsByCPUUtil returns the VMs of hypervisorUUID ordered by CPU
//utilization (cores used, as computed by the Accountant), ascending when asc
//is true (offload phase: least-CPU first) and
//descending otherwise (consolidation phase: most-CPU first).
func sortedVMsByCPUUtil(model *cluster.Model, acc *accounting.Accountant, hypervisorUUID string, asc bool) ([]cluster.VM, error) {
	vmUUIDs := model.Mapping.VMsOf(hypervisorUUID)
	vms := make([]cluster.VM, 0, len(vmUUIDs))
	for _, uuid := range vmUUIDs {
		vm, ok := model.GetVM(uuid)
		if !ok {
			continue
		}
		vms = append(vms, vm)
	}
	utils := make(map[string]float64, len(vms))
	for _, vm := range vms {
		u, err := acc.VMUtilization(vm)
		if err != nil {
			return nil, err
		}
		utils[vm.UUID] = u.CPU
	}
	sort.SliceStable(vms, func(i, j int) bool {
		if utils[vms[i].UUID] != utils[vms[j].UUID] {
			if asc {
				return utils[vms[i].UUID] < utils[vms[j].UUID]
			}
			return utils[vms[i].UUID] > utils[vms[j].UUID]
		}
		return vms[i].UUID < vms[j].UUID
	})
	return vms, nil
}
