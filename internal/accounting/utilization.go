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

//Package accounting computes per-VM, per-hypervisor, and cluster-relative
//utilization from a cluster.Model and a metrics.Oracle, memoizing per-VM
//results for the lifetime of one Accountant (i.e. one planner run).
package accounting

import (
	"time"

	"github.com/sapcc/conclave/internal/cluster"
	"github.com/sapcc/conclave/internal/metrics"
)

const aggregationPeriod = time.Hour

//Accountant computes utilization figures against a fixed Oracle. Its cache
//is keyed by VM uuid and is never shared across Accountant instances, so a
//fresh Accountant must be constructed per planner run, owned by that single
//invocation.
type Accountant struct {
	oracle metrics.Oracle
	cache  map[string]cluster.Triple
}

//NewAccountant builds an Accountant reading from oracle, with an empty
//per-VM cache.
func NewAccountant(oracle metrics.Oracle) *Accountant {
	return &Accountant{oracle: oracle, cache: make(map[string]cluster.Triple)}
}

//VMUtilization returns the {cpu, ram, disk} utilization triple for the given
//VM, memoizing the result. Fails with NoDataFoundError if memory or disk
//data is unavailable; CPU falls back to worst-case (the VM's full declared
//core count) when cpu_util has no data.
func (a *Accountant) VMUtilization(vm cluster.VM) (cluster.Triple, error) {
	if cached, ok := a.cache[vm.UUID]; ok {
		return cached, nil
	}

	cpuCoresUsed := vm.Demand.CPU
	cpuPercent, ok, err := a.oracle.Aggregate(vm.UUID, metrics.MeterCPUUtilPercent, aggregationPeriod, metrics.AggregationAvg)
	if err != nil {
		return cluster.Triple{}, err
	}
	if ok {
		cpuCoresUsed = vm.Demand.CPU * cpuPercent / 100
	}

	ramMB, ok, err := a.oracle.Aggregate(vm.UUID, metrics.MeterMemoryUsageMB, aggregationPeriod, metrics.AggregationAvg)
	if err != nil {
		return cluster.Triple{}, err
	}
	if !ok {
		ramMB, ok, err = a.oracle.Aggregate(vm.UUID, metrics.MeterMemoryAllocatedMB, aggregationPeriod, metrics.AggregationAvg)
		if err != nil {
			return cluster.Triple{}, err
		}
	}
	if !ok {
		return cluster.Triple{}, NoDataFoundError{ResourceID: vm.UUID, Meter: string(metrics.MeterMemoryUsageMB)}
	}

	diskBytes, ok, err := a.oracle.Aggregate(vm.UUID, metrics.MeterDiskRootSizeBytes, aggregationPeriod, metrics.AggregationAvg)
	if err != nil {
		return cluster.Triple{}, err
	}
	if !ok {
		return cluster.Triple{}, NoDataFoundError{ResourceID: vm.UUID, Meter: string(metrics.MeterDiskRootSizeBytes)}
	}

	result := cluster.Triple{CPU: cpuCoresUsed, RAM: ramMB, Disk: diskBytes}
	a.cache[vm.UUID] = result
	return result, nil
}

//HypervisorUtilization sums the VM-utilization triples of every VM mapped to
//the hypervisor. A host with no VMs reports the zero Triple.
func (a *Accountant) HypervisorUtilization(model *cluster.Model, hypervisorUUID string) (cluster.Triple, error) {
	total := cluster.Triple{}
	for _, vmUUID := range model.Mapping.VMsOf(hypervisorUUID) {
		vm, ok := model.GetVM(vmUUID)
		if !ok {
			continue
		}
		util, err := a.VMUtilization(vm)
		if err != nil {
			return cluster.Triple{}, err
		}
		total = total.Add(util)
	}
	return total, nil
}

//HypervisorCapacity returns the declared resource capacities of the given
//hypervisor.
func (a *Accountant) HypervisorCapacity(model *cluster.Model, hypervisorUUID string) (cluster.Triple, error) {
	h, ok := model.GetHypervisor(hypervisorUUID)
	if !ok {
		return cluster.Triple{}, cluster.ModelInconsistencyError{Message: "unknown hypervisor " + hypervisorUUID}
	}
	return h.Capacities, nil
}

//RelativeHypervisorUtilization (RHU) is the componentwise util/capacity
//ratio for one hypervisor, in [0,1] under normal circumstances (it may
//exceed 1 for an overloaded resource).
func (a *Accountant) RelativeHypervisorUtilization(model *cluster.Model, hypervisorUUID string) (cluster.Triple, error) {
	util, err := a.HypervisorUtilization(model, hypervisorUUID)
	if err != nil {
		return cluster.Triple{}, err
	}
	capacity, err := a.HypervisorCapacity(model, hypervisorUUID)
	if err != nil {
		return cluster.Triple{}, err
	}
	return util.DivideBy(capacity), nil
}

//RelativeClusterUtilization (RCU) is the arithmetic mean of RHU across
//hypervisors with AdminStateOnline; offline hosts are excluded.
func (a *Accountant) RelativeClusterUtilization(model *cluster.Model) (cluster.Triple, error) {
	var sum cluster.Triple
	count := 0
	for _, h := range model.GetAllHypervisors() {
		if h.State != cluster.AdminStateOnline {
			continue
		}
		rhu, err := a.RelativeHypervisorUtilization(model, h.UUID)
		if err != nil {
			return cluster.Triple{}, err
		}
		sum = sum.Add(rhu)
		count++
	}
	if count == 0 {
		return cluster.Triple{}, nil
	}
	return sum.Scale(1 / float64(count)), nil
}
