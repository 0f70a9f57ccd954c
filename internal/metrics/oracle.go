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

//Package metrics wraps the statistic-aggregation backend (Prometheus, or an
//in-memory fake for tests) behind a single read-only Oracle interface, so
//that the rest of the planner never has to know which meter names are
//stringly-typed Prometheus label values underneath.
package metrics

import "time"

//Meter is a closed enumeration of the metric signals the planner consumes.
//Keeping this as a Go type (rather than passing meter name strings around)
//makes "unknown meter" a compile-time impossible state, per DESIGN NOTES in
//SPEC_FULL.md.
type Meter string

const (
	//MeterCPUUtilPercent is a VM's average CPU utilization, 0-100.
	MeterCPUUtilPercent Meter = "cpu_util"
	//MeterMemoryUsageMB is a VM's actual memory usage in MB.
	MeterMemoryUsageMB Meter = "memory.usage"
	//MeterMemoryAllocatedMB is a VM's allocated (declared) memory in MB; used
	//as a fallback when MeterMemoryUsageMB has no data.
	MeterMemoryAllocatedMB Meter = "memory"
	//MeterDiskRootSizeBytes is a VM's root disk size in bytes.
	MeterDiskRootSizeBytes Meter = "disk.root.size"
	//MeterComputeNodeCPUPercent is a hypervisor's CPU utilization, 0-100.
	MeterComputeNodeCPUPercent Meter = "compute.node.cpu.percent"
)

//Aggregation is the statistical aggregation applied over the query period.
type Aggregation string

const (
	AggregationAvg Aggregation = "avg"
	AggregationMax Aggregation = "max"
	AggregationMin Aggregation = "min"
)

//Oracle maps (resource-id, meter, period, aggregation) to a scalar. It
//performs no writes and does no interpretation of absence: a missing signal
//is reported via the second return value, not as a zero value, so that
//callers (the Utilization Accountant) can distinguish "measured zero" from
//"no data".
type Oracle interface {
	Aggregate(resourceID string, meter Meter, period time.Duration, agg Aggregation) (value float64, ok bool, err error)
}
