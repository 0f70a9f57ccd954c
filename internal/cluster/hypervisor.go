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

package cluster

//AdminState is the administrative state of a Hypervisor.
type AdminState string

const (
	//AdminStateOnline means the hypervisor accepts new VM placements and
	//contributes to relative cluster utilization.
	AdminStateOnline AdminState = "ONLINE"
	//AdminStateOffline means the hypervisor is powered down (or about to be);
	//it is excluded from RCU. The planner may still choose it as a migration
	//destination, in which case it emits a reactivation action first.
	AdminStateOffline AdminState = "OFFLINE"
)

//Hypervisor is a single compute host capable of running VMs.
type Hypervisor struct {
	UUID       string
	Hostname   string
	State      AdminState
	Capacities Triple
}

//VMState is the runtime power/lifecycle state of a VM.
type VMState string

const (
	VMStateActive    VMState = "ACTIVE"
	VMStatePaused    VMState = "PAUSED"
	VMStateSuspended VMState = "SUSPENDED"
	VMStateStopped   VMState = "STOPPED"
)

//VM is a single virtual machine; the subject of migration.
type VM struct {
	UUID   string
	State  VMState
	Demand Triple
}
