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

//Package actions defines the action taxonomy the planner emits and the
//applier executes: immutable Action records, their parameter schemas, and
//the execute/revert/precondition/postcondition contract each action type
//implements against a Capability (the abstracted hypervisor/compute-cloud
//client).
package actions

//Type enumerates the action types the planner can emit.
type Type string

const (
	//TypeMigrate is a live VM migration from one hypervisor to another.
	TypeMigrate Type = "migrate"
	//TypeChangeNovaServiceState flips a hypervisor's administrative
	//up/down state.
	TypeChangeNovaServiceState Type = "change_nova_service_state"
)

//Action is an immutable record of one remediation step. Params is typed
//key/value; accessors on
//Migrate/ChangeServiceState below do the typed extraction.
type Action struct {
	Type       Type
	ResourceID string
	Params     map[string]string
	//Position is this action's 0-based index within the emitting Solution,
	//its index within the emitting Solution, in planner emission order.
	Position int
}

//NewMigrateAction builds a live-migration Action for vmUUID from src to dst.
func NewMigrateAction(vmUUID, srcHypervisorUUID, dstHypervisorUUID string) Action {
	return Action{
		Type:       TypeMigrate,
		ResourceID: vmUUID,
		Params: map[string]string{
			ParamMigrationType: MigrationTypeLive,
			ParamSrcHypervisor: srcHypervisorUUID,
			ParamDstHypervisor: dstHypervisorUUID,
		},
	}
}

//NewChangeServiceStateAction builds a service-state Action for
//hypervisorUUID, setting it to the given state ("up" or "down").
func NewChangeServiceStateAction(hypervisorUUID, state string) Action {
	return Action{
		Type:       TypeChangeNovaServiceState,
		ResourceID: hypervisorUUID,
		Params:     map[string]string{ParamState: state},
	}
}

//Parameter key/value constants shared by validate() and the concrete
//action wrappers.
const (
	ParamMigrationType = "migration_type"
	ParamSrcHypervisor = "src_hypervisor"
	ParamDstHypervisor = "dst_hypervisor"
	ParamState         = "state"

	MigrationTypeLive = "live"

	ServiceStateUp   = "up"
	ServiceStateDown = "down"
)
