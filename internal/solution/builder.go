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

package solution

import "github.com/sapcc/conclave/internal/actions"

//Builder accumulates actions emitted while walking the offload and
//consolidation phases, then collapses migration chains/cycles before
//producing a final Solution. Grounded on add_migration() in
//original_source smart_consolidation.py, generalized with the
//chain-collapse step that file left unimplemented.
type Builder struct {
	actions []actions.Action
}

//NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

//AddMigrate appends a live-migration action.
func (b *Builder) AddMigrate(vmUUID, srcHypervisorUUID, dstHypervisorUUID string) {
	b.actions = append(b.actions, actions.NewMigrateAction(vmUUID, srcHypervisorUUID, dstHypervisorUUID))
}

//AddChangeServiceState appends a service-state action.
func (b *Builder) AddChangeServiceState(hypervisorUUID, state string) {
	b.actions = append(b.actions, actions.NewChangeServiceStateAction(hypervisorUUID, state))
}

//Len reports the number of actions accumulated so far.
func (b *Builder) Len() int {
	return len(b.actions)
}

//CollapseMigrationChains collapses migration chains and cycles: for every VM
//appearing in two or more emitted migrations, the chain collapses to a
//single migration from the first src_hypervisor to the last
//dst_hypervisor; if that collapses to src==dst the VM is dropped from the
//sequence entirely. Non-migration actions and VMs appearing exactly once
//are left untouched; relative order of surviving actions is preserved.
func (b *Builder) CollapseMigrationChains() {
	occurrences := make(map[string]int)
	firstSrcOf := make(map[string]string)
	lastDstOf := make(map[string]string)

	for _, a := range b.actions {
		if a.Type != actions.TypeMigrate {
			continue
		}
		if occurrences[a.ResourceID] == 0 {
			firstSrcOf[a.ResourceID] = a.Params[actions.ParamSrcHypervisor]
		}
		occurrences[a.ResourceID]++
		lastDstOf[a.ResourceID] = a.Params[actions.ParamDstHypervisor]
	}

	seenFirst := make(map[string]bool)
	final := make([]actions.Action, 0, len(b.actions))
	for _, a := range b.actions {
		if a.Type != actions.TypeMigrate || occurrences[a.ResourceID] < 2 {
			final = append(final, a)
			continue
		}
		if seenFirst[a.ResourceID] {
			continue //later occurrences of an already-collapsed chain are dropped
		}
		seenFirst[a.ResourceID] = true
		src := firstSrcOf[a.ResourceID]
		dst := lastDstOf[a.ResourceID]
		if src == dst {
			continue //net-zero chain: drop the VM entirely
		}
		final = append(final, actions.NewMigrateAction(a.ResourceID, src, dst))
	}
	b.actions = final
}

//Build returns the accumulated actions with deterministic Position values
//matching emission order, and resets the Builder.
func (b *Builder) Build() []actions.Action {
	out := make([]actions.Action, len(b.actions))
	for i, a := range b.actions {
		a.Position = i
		out[i] = a
	}
	b.actions = nil
	return out
}
