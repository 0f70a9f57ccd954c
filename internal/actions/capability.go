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

package actions

import "fmt"

//ActionError is a runtime failure during execute/revert. It surfaces to the
//owning plan's FAILED state.
type ActionError struct {
	Message string
}

//Error implements the error interface.
func (e ActionError) Error() string {
	return e.Message
}

//Capability is the abstracted compute-cloud client the applier targets: the
//out-of-scope "concrete compute-cloud clients (hypervisor control, live
//migration primitives)", reduced to exactly the operations the action
//taxonomy needs.
type Capability interface {
	//CurrentHost returns the hypervisor a VM currently lives on.
	CurrentHost(vmUUID string) (string, error)
	//LiveMigrate moves a VM to dstHypervisorUUID. Idempotent: migrating a VM
	//that is already on dstHypervisorUUID is a no-op success.
	LiveMigrate(vmUUID, dstHypervisorUUID string) error
	//ServiceState returns a hypervisor's current up/down service state.
	ServiceState(hypervisorUUID string) (string, error)
	//SetServiceState sets a hypervisor's up/down service state. Idempotent:
	//re-asserting a state that already holds is a no-op success.
	SetServiceState(hypervisorUUID, state string) error
}

//Execute performs a's effect against cap. Validates first (an invalid
//action must never reach the capability).
func Execute(a Action, cap Capability) error {
	if err := Validate(a); err != nil {
		return err
	}
	switch a.Type {
	case TypeMigrate:
		return executeMigrate(a, cap)
	case TypeChangeNovaServiceState:
		return executeChangeServiceState(a, cap)
	default:
		return ActionError{Message: fmt.Sprintf("cannot execute unknown action type %q", a.Type)}
	}
}

//Revert performs a's best-effort inverse against cap.
func Revert(a Action, cap Capability) error {
	switch a.Type {
	case TypeMigrate:
		return revertMigrate(a, cap)
	case TypeChangeNovaServiceState:
		return revertChangeServiceState(a, cap)
	default:
		return ActionError{Message: fmt.Sprintf("cannot revert unknown action type %q", a.Type)}
	}
}

func executeMigrate(a Action, cap Capability) error {
	dst := a.Params[ParamDstHypervisor]
	current, err := cap.CurrentHost(a.ResourceID)
	if err != nil {
		return ActionError{Message: err.Error()}
	}
	if current == dst {
		return nil //idempotent no-op
	}
	if err := cap.LiveMigrate(a.ResourceID, dst); err != nil {
		return ActionError{Message: err.Error()}
	}
	return nil
}

func revertMigrate(a Action, cap Capability) error {
	src := a.Params[ParamSrcHypervisor]
	current, err := cap.CurrentHost(a.ResourceID)
	if err != nil {
		return ActionError{Message: err.Error()}
	}
	if current == src {
		return nil //idempotent no-op
	}
	if err := cap.LiveMigrate(a.ResourceID, src); err != nil {
		return ActionError{Message: err.Error()}
	}
	return nil
}

func executeChangeServiceState(a Action, cap Capability) error {
	state := a.Params[ParamState]
	current, err := cap.ServiceState(a.ResourceID)
	if err != nil {
		return ActionError{Message: err.Error()}
	}
	if current == state {
		return nil //idempotent no-op
	}
	if err := cap.SetServiceState(a.ResourceID, state); err != nil {
		return ActionError{Message: err.Error()}
	}
	return nil
}

func revertChangeServiceState(a Action, cap Capability) error {
	//best-effort inverse: flip back to the opposite of what was requested
	var inverse string
	switch a.Params[ParamState] {
	case ServiceStateUp:
		inverse = ServiceStateDown
	case ServiceStateDown:
		inverse = ServiceStateUp
	default:
		return ActionError{Message: fmt.Sprintf("cannot revert service-state action with state %q", a.Params[ParamState])}
	}
	if err := cap.SetServiceState(a.ResourceID, inverse); err != nil {
		return ActionError{Message: err.Error()}
	}
	return nil
}

//Preconditions is a best-effort check run before Execute; it may be a no-op
//for action types with nothing worth checking ahead of time.
func Preconditions(_ Action, _ Capability) error {
	return nil
}

//Postconditions is a best-effort verification run after Execute; it may be
//a no-op for action types with nothing worth re-checking.
func Postconditions(_ Action, _ Capability) error {
	return nil
}
