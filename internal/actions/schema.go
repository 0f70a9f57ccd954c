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

import (
	"fmt"

	"github.com/gofrs/uuid"
)

//SchemaError is returned by Validate when an Action's parameters do not
//match the schema for its Type. The planner must not emit an action that
//fails validation; the applier must not accept one either.
type SchemaError struct {
	Message string
}

//Error implements the error interface.
func (e SchemaError) Error() string {
	return e.Message
}

//Validate checks a.Params against the schema for a.Type.
func Validate(a Action) error {
	switch a.Type {
	case TypeMigrate:
		return validateMigrate(a)
	case TypeChangeNovaServiceState:
		return validateChangeServiceState(a)
	default:
		return SchemaError{Message: fmt.Sprintf("unknown action type %q", a.Type)}
	}
}

func validateMigrate(a Action) error {
	if _, err := uuid.FromString(a.ResourceID); err != nil {
		return SchemaError{Message: fmt.Sprintf("resource_id %q is not a well-formed uuid", a.ResourceID)}
	}
	//cold migration is never emitted by the consolidation strategy and is
	//rejected here rather than silently accepted.
	if a.Params[ParamMigrationType] != MigrationTypeLive {
		return SchemaError{Message: fmt.Sprintf("migration_type %q is not supported", a.Params[ParamMigrationType])}
	}
	if a.Params[ParamSrcHypervisor] == "" {
		return SchemaError{Message: "src_hypervisor must not be empty"}
	}
	if a.Params[ParamDstHypervisor] == "" {
		return SchemaError{Message: "dst_hypervisor must not be empty"}
	}
	return nil
}

func validateChangeServiceState(a Action) error {
	state := a.Params[ParamState]
	if state != ServiceStateUp && state != ServiceStateDown {
		return SchemaError{Message: fmt.Sprintf("state %q must be \"up\" or \"down\"", state)}
	}
	return nil
}
