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

import "fmt"

//InvalidVMStateError is raised when the planner is about to schedule a live
//migration of a VM that is not in the ACTIVE state.
type InvalidVMStateError struct {
	VMUUID string
}

//Error implements the error interface.
func (e InvalidVMStateError) Error() string {
	return fmt.Sprintf("vm %s is not ACTIVE: live migration requires an active vm", e.VMUUID)
}
