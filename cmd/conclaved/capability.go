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

package main

import "github.com/sapcc/conclave/internal/actions"

//unavailableCapability rejects every call. No concrete compute-cloud client
//is in scope for this repository (it is abstracted behind
//actions.Capability); wiring a real one is future work, not a gap in the
//applier itself, which is fully exercised against actions.FakeCapability in
//its own tests.
type unavailableCapability struct{}

func newUnavailableCapability() actions.Capability {
	return unavailableCapability{}
}

func (unavailableCapability) CurrentHost(vmUUID string) (string, error) {
	return "", actions.ActionError{Message: "no compute-cloud client is configured"}
}

func (unavailableCapability) LiveMigrate(vmUUID, dstHypervisorUUID string) error {
	return actions.ActionError{Message: "no compute-cloud client is configured"}
}

func (unavailableCapability) ServiceState(hypervisorUUID string) (string, error) {
	return "", actions.ActionError{Message: "no compute-cloud client is configured"}
}

func (unavailableCapability) SetServiceState(hypervisorUUID, state string) error {
	return actions.ActionError{Message: "no compute-cloud client is configured"}
}
