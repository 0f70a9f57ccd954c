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

//FakeCapability is an in-memory Capability double for tests. It never talks
//to a real hypervisor; it just tracks host-of-VM and service-state maps so
//execute/revert contracts can be exercised deterministically.
type FakeCapability struct {
	HostOfVM      map[string]string
	ServiceStates map[string]string
	//FailNextMigrate, when true, makes the next LiveMigrate call fail once
	//(and reset itself), for exercising failure/revert paths.
	FailNextMigrate bool
}

//NewFakeCapability builds a FakeCapability from initial placements and
//service states.
func NewFakeCapability(hostOfVM map[string]string, serviceStates map[string]string) *FakeCapability {
	h := make(map[string]string, len(hostOfVM))
	for k, v := range hostOfVM {
		h[k] = v
	}
	s := make(map[string]string, len(serviceStates))
	for k, v := range serviceStates {
		s[k] = v
	}
	return &FakeCapability{HostOfVM: h, ServiceStates: s}
}

//CurrentHost implements Capability.
func (f *FakeCapability) CurrentHost(vmUUID string) (string, error) {
	host, ok := f.HostOfVM[vmUUID]
	if !ok {
		return "", fmt.Errorf("fake capability: unknown vm %s", vmUUID)
	}
	return host, nil
}

//LiveMigrate implements Capability.
func (f *FakeCapability) LiveMigrate(vmUUID, dstHypervisorUUID string) error {
	if f.FailNextMigrate {
		f.FailNextMigrate = false
		return fmt.Errorf("fake capability: simulated migration failure for vm %s", vmUUID)
	}
	if _, ok := f.HostOfVM[vmUUID]; !ok {
		return fmt.Errorf("fake capability: unknown vm %s", vmUUID)
	}
	f.HostOfVM[vmUUID] = dstHypervisorUUID
	return nil
}

//ServiceState implements Capability.
func (f *FakeCapability) ServiceState(hypervisorUUID string) (string, error) {
	state, ok := f.ServiceStates[hypervisorUUID]
	if !ok {
		return "", fmt.Errorf("fake capability: unknown hypervisor %s", hypervisorUUID)
	}
	return state, nil
}

//SetServiceState implements Capability.
func (f *FakeCapability) SetServiceState(hypervisorUUID, state string) error {
	if _, ok := f.ServiceStates[hypervisorUUID]; !ok {
		return fmt.Errorf("fake capability: unknown hypervisor %s", hypervisorUUID)
	}
	f.ServiceStates[hypervisorUUID] = state
	return nil
}
