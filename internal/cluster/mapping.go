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

import "fmt"

//ModelInconsistencyError is returned when a Mapping operation would violate
//the "every VM has exactly one host" invariant.
type ModelInconsistencyError struct {
	Message string
}

//Error implements the error interface.
func (e ModelInconsistencyError) Error() string {
	return e.Message
}

//Mapping is a bijective many-to-one relation from VMs to hypervisors. It
//never appears on its own; it is always a field of a Model, and is the only
//part of a Model that planner code is allowed to mutate directly (besides
//administrative state, see Model.SetHypervisorState).
type Mapping struct {
	hostOfVM map[string]string            //vm uuid -> hypervisor uuid
	vmsOfHost map[string]map[string]bool //hypervisor uuid -> set of vm uuids
}

func newMapping() Mapping {
	return Mapping{
		hostOfVM:  make(map[string]string),
		vmsOfHost: make(map[string]map[string]bool),
	}
}

//Map assigns vm to host. Fails with ModelInconsistencyError if vm is already
//mapped to some host (including host itself).
func (m *Mapping) Map(hostUUID, vmUUID string) error {
	if existing, ok := m.hostOfVM[vmUUID]; ok {
		return ModelInconsistencyError{fmt.Sprintf(
			"cannot map VM %s to hypervisor %s: already mapped to %s", vmUUID, hostUUID, existing)}
	}
	m.hostOfVM[vmUUID] = hostUUID
	if m.vmsOfHost[hostUUID] == nil {
		m.vmsOfHost[hostUUID] = make(map[string]bool)
	}
	m.vmsOfHost[hostUUID][vmUUID] = true
	return nil
}

//Unmap removes the placement of vm on host. Fails with
//ModelInconsistencyError if vm is not currently mapped to host.
func (m *Mapping) Unmap(hostUUID, vmUUID string) error {
	existing, ok := m.hostOfVM[vmUUID]
	if !ok || existing != hostUUID {
		return ModelInconsistencyError{fmt.Sprintf(
			"cannot unmap VM %s from hypervisor %s: not currently mapped there", vmUUID, hostUUID)}
	}
	delete(m.hostOfVM, vmUUID)
	delete(m.vmsOfHost[hostUUID], vmUUID)
	return nil
}

//Move is an atomic unmap-then-map from srcHostUUID to dstHostUUID. It is the
//operation every planner migration goes through, so that "unmap then map is
//atomic from the planner's perspective" holds by construction.
func (m *Mapping) Move(srcHostUUID, dstHostUUID, vmUUID string) error {
	if err := m.Unmap(srcHostUUID, vmUUID); err != nil {
		return err
	}
	return m.Map(dstHostUUID, vmUUID)
}

//HostOf returns the hypervisor uuid that vmUUID is currently mapped to, and
//whether such a mapping exists.
func (m Mapping) HostOf(vmUUID string) (string, bool) {
	host, ok := m.hostOfVM[vmUUID]
	return host, ok
}

//VMsOf returns the uuids of all VMs currently mapped to hostUUID, in no
//particular order.
func (m Mapping) VMsOf(hostUUID string) []string {
	set := m.vmsOfHost[hostUUID]
	result := make([]string, 0, len(set))
	for vmUUID := range set {
		result = append(result, vmUUID)
	}
	return result
}

//clone returns an independent deep copy of this Mapping.
func (m Mapping) clone() Mapping {
	out := newMapping()
	for vm, host := range m.hostOfVM {
		out.hostOfVM[vm] = host
	}
	for host, vms := range m.vmsOfHost {
		set := make(map[string]bool, len(vms))
		for vm := range vms {
			set[vm] = true
		}
		out.vmsOfHost[host] = set
	}
	return out
}
