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

//Package cluster holds the in-memory snapshot of hypervisors, VMs,
//resources, and the VM->hypervisor mapping that the planner operates on.
//Queries are pure; the only mutations are Mapping.Map/Unmap and
//Model.SetHypervisorState, both of which are meant to be used on a cloned,
//speculative Model (see Model.Clone).
package cluster

import (
	"sort"

	"github.com/mohae/deepcopy"
)

//Model owns the Hypervisor set, VM set, and Mapping for one cluster
//snapshot. It is passed around a lot in planner code, mostly so that
//Clone() can hand the planner a speculative copy to mutate freely.
type Model struct {
	hypervisors map[string]*Hypervisor
	vms         map[string]*VM
	Mapping     Mapping
}

//NewModel builds a Model from the given hypervisors and VMs, with every VM
//placed according to initialPlacement (vm uuid -> hypervisor uuid).
func NewModel(hypervisors []Hypervisor, vms []VM, initialPlacement map[string]string) (*Model, error) {
	m := &Model{
		hypervisors: make(map[string]*Hypervisor, len(hypervisors)),
		vms:         make(map[string]*VM, len(vms)),
		Mapping:     newMapping(),
	}
	for idx := range hypervisors {
		h := hypervisors[idx]
		m.hypervisors[h.UUID] = &h
	}
	for idx := range vms {
		v := vms[idx]
		m.vms[v.UUID] = &v
	}
	for vmUUID, hostUUID := range initialPlacement {
		if err := m.Mapping.Map(hostUUID, vmUUID); err != nil {
			return nil, err
		}
	}
	return m, nil
}

//GetAllHypervisors returns every Hypervisor in the model, sorted by uuid for
//determinism (callers that need a different order, such as the planner's
//utilization sort, re-sort explicitly).
func (m *Model) GetAllHypervisors() []Hypervisor {
	result := make([]Hypervisor, 0, len(m.hypervisors))
	for _, h := range m.hypervisors {
		result = append(result, *h)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UUID < result[j].UUID })
	return result
}

//GetHypervisor returns the Hypervisor with the given uuid, or false if none
//exists.
func (m *Model) GetHypervisor(uuid string) (Hypervisor, bool) {
	h, ok := m.hypervisors[uuid]
	if !ok {
		return Hypervisor{}, false
	}
	return *h, true
}

//GetVM returns the VM with the given uuid, or false if none exists.
func (m *Model) GetVM(uuid string) (VM, bool) {
	v, ok := m.vms[uuid]
	if !ok {
		return VM{}, false
	}
	return *v, true
}

//SetHypervisorState updates the administrative state of a hypervisor within
//this (speculative) model. This is the only mutation besides Mapping.Map/Unmap
//that planner code performs.
func (m *Model) SetHypervisorState(uuid string, state AdminState) {
	if h, ok := m.hypervisors[uuid]; ok {
		h.State = state
	}
}

//Clone produces a fully independent deep copy of this Model; mutations on
//the clone never leak back into the original. The whole-graph copy is done
//with mohae/deepcopy rather than a hand-rolled recursive copier, matching
//a common approach to snapshotting nested report structures.
func (m *Model) Clone() *Model {
	clonedHypervisors := deepcopy.Copy(m.hypervisors).(map[string]*Hypervisor)
	clonedVMs := deepcopy.Copy(m.vms).(map[string]*VM)
	return &Model{
		hypervisors: clonedHypervisors,
		vms:         clonedVMs,
		Mapping:     m.Mapping.clone(),
	}
}
