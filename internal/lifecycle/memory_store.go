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

package lifecycle

import (
	"sort"
	"sync"
	"time"
)

//MemoryStore is an in-memory Store implementation for tests and for
//exercising the applier/management-surface contracts without a database.
//One mutex serializes all state-field writes, which is "per-plan
//linearizability" taken to its simplest possible form.
type MemoryStore struct {
	mu      sync.Mutex
	plans   map[string]ActionPlan
	actions map[string][]PlannedAction
	nextID  int64
}

//NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		plans:   make(map[string]ActionPlan),
		actions: make(map[string][]PlannedAction),
	}
}

//GetActionPlan implements Store.
func (s *MemoryStore) GetActionPlan(uuid string) (ActionPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, ok := s.plans[uuid]
	if !ok {
		return ActionPlan{}, NotFoundError{Kind: "action plan", UUID: uuid}
	}
	return plan, nil
}

//ListActionPlans implements Store.
func (s *MemoryStore) ListActionPlans(filter ListFilter) ([]ActionPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []ActionPlan
	for _, plan := range s.plans {
		if plan.IsDeleted() && !filter.IncludeDeleted {
			continue
		}
		if filter.AuditUUID != "" && plan.AuditUUID != filter.AuditUUID {
			continue
		}
		result = append(result, plan)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].UUID < result[j].UUID })

	if filter.SortKey == "audit_uuid" {
		desc := filter.SortDir == "desc"
		sort.SliceStable(result, func(i, j int) bool {
			if desc {
				return result[i].AuditUUID > result[j].AuditUUID
			}
			return result[i].AuditUUID < result[j].AuditUUID
		})
	}

	if filter.Marker != "" {
		for i, plan := range result {
			if plan.UUID == filter.Marker {
				result = result[i+1:]
				break
			}
		}
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

//CreateActionPlan implements Store.
func (s *MemoryStore) CreateActionPlan(plan ActionPlan, planActions []PlannedAction) (ActionPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	plan.ID = s.nextID
	now := plan.CreatedAt
	if now.IsZero() {
		now = plan.UpdatedAt
	}
	plan.CreatedAt = now
	plan.UpdatedAt = now
	if plan.State == "" {
		plan.State = StateRecommended
	}
	s.plans[plan.UUID] = plan
	s.actions[plan.UUID] = append([]PlannedAction(nil), planActions...)
	return plan, nil
}

//UpdateState implements Store.
func (s *MemoryStore) UpdateState(uuid string, to State, validate func(from State) error) (ActionPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, ok := s.plans[uuid]
	if !ok {
		return ActionPlan{}, NotFoundError{Kind: "action plan", UUID: uuid}
	}
	if err := validate(plan.State); err != nil {
		return ActionPlan{}, err
	}
	plan.State = to
	plan.UpdatedAt = nowForStore()
	s.plans[uuid] = plan
	return plan, nil
}

//SoftDelete implements Store.
func (s *MemoryStore) SoftDelete(uuid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, ok := s.plans[uuid]
	if !ok {
		return NotFoundError{Kind: "action plan", UUID: uuid}
	}
	now := nowForStore()
	plan.State = StateDeleted
	plan.DeletedAt = &now
	plan.UpdatedAt = now
	s.plans[uuid] = plan
	return nil
}

//GetPlannedActions implements Store.
func (s *MemoryStore) GetPlannedActions(planUUID string) ([]PlannedAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[planUUID]; !ok {
		return nil, NotFoundError{Kind: "action plan", UUID: planUUID}
	}
	return append([]PlannedAction(nil), s.actions[planUUID]...), nil
}

//nowForStore exists so tests can observe monotonically increasing
//UpdatedAt values without the package depending on wall-clock time at
//import time.
func nowForStore() time.Time {
	return time.Now()
}
