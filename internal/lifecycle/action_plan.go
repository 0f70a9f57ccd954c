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
	"fmt"
	"time"
)

//NotFoundError is returned when a plan/audit/action uuid is unknown to the
//store.
type NotFoundError struct {
	Kind string
	UUID string
}

//Error implements the error interface.
func (e NotFoundError) Error() string {
	return fmt.Sprintf("no such %s: %s", e.Kind, e.UUID)
}

//ActionPlan is a persisted record from the `action_plans` table. Emitted
//actions themselves live in PlannedAction, one row per
//actions.Action at its Position within the plan.
type ActionPlan struct {
	ID            int64
	UUID          string
	AuditUUID     string
	FirstActionID int64
	State         State
	Efficacy      float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

//PlannedAction is a persisted record of one emitted actions.Action, one row
//per action within a plan.
type PlannedAction struct {
	ID              int64
	PlanID          int64
	ActionType      string
	ResourceID      string
	InputParameters map[string]string
	Position        int
}

//IsDeleted reports whether this plan has been soft-deleted.
func (p ActionPlan) IsDeleted() bool {
	return p.State == StateDeleted
}
