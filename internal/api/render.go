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

package api

import (
	"github.com/sapcc/conclave/internal/lifecycle"
)

//actionPlanRendering is the JSON wire shape of an ActionPlan.
type actionPlanRendering struct {
	UUID      string               `json:"id"`
	AuditUUID string               `json:"audit_uuid"`
	State     lifecycle.State      `json:"state"`
	Efficacy  float64              `json:"efficacy"`
	CreatedAt string               `json:"created_at"`
	UpdatedAt string               `json:"updated_at"`
	Actions   []plannedActionRendering `json:"actions,omitempty"`
}

//plannedActionRendering is the JSON wire shape of a PlannedAction.
type plannedActionRendering struct {
	ActionType      string            `json:"action_type"`
	ResourceID      string            `json:"resource_id"`
	InputParameters map[string]string `json:"input_parameters"`
	Position        int               `json:"position"`
}

func renderActionPlan(plan lifecycle.ActionPlan, actions []lifecycle.PlannedAction) actionPlanRendering {
	rendering := actionPlanRendering{
		UUID:      plan.UUID,
		AuditUUID: plan.AuditUUID,
		State:     plan.State,
		Efficacy:  plan.Efficacy,
		CreatedAt: plan.CreatedAt.Format(timeFormat),
		UpdatedAt: plan.UpdatedAt.Format(timeFormat),
	}
	for _, a := range actions {
		rendering.Actions = append(rendering.Actions, plannedActionRendering{
			ActionType:      a.ActionType,
			ResourceID:      a.ResourceID,
			InputParameters: a.InputParameters,
			Position:        a.Position,
		})
	}
	return rendering
}

const timeFormat = "2006-01-02T15:04:05Z07:00"
