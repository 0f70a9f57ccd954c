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
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sapcc/go-bits/respondwith"

	"github.com/sapcc/conclave/internal/lifecycle"
)

//ListActionPlans handles GET /v1/action-plans.
func (p *v1Provider) ListActionPlans(w http.ResponseWriter, r *http.Request) {
	token := p.CheckToken(r)
	if !token.Require(w, "action_plan:list") {
		return
	}

	filter := lifecycle.ListFilter{
		AuditUUID: r.URL.Query().Get("audit_uuid"),
		Marker:    r.URL.Query().Get("marker"),
		SortKey:   r.URL.Query().Get("sort_key"),
		SortDir:   r.URL.Query().Get("sort_dir"),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	plans, err := p.Store.ListActionPlans(filter)
	if respondwith.ErrorText(w, err) {
		return
	}

	renderings := make([]actionPlanRendering, len(plans))
	for i, plan := range plans {
		renderings[i] = renderActionPlan(plan, nil)
	}
	respondwith.JSON(w, http.StatusOK, map[string]interface{}{"action_plans": renderings})
}

//GetActionPlan handles GET /v1/action-plans/{id}.
func (p *v1Provider) GetActionPlan(w http.ResponseWriter, r *http.Request) {
	token := p.CheckToken(r)
	if !token.Require(w, "action_plan:show") {
		return
	}

	plan, planActions, ok := p.findActionPlan(w, r)
	if !ok {
		return
	}
	respondwith.JSON(w, http.StatusOK, map[string]interface{}{"action_plan": renderActionPlan(plan, planActions)})
}

//findActionPlan loads the plan referenced by the {id} path parameter along
//with its planned actions. Any errors are written into the response
//immediately and cause a false return.
func (p *v1Provider) findActionPlan(w http.ResponseWriter, r *http.Request) (lifecycle.ActionPlan, []lifecycle.PlannedAction, bool) {
	uuid := mux.Vars(r)["id"]
	plan, err := p.Store.GetActionPlan(uuid)
	if _, isNotFound := err.(lifecycle.NotFoundError); isNotFound {
		http.Error(w, err.Error(), http.StatusNotFound)
		return lifecycle.ActionPlan{}, nil, false
	}
	if respondwith.ErrorText(w, err) {
		return lifecycle.ActionPlan{}, nil, false
	}

	planActions, err := p.Store.GetPlannedActions(uuid)
	if respondwith.ErrorText(w, err) {
		return lifecycle.ActionPlan{}, nil, false
	}
	return plan, planActions, true
}

//DeleteActionPlan handles DELETE /v1/action-plans/{id} (soft-delete,
//DELETED is terminal.
func (p *v1Provider) DeleteActionPlan(w http.ResponseWriter, r *http.Request) {
	token := p.CheckToken(r)
	if !token.Require(w, "action_plan:delete") {
		return
	}

	uuid := mux.Vars(r)["id"]
	err := p.Store.SoftDelete(uuid)
	if _, isNotFound := err.(lifecycle.NotFoundError); isNotFound {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if respondwith.ErrorText(w, err) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
