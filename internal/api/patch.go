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
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/respondwith"

	"github.com/sapcc/conclave/internal/lifecycle"
)

//patchOperation is one entry of a JSON-patch-shaped request body (RFC 6902).
//Only the first entry with path "/state" and a string value is acted upon,
//whatever its op; other entries are ignored. A document without such an
//entry is rejected with 400.
type patchOperation struct {
	Op    string      `json:"op"`
	Path  string      `json:"path"`
	Value interface{} `json:"value"`
}

//PatchActionPlan handles PATCH /v1/action-plans/{id}. The only field a
//patch can act on is /state; an accepted transition into TRIGGERED causes a
//fire-and-forget dispatch to the applier, and into CANCELLED additionally
//signals the applier to stop an in-flight or queued run.
func (p *v1Provider) PatchActionPlan(w http.ResponseWriter, r *http.Request) {
	token := p.CheckToken(r)
	if !token.Require(w, "action_plan:update") {
		return
	}

	var ops []patchOperation
	if err := json.NewDecoder(r.Body).Decode(&ops); err != nil {
		http.Error(w, "request body is not a valid JSON patch document: "+err.Error(), http.StatusBadRequest)
		return
	}

	newState, wantsStateChange := extractStateChange(ops)
	if !wantsStateChange {
		http.Error(w, "patch document does not touch /state", http.StatusBadRequest)
		return
	}

	uuid := mux.Vars(r)["id"]
	plan, err := p.Store.UpdateState(uuid, newState, func(from lifecycle.State) error {
		return lifecycle.ValidateExternalTransition(from, newState)
	})
	switch err.(type) {
	case nil:
		//fall through
	case lifecycle.NotFoundError:
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case lifecycle.IllegalTransitionError:
		http.Error(w, err.Error(), http.StatusConflict)
		return
	default:
		if respondwith.ErrorText(w, err) {
			return
		}
	}

	switch newState {
	case lifecycle.StateTriggered:
		if err := p.Applier.LaunchActionPlan(context.Background(), uuid); err != nil {
			logg.Error("api: dispatching action plan %s to the applier failed: %s", uuid, err.Error())
		}
	case lifecycle.StateCancelled:
		p.Applier.RequestCancellation(uuid)
	}

	respondwith.JSON(w, http.StatusOK, map[string]interface{}{"action_plan": renderActionPlan(plan, nil)})
}

func extractStateChange(ops []patchOperation) (lifecycle.State, bool) {
	for _, op := range ops {
		if op.Path != "/state" {
			continue
		}
		str, ok := op.Value.(string)
		if !ok {
			continue
		}
		return lifecycle.State(str), true
	}
	return "", false
}
