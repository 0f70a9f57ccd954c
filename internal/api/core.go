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

//Package api is the management HTTP surface of conclaved:
//list/get/patch/delete for ActionPlan, built the way pkg/api builds its v1
//router (mux.NewRouter, a v1Provider handle, respondwith helpers),
//generalized from gopherpolicy/Keystone token checks to goslo.policy
//enforcement against identity headers set by an upstream auth proxy.
package api

import (
	"net/http"

	policy "github.com/databus23/goslo.policy"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sapcc/go-bits/respondwith"
	"github.com/sapcc/go-bits/sre"

	"github.com/sapcc/conclave/internal/applier"
	"github.com/sapcc/conclave/internal/lifecycle"
)

type v1Provider struct {
	Store          lifecycle.Store
	Applier        applier.Applier
	PolicyEnforcer *policy.Enforcer
}

//NewV1Router builds the http.Handler serving conclaved's v1 management API.
func NewV1Router(store lifecycle.Store, apl applier.Applier, policyEnforcer *policy.Enforcer) http.Handler {
	r := mux.NewRouter()
	p := &v1Provider{Store: store, Applier: apl, PolicyEnforcer: policyEnforcer}

	r.Methods("GET").Path("/v1/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondwith.JSON(w, http.StatusOK, map[string]interface{}{"version": "v1"})
	})

	r.Methods("GET").Path("/v1/action-plans").HandlerFunc(p.ListActionPlans)
	r.Methods("GET").Path("/v1/action-plans/{id}").HandlerFunc(p.GetActionPlan)
	r.Methods("PATCH").Path("/v1/action-plans/{id}").HandlerFunc(p.PatchActionPlan)
	r.Methods("DELETE").Path("/v1/action-plans/{id}").HandlerFunc(p.DeleteActionPlan)

	corsHandler := cors.New(cors.Options{
		AllowedMethods: []string{"GET", "PATCH", "DELETE"},
		AllowedHeaders: []string{"X-Auth-Token", "X-Roles", "X-User-Id", "X-Project-Id", "Content-Type"},
	}).Handler(r)

	return sre.Instrument(corsHandler)
}
