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
	"encoding/json"
	"net/http"
	"os"
	"strings"

	policy "github.com/databus23/goslo.policy"
	"github.com/sapcc/go-bits/logg"
)

//LoadPolicyEnforcer reads an oslo.policy-style JSON rule file from path and
//builds a goslo.policy.Enforcer, in the manner of pkg/limes/config.go's
//policy loading.
func LoadPolicyEnforcer(path string) *policy.Enforcer {
	bytes, err := os.ReadFile(path)
	if err != nil {
		logg.Fatal("read policy file: %s", err.Error())
	}
	var rules map[string]string
	if err := json.Unmarshal(bytes, &rules); err != nil {
		logg.Fatal("parse policy file: %s", err.Error())
	}
	enforcer, err := policy.NewEnforcer(rules)
	if err != nil {
		logg.Fatal("build policy enforcer: %s", err.Error())
	}
	return enforcer
}

//Token represents the caller's identity and roles for one request, deferring
//enforcement to Require(). conclaved sits behind an auth proxy that has
//already validated the caller and forwarded their identity in headers, so
//unlike pkg/api/token.go's Token (which calls out to Keystone itself) there is no
//token validation step here, only context construction.
type Token struct {
	enforcer *policy.Enforcer
	context  policy.Context
}

//CheckToken builds a Token from the request's identity headers.
func (p *v1Provider) CheckToken(r *http.Request) *Token {
	roles := splitHeader(r.Header.Get("X-Roles"))
	return &Token{
		enforcer: p.PolicyEnforcer,
		context: policy.Context{
			Roles: roles,
			Auth: map[string]string{
				"user_id":    r.Header.Get("X-User-Id"),
				"project_id": r.Header.Get("X-Project-Id"),
			},
		},
	}
}

func splitHeader(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	roles := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			roles = append(roles, part)
		}
	}
	return roles
}

//Require checks whether the token satisfies rule, writing a 403 response
//and returning false if not.
func (t *Token) Require(w http.ResponseWriter, rule string) bool {
	if !t.enforcer.Enforce(rule, t.context) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return false
	}
	return true
}
