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

//Package solution holds the planner's output type and the Builder that
//accumulates actions during planning, including the chain/cycle collapse of
//solution optimization.
package solution

import (
	"github.com/sapcc/conclave/internal/actions"
	"github.com/sapcc/conclave/internal/cluster"
)

//Solution is the immutable output of one planner run: an ordered action
//sequence, the speculative model reached after applying every action, and
//the efficacy figure computed on that model.
type Solution struct {
	Actions  []actions.Action
	Model    *cluster.Model
	Efficacy float64
}
