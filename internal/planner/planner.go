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

//Package planner implements the consolidation planner: the offload,
//consolidation, solution-optimization and deactivation pipeline that turns
//a cluster.Model into a solution.Solution under a set of capacity
//coefficients.
package planner

import (
	"github.com/sapcc/conclave/internal/cluster"
	"github.com/sapcc/conclave/internal/solution"
)

//CapacityCoefficients scale how much of a hypervisor's declared capacity
//the planner is willing to consume per resource kind. Each field must be
//> 0.
type CapacityCoefficients struct {
	CPU  float64
	RAM  float64
	Disk float64
}

//Get returns the coefficient for the given resource kind.
func (cc CapacityCoefficients) Get(kind cluster.ResourceKind) float64 {
	switch kind {
	case cluster.ResourceCPUCores:
		return cc.CPU
	case cluster.ResourceMemory:
		return cc.RAM
	case cluster.ResourceDiskCapacity:
		return cc.Disk
	default:
		return 0
	}
}

//Strategy produces a Solution from a Model. The planner operates on a
//clone and never mutates the Model passed to it.
type Strategy interface {
	Execute(model *cluster.Model, cc CapacityCoefficients) (*solution.Solution, error)
}
