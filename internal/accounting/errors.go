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

package accounting

import "fmt"

//NoDataFoundError is raised when the Metrics Oracle is missing a signal that
//is required to compute a VM's utilization (memory and disk have no
//fallback; CPU falls back to worst-case instead of failing).
type NoDataFoundError struct {
	ResourceID string
	Meter      string
}

//Error implements the error interface.
func (e NoDataFoundError) Error() string {
	return fmt.Sprintf("no data found for meter %q of resource %s", e.Meter, e.ResourceID)
}
