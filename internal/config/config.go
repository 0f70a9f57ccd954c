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

//Package config loads conclaved's YAML configuration file, grounded on the
//teacher's pkg/limes/config.go: a single Configuration struct read with
//gopkg.in/yaml.v2, validated, then handed to the rest of the service.
package config

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/sapcc/go-bits/logg"
	yaml "gopkg.in/yaml.v2"

	"github.com/sapcc/conclave/internal/cluster"
	"github.com/sapcc/conclave/internal/planner"
)

//Configuration is the top-level shape of conclaved's config file.
type Configuration struct {
	Database DatabaseConfiguration `yaml:"database"`
	API      APIConfiguration      `yaml:"api"`
	Audit    AuditConfiguration    `yaml:"audit"`
	Metrics  MetricsConfiguration  `yaml:"metrics"`
	Cluster  ClusterConfiguration  `yaml:"cluster"`
}

//ClusterConfiguration declares the initial cluster inventory: since
//gophercloud is out of scope here (the compute cloud is abstracted
//behind the Capability interface), hypervisors, VMs, and their placement
//are declared statically rather than discovered from a live Nova API, the
//the same way pkg/limes/config.go declares Clusters statically
//instead of discovering them.
type ClusterConfiguration struct {
	Hypervisors []HypervisorConfiguration `yaml:"hypervisors"`
	VMs         []VMConfiguration         `yaml:"vms"`
}

//HypervisorConfiguration is the YAML shape of a cluster.Hypervisor.
type HypervisorConfiguration struct {
	UUID       string       `yaml:"uuid"`
	Hostname   string       `yaml:"hostname"`
	State      string       `yaml:"state"`
	Capacities TripleConfig `yaml:"capacities"`
}

//VMConfiguration is the YAML shape of a cluster.VM, plus its initial
//placement.
type VMConfiguration struct {
	UUID       string       `yaml:"uuid"`
	State      string       `yaml:"state"`
	Demand     TripleConfig `yaml:"demand"`
	Hypervisor string       `yaml:"hypervisor"`
}

//TripleConfig is the YAML shape of a cluster.Triple.
type TripleConfig struct {
	CPU  float64 `yaml:"cpu_cores"`
	RAM  float64 `yaml:"memory_mb"`
	Disk float64 `yaml:"disk_bytes"`
}

func (t TripleConfig) toTriple() cluster.Triple {
	return cluster.Triple{CPU: t.CPU, RAM: t.RAM, Disk: t.Disk}
}

//ToModel builds the initial cluster.Model described by this configuration.
func (c ClusterConfiguration) ToModel() (*cluster.Model, error) {
	hypervisors := make([]cluster.Hypervisor, len(c.Hypervisors))
	for i, h := range c.Hypervisors {
		hypervisors[i] = cluster.Hypervisor{
			UUID:       h.UUID,
			Hostname:   h.Hostname,
			State:      cluster.AdminState(h.State),
			Capacities: h.Capacities.toTriple(),
		}
	}

	vms := make([]cluster.VM, len(c.VMs))
	placement := make(map[string]string, len(c.VMs))
	for i, v := range c.VMs {
		vms[i] = cluster.VM{UUID: v.UUID, State: cluster.VMState(v.State), Demand: v.Demand.toTriple()}
		if v.Hypervisor != "" {
			placement[v.UUID] = v.Hypervisor
		}
	}

	return cluster.NewModel(hypervisors, vms, placement)
}

//DatabaseConfiguration configures the Postgres connection backing the
//ActionPlan store.
type DatabaseConfiguration struct {
	Location string `yaml:"location"`
}

//APIConfiguration configures the management HTTP surface.
type APIConfiguration struct {
	ListenAddress  string `yaml:"listen"`
	PolicyFilePath string `yaml:"policy"`
}

//AuditConfiguration configures the periodic planner run ("audit") that
//produces new RECOMMENDED action plans.
type AuditConfiguration struct {
	Interval           time.Duration               `yaml:"interval"`
	CapacityCoefficients CapacityCoefficientsConfig `yaml:"capacity_coefficients"`
}

//CapacityCoefficientsConfig is the YAML shape of planner.CapacityCoefficients.
type CapacityCoefficientsConfig struct {
	CPU  float64 `yaml:"cpu"`
	RAM  float64 `yaml:"ram"`
	Disk float64 `yaml:"disk"`
}

//ToPlanner converts the YAML shape into planner.CapacityCoefficients.
func (c CapacityCoefficientsConfig) ToPlanner() planner.CapacityCoefficients {
	return planner.CapacityCoefficients{CPU: c.CPU, RAM: c.RAM, Disk: c.Disk}
}

//MetricsConfiguration configures the Prometheus oracle backing the
//utilization accountant.
type MetricsConfiguration struct {
	PrometheusURL           string `yaml:"prometheus_url"`
	ClientCertificatePath   string `yaml:"client_certificate"`
	ClientCertificateKeyPath string `yaml:"client_certificate_key"`
	ServerCACertificatePath string `yaml:"server_ca_certificate"`
}

//NewConfiguration reads and validates the configuration file at path.
//Errors are logged and terminate the process, matching
//pkg/limes/config.go's NewConfiguration().
func NewConfiguration(path string) Configuration {
	bytes, err := ioutil.ReadFile(path)
	if err != nil {
		logg.Fatal("read configuration file: %s", err.Error())
	}
	var cfg Configuration
	if err := yaml.Unmarshal(bytes, &cfg); err != nil {
		logg.Fatal("parse configuration: %s", err.Error())
	}
	if err := cfg.validate(); err != nil {
		logg.Fatal("validate configuration: %s", err.Error())
	}
	return cfg
}

func (c Configuration) validate() error {
	if c.Database.Location == "" {
		return fmt.Errorf("missing database.location")
	}
	if c.API.ListenAddress == "" {
		return fmt.Errorf("missing api.listen")
	}
	if c.API.PolicyFilePath == "" {
		return fmt.Errorf("missing api.policy")
	}
	if c.Audit.Interval <= 0 {
		return fmt.Errorf("audit.interval must be positive")
	}
	cc := c.Audit.CapacityCoefficients
	if cc.CPU <= 0 || cc.RAM <= 0 || cc.Disk <= 0 {
		return fmt.Errorf("audit.capacity_coefficients entries must all be > 0")
	}
	return nil
}
