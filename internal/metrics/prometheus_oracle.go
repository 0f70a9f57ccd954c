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

package metrics

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	prom_api "github.com/prometheus/client_golang/api"
	prom_v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/sapcc/go-bits/logg"
)

//PrometheusAPIConfiguration contains connection parameters for a Prometheus
//API. Only URL is required, in the format "http<s>://host<:port>".
type PrometheusAPIConfiguration struct {
	URL                      string `yaml:"url"`
	ClientCertificatePath    string `yaml:"cert"`
	ClientCertificateKeyPath string `yaml:"key"`
	ServerCACertificatePath  string `yaml:"ca_cert"`
}

//tlsConfigFromCerts builds the mTLS client configuration for talking to a
//Prometheus server that sits behind a client-certificate-authenticating
//proxy. A client cert and key must be given together or not at all; the CA
//cert is independent of them and only constrains which server cert is
//trusted.
func tlsConfigFromCerts(cfg PrometheusAPIConfiguration) (*tls.Config, error) {
	tlsConfig := &tls.Config{} //nolint:gosec // defaults to TLS 1.2, which is acceptable here

	switch {
	case cfg.ClientCertificatePath == "" && cfg.ClientCertificateKeyPath == "":
		//no client cert configured, nothing to do
	case cfg.ClientCertificatePath == "":
		return nil, errors.New("missing configuration parameter: cert")
	case cfg.ClientCertificateKeyPath == "":
		return nil, errors.New("missing configuration parameter: key")
	default:
		clientCert, err := tls.LoadX509KeyPair(cfg.ClientCertificatePath, cfg.ClientCertificateKeyPath)
		if err != nil {
			return nil, err
		}
		tlsConfig.Certificates = []tls.Certificate{clientCert}
	}

	if cfg.ServerCACertificatePath != "" {
		serverCACert, err := os.ReadFile(cfg.ServerCACertificatePath)
		if err != nil {
			return nil, fmt.Errorf("cannot load CA certificate from %s: %s", cfg.ServerCACertificatePath, err.Error())
		}
		certPool := x509.NewCertPool()
		certPool.AppendCertsFromPEM(serverCACert)
		tlsConfig.RootCAs = certPool
	}

	return tlsConfig, nil
}

//NewPrometheusClient builds the underlying Prometheus v1 API client used by
//PrometheusOracle, applying mTLS settings from cfg if given.
func NewPrometheusClient(cfg PrometheusAPIConfiguration) (prom_v1.API, error) {
	if cfg.URL == "" {
		return nil, errors.New("missing configuration parameter: url")
	}

	tlsConfig, err := tlsConfigFromCerts(cfg)
	if err != nil {
		return nil, err
	}

	roundTripper := prom_api.DefaultRoundTripper
	transport, ok := roundTripper.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("expected roundTripper of type \"*http.Transport\", got %T", roundTripper)
	}
	transport.TLSClientConfig = tlsConfig

	client, err := prom_api.NewClient(prom_api.Config{Address: cfg.URL, RoundTripper: roundTripper})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to Prometheus at %s: %s", cfg.URL, err.Error())
	}
	return prom_v1.NewAPI(client), nil
}

//meterQueryTemplates maps each Meter to a PromQL template with three %s
//placeholders: the aggregation function, the resource-id label value, and
//the range duration.
var meterQueryTemplates = map[Meter]string{
	MeterCPUUtilPercent:        `%s_over_time(cpu_util{resource_id="%s"}[%s])`,
	MeterMemoryUsageMB:         `%s_over_time(memory_usage_mb{resource_id="%s"}[%s])`,
	MeterMemoryAllocatedMB:     `%s_over_time(memory_mb{resource_id="%s"}[%s])`,
	MeterDiskRootSizeBytes:     `%s_over_time(disk_root_size_bytes{resource_id="%s"}[%s])`,
	MeterComputeNodeCPUPercent: `%s_over_time(compute_node_cpu_percent{resource_id="%s"}[%s])`,
}

//PrometheusOracle is the real Oracle implementation, backed by a running
//Prometheus (or Prometheus-API-compatible) server.
type PrometheusOracle struct {
	client prom_v1.API
}

//NewPrometheusOracle wraps an already-constructed Prometheus v1 API client.
func NewPrometheusOracle(client prom_v1.API) *PrometheusOracle {
	return &PrometheusOracle{client: client}
}

//Aggregate implements Oracle.
func (o *PrometheusOracle) Aggregate(resourceID string, meter Meter, period time.Duration, agg Aggregation) (float64, bool, error) {
	tmpl, ok := meterQueryTemplates[meter]
	if !ok {
		return 0, false, fmt.Errorf("no PromQL mapping known for meter %q", meter)
	}
	queryStr := fmt.Sprintf(tmpl, agg, resourceID, period.String())

	value, warnings, err := o.client.Query(context.Background(), queryStr, time.Now())
	for _, warning := range warnings {
		logg.Info("Prometheus query produced warning: %s", warning)
	}
	if err != nil {
		//nolint:stylecheck //Prometheus is a proper name
		return 0, false, fmt.Errorf("Prometheus query failed: %s: %s", queryStr, err.Error())
	}

	resultVector, ok := value.(model.Vector)
	if !ok {
		//nolint:stylecheck //Prometheus is a proper name
		return 0, false, fmt.Errorf("Prometheus query failed: %s: unexpected result type %T", queryStr, value)
	}

	switch resultVector.Len() {
	case 0:
		return 0, false, nil
	case 1:
		return float64(resultVector[0].Value), true, nil
	default:
		logg.Info("Prometheus query returned more than one result: %s (only the first value will be used)", queryStr)
		return float64(resultVector[0].Value), true, nil
	}
}
