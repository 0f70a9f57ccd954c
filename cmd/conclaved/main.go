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

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sapcc/go-bits/logg"

	"github.com/sapcc/conclave/internal/api"
	"github.com/sapcc/conclave/internal/applier"
	"github.com/sapcc/conclave/internal/cluster"
	"github.com/sapcc/conclave/internal/config"
	"github.com/sapcc/conclave/internal/lifecycle"
	"github.com/sapcc/conclave/internal/metrics"
	"github.com/sapcc/conclave/internal/planner"
	"github.com/sapcc/conclave/internal/storage"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <config-file>\n", os.Args[0])
		os.Exit(1)
	}
	cfg := config.NewConfiguration(os.Args[1])

	registry := prometheus.NewRegistry()

	store, err := storage.Init(storage.Configuration{Location: cfg.Database.Location}, registry)
	if err != nil {
		logg.Fatal("connect to database: %s", err.Error())
	}

	oracle, err := buildOracle(cfg.Metrics)
	if err != nil {
		logg.Fatal("build metrics oracle: %s", err.Error())
	}

	model, err := cfg.Cluster.ToModel()
	if err != nil {
		logg.Fatal("build cluster model: %s", err.Error())
	}

	strategy := planner.NewConsolidationStrategy(oracle)
	cap := newUnavailableCapability() //TODO wire a real compute-cloud client once one lands in scope
	apl := applier.NewSequentialApplier(store, cap, applier.DefaultActionTimeout)
	policyEnforcer := api.LoadPolicyEnforcer(cfg.API.PolicyFilePath)

	router := api.NewV1Router(store, apl, policyEnforcer)
	mux := http.NewServeMux()
	mux.Handle("/v1/", router)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: cfg.API.ListenAddress, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatal("HTTP server: %s", err.Error())
		}
	}()
	logg.Info("conclaved listening on %s", cfg.API.ListenAddress)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Audit.Interval)
	defer ticker.Stop()
	cc := cfg.Audit.CapacityCoefficients.ToPlanner()

	for {
		select {
		case <-ticker.C:
			runAudit(model, strategy, cc, store)
		case <-stop:
			logg.Info("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				logg.Error("HTTP server shutdown: %s", err.Error())
			}
			return
		}
	}
}

func buildOracle(cfg config.MetricsConfiguration) (metrics.Oracle, error) {
	client, err := metrics.NewPrometheusClient(metrics.PrometheusAPIConfiguration{
		URL:                      cfg.PrometheusURL,
		ClientCertificatePath:    cfg.ClientCertificatePath,
		ClientCertificateKeyPath: cfg.ClientCertificateKeyPath,
		ServerCACertificatePath:  cfg.ServerCACertificatePath,
	})
	if err != nil {
		return nil, err
	}
	return metrics.NewPrometheusOracle(client), nil
}

//runAudit clones the current cluster model, runs the consolidation
//strategy on the clone, and persists the resulting Solution as a new
//RECOMMENDED ActionPlan. The authoritative model itself is not mutated:
//detailed audit scheduling (re-discovering live placement after each
//applied plan) is explicitly out of scope.
func runAudit(model *cluster.Model, strategy planner.Strategy, cc planner.CapacityCoefficients, store lifecycle.Store) {
	speculative := model.Clone()
	solution, err := strategy.Execute(speculative, cc)
	if err != nil {
		logg.Error("audit: planning failed: %s", err.Error())
		return
	}
	if len(solution.Actions) == 0 {
		logg.Info("audit: cluster already consolidated, nothing to do")
		return
	}

	planUUID, err := uuid.NewV4()
	if err != nil {
		logg.Error("audit: generate plan uuid: %s", err.Error())
		return
	}
	auditUUID, err := uuid.NewV4()
	if err != nil {
		logg.Error("audit: generate audit uuid: %s", err.Error())
		return
	}

	plannedActions := make([]lifecycle.PlannedAction, len(solution.Actions))
	for i, a := range solution.Actions {
		plannedActions[i] = lifecycle.PlannedAction{
			ActionType:      string(a.Type),
			ResourceID:      a.ResourceID,
			InputParameters: a.Params,
			Position:        a.Position,
		}
	}

	plan := lifecycle.ActionPlan{
		UUID:      planUUID.String(),
		AuditUUID: auditUUID.String(),
		State:     lifecycle.StateRecommended,
		Efficacy:  solution.Efficacy,
	}
	if _, err := store.CreateActionPlan(plan, plannedActions); err != nil {
		logg.Error("audit: persist action plan: %s", err.Error())
		return
	}
	logg.Info("audit: recommended action plan %s with %d actions (efficacy %.3f)", plan.UUID, len(plannedActions), plan.Efficacy)
}
