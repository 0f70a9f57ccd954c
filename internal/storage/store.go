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

//Package storage is the Postgres-backed implementation of lifecycle.Store,
//built on gopkg.in/gorp.v2 and github.com/lib/pq the way pkg/db builds its
//ORM layer, with github.com/dlmiddlecote/sqlstats
//registering the connection pool's gauges on the Prometheus registry.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dlmiddlecote/sqlstats"
	"github.com/prometheus/client_golang/prometheus"
	gorp "gopkg.in/gorp.v2"

	//enables the "postgres" driver for database/sql
	_ "github.com/lib/pq"

	"github.com/sapcc/conclave/internal/lifecycle"
)

//Configuration is the section of conclaved's config file describing how to
//reach the database.
type Configuration struct {
	Location string
}

//PostgresStore is a lifecycle.Store backed by a Postgres database.
type PostgresStore struct {
	dbMap *gorp.DbMap
}

//actionPlanRow is the gorp-mapped shape of the `action_plans` table.
type actionPlanRow struct {
	ID            int64      `db:"id"`
	UUID          string     `db:"uuid"`
	AuditUUID     string     `db:"audit_uuid"`
	FirstActionID int64      `db:"first_action_id"`
	State         string     `db:"state"`
	Efficacy      float64    `db:"efficacy"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	DeletedAt     *time.Time `db:"deleted_at"`
}

//plannedActionRow is the gorp-mapped shape of the `planned_actions` table.
//Input parameters are stored as a JSON column since gorp has no native map
//support.
type plannedActionRow struct {
	ID              int64  `db:"id"`
	PlanID          int64  `db:"plan_id"`
	ActionType      string `db:"action_type"`
	ResourceID      string `db:"resource_id"`
	InputParamsJSON string `db:"input_parameters"`
	Position        int    `db:"position"`
}

//Init opens the database connection, wires gorp's table mappings, and
//registers connection-pool gauges on registerer.
func Init(cfg Configuration, registerer prometheus.Registerer) (*PostgresStore, error) {
	sqlDB, err := sql.Open("postgres", cfg.Location)
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	dbMap := &gorp.DbMap{Db: sqlDB, Dialect: gorp.PostgresDialect{}}
	dbMap.AddTableWithName(actionPlanRow{}, "action_plans").SetKeys(true, "id")
	dbMap.AddTableWithName(plannedActionRow{}, "planned_actions").SetKeys(true, "id")

	collector := sqlstats.NewStatsCollector("conclave", sqlDB)
	if err := registerer.Register(collector); err != nil {
		return nil, err
	}

	return &PostgresStore{dbMap: dbMap}, nil
}

var _ lifecycle.Store = (*PostgresStore)(nil)

func toRow(plan lifecycle.ActionPlan) actionPlanRow {
	return actionPlanRow{
		ID:            plan.ID,
		UUID:          plan.UUID,
		AuditUUID:     plan.AuditUUID,
		FirstActionID: plan.FirstActionID,
		State:         string(plan.State),
		Efficacy:      plan.Efficacy,
		CreatedAt:     plan.CreatedAt,
		UpdatedAt:     plan.UpdatedAt,
		DeletedAt:     plan.DeletedAt,
	}
}

func fromRow(row actionPlanRow) lifecycle.ActionPlan {
	return lifecycle.ActionPlan{
		ID:            row.ID,
		UUID:          row.UUID,
		AuditUUID:     row.AuditUUID,
		FirstActionID: row.FirstActionID,
		State:         lifecycle.State(row.State),
		Efficacy:      row.Efficacy,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		DeletedAt:     row.DeletedAt,
	}
}

//GetActionPlan implements lifecycle.Store.
func (s *PostgresStore) GetActionPlan(uuid string) (lifecycle.ActionPlan, error) {
	var row actionPlanRow
	err := s.dbMap.SelectOne(&row, `SELECT * FROM action_plans WHERE uuid = $1`, uuid)
	if err == sql.ErrNoRows {
		return lifecycle.ActionPlan{}, lifecycle.NotFoundError{Kind: "action plan", UUID: uuid}
	}
	if err != nil {
		return lifecycle.ActionPlan{}, err
	}
	return fromRow(row), nil
}

//ListActionPlans implements lifecycle.Store.
func (s *PostgresStore) ListActionPlans(filter lifecycle.ListFilter) ([]lifecycle.ActionPlan, error) {
	query := `SELECT * FROM action_plans WHERE 1=1`
	var args []interface{}
	argN := 1

	if !filter.IncludeDeleted {
		query += ` AND state != 'DELETED'`
	}
	if filter.AuditUUID != "" {
		query += fmt.Sprintf(` AND audit_uuid = $%d`, argN)
		args = append(args, filter.AuditUUID)
		argN++
	}

	sortKey := "uuid"
	if filter.SortKey != "" && filter.SortKey != "audit_uuid" {
		sortKey = filter.SortKey
	}
	sortDir := "ASC"
	if filter.SortDir == "desc" {
		sortDir = "DESC"
	}
	query += fmt.Sprintf(` ORDER BY %s %s`, sortKey, sortDir)

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}

	var rows []actionPlanRow
	if _, err := s.dbMap.Select(&rows, query, args...); err != nil {
		return nil, err
	}

	plans := make([]lifecycle.ActionPlan, len(rows))
	for i, row := range rows {
		plans[i] = fromRow(row)
	}

	//sort_key=audit_uuid is performed in-memory post-fetch;
	//every other sort key is delegated to the ORDER BY above.
	if filter.SortKey == "audit_uuid" {
		sortPlansByAuditUUID(plans, filter.SortDir == "desc")
	}

	if filter.Marker != "" {
		for i, plan := range plans {
			if plan.UUID == filter.Marker {
				plans = plans[i+1:]
				break
			}
		}
	}
	return plans, nil
}

func sortPlansByAuditUUID(plans []lifecycle.ActionPlan, desc bool) {
	for i := 1; i < len(plans); i++ {
		for j := i; j > 0; j-- {
			less := plans[j].AuditUUID < plans[j-1].AuditUUID
			if desc {
				less = plans[j].AuditUUID > plans[j-1].AuditUUID
			}
			if !less {
				break
			}
			plans[j], plans[j-1] = plans[j-1], plans[j]
		}
	}
}

//CreateActionPlan implements lifecycle.Store.
func (s *PostgresStore) CreateActionPlan(plan lifecycle.ActionPlan, planActions []lifecycle.PlannedAction) (lifecycle.ActionPlan, error) {
	if plan.State == "" {
		plan.State = lifecycle.StateRecommended
	}
	row := toRow(plan)

	txn, err := s.dbMap.Begin()
	if err != nil {
		return lifecycle.ActionPlan{}, err
	}
	if err := txn.Insert(&row); err != nil {
		txn.Rollback() //nolint:errcheck
		return lifecycle.ActionPlan{}, err
	}
	for _, a := range planActions {
		paramsJSON, err := json.Marshal(a.InputParameters)
		if err != nil {
			txn.Rollback() //nolint:errcheck
			return lifecycle.ActionPlan{}, err
		}
		actionRow := plannedActionRow{
			PlanID:          row.ID,
			ActionType:      a.ActionType,
			ResourceID:      a.ResourceID,
			InputParamsJSON: string(paramsJSON),
			Position:        a.Position,
		}
		if err := txn.Insert(&actionRow); err != nil {
			txn.Rollback() //nolint:errcheck
			return lifecycle.ActionPlan{}, err
		}
	}
	if err := txn.Commit(); err != nil {
		return lifecycle.ActionPlan{}, err
	}
	return fromRow(row), nil
}

//UpdateState implements lifecycle.Store, validating the transition inside
//the same transaction that performs the write so the check-then-act stays
//linearizable per plan.
func (s *PostgresStore) UpdateState(uuid string, to lifecycle.State, validate func(from lifecycle.State) error) (lifecycle.ActionPlan, error) {
	txn, err := s.dbMap.Begin()
	if err != nil {
		return lifecycle.ActionPlan{}, err
	}

	var row actionPlanRow
	err = txn.SelectOne(&row, `SELECT * FROM action_plans WHERE uuid = $1 FOR UPDATE`, uuid)
	if err == sql.ErrNoRows {
		txn.Rollback() //nolint:errcheck
		return lifecycle.ActionPlan{}, lifecycle.NotFoundError{Kind: "action plan", UUID: uuid}
	}
	if err != nil {
		txn.Rollback() //nolint:errcheck
		return lifecycle.ActionPlan{}, err
	}

	if err := validate(lifecycle.State(row.State)); err != nil {
		txn.Rollback() //nolint:errcheck
		return lifecycle.ActionPlan{}, err
	}

	row.State = string(to)
	row.UpdatedAt = time.Now()
	if _, err := txn.Update(&row); err != nil {
		txn.Rollback() //nolint:errcheck
		return lifecycle.ActionPlan{}, err
	}
	if err := txn.Commit(); err != nil {
		return lifecycle.ActionPlan{}, err
	}
	return fromRow(row), nil
}

//SoftDelete implements lifecycle.Store.
func (s *PostgresStore) SoftDelete(uuid string) error {
	now := time.Now()
	result, err := s.dbMap.Exec(
		`UPDATE action_plans SET state = $1, deleted_at = $2, updated_at = $2 WHERE uuid = $3`,
		string(lifecycle.StateDeleted), now, uuid)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return lifecycle.NotFoundError{Kind: "action plan", UUID: uuid}
	}
	return nil
}

//GetPlannedActions implements lifecycle.Store.
func (s *PostgresStore) GetPlannedActions(planUUID string) ([]lifecycle.PlannedAction, error) {
	var planRow actionPlanRow
	err := s.dbMap.SelectOne(&planRow, `SELECT * FROM action_plans WHERE uuid = $1`, planUUID)
	if err == sql.ErrNoRows {
		return nil, lifecycle.NotFoundError{Kind: "action plan", UUID: planUUID}
	}
	if err != nil {
		return nil, err
	}

	var rows []plannedActionRow
	_, err = s.dbMap.Select(&rows, `SELECT * FROM planned_actions WHERE plan_id = $1 ORDER BY position ASC`, planRow.ID)
	if err != nil {
		return nil, err
	}

	result := make([]lifecycle.PlannedAction, len(rows))
	for i, row := range rows {
		var params map[string]string
		if err := json.Unmarshal([]byte(row.InputParamsJSON), &params); err != nil {
			return nil, err
		}
		result[i] = lifecycle.PlannedAction{
			ID:              row.ID,
			PlanID:          row.PlanID,
			ActionType:      row.ActionType,
			ResourceID:      row.ResourceID,
			InputParameters: params,
			Position:        row.Position,
		}
	}
	return result, nil
}
