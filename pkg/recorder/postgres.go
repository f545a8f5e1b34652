// Package recorder is the Postgres-backed implementation of the
// internal/recorder.Recorder collaborator interface: one row per
// (step, scenario) snapshot, wired through pkg/database's pgx/goose
// setup.
package recorder

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"hydroengine/internal/calendar"
	"hydroengine/internal/scenario"
	"hydroengine/internal/state"
)

//go:embed migrations/*.sql
var Migrations embed.FS

// DB is the minimal pgx surface this recorder needs, shaped so
// callers can pass a *pgxpool.Pool (or a pgxmock connection in tests)
// directly.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Snapshot is one recorded (step, scenario) row: edge flows, storage
// volumes, and virtual-storage volumes, serialised as JSON.
type Snapshot struct {
	RunID                uuid.UUID `json:"run_id"`
	StepIndex            int       `json:"step_index"`
	ScenarioGlobalIndex  int       `json:"scenario_global_index"`
	EdgeFlow             []byte    `json:"edge_flow"`
	StorageVolume        []byte    `json:"storage_volume"`
	VirtualStorageVolume []byte    `json:"virtual_storage_volume"`
}

// Postgres is a recorder.Recorder that inserts one snapshot row per
// (step, scenario).
type Postgres struct {
	db    DB
	runID uuid.UUID
}

// NewPostgres builds a Postgres recorder scoped to one run ID.
func NewPostgres(db DB, runID uuid.UUID) *Postgres {
	return &Postgres{db: db, runID: runID}
}

// Name implements recorder.Recorder.
func (p *Postgres) Name() string { return "postgres" }

// Record implements recorder.Recorder.
func (p *Postgres) Record(ctx context.Context, step calendar.Step, sc scenario.Index, st *state.State) error {
	edgeFlow, err := json.Marshal(st.EdgeFlow)
	if err != nil {
		return fmt.Errorf("marshal edge flow: %w", err)
	}
	storageVolume, err := json.Marshal(st.StorageVolume)
	if err != nil {
		return fmt.Errorf("marshal storage volume: %w", err)
	}
	virtualStorageVolume, err := json.Marshal(st.VirtualStorageVolume)
	if err != nil {
		return fmt.Errorf("marshal virtual storage volume: %w", err)
	}

	_, err = p.db.Exec(ctx, `
		INSERT INTO timestep_snapshots
			(run_id, step_index, scenario_global_index, edge_flow, storage_volume, virtual_storage_volume)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id, step_index, scenario_global_index) DO UPDATE SET
			edge_flow = EXCLUDED.edge_flow,
			storage_volume = EXCLUDED.storage_volume,
			virtual_storage_volume = EXCLUDED.virtual_storage_volume
	`, p.runID, step.Index, sc.Global, edgeFlow, storageVolume, virtualStorageVolume)
	if err != nil {
		return fmt.Errorf("insert timestep snapshot: %w", err)
	}
	return nil
}
