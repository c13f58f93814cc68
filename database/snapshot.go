package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/hrrag/core/index"
	"github.com/siherrmann/hrrag/helper"
	"github.com/siherrmann/hrrag/model"
	loadSql "github.com/siherrmann/hrrag/sql"
)

// SnapshotDBHandler stores the current snapshot in PostgreSQL.
// It implements index.Store, vectors are kept in a pgvector column.
type SnapshotDBHandler struct {
	db *helper.Database
}

// NewSnapshotDBHandler creates a new snapshot database handler.
// It loads the snapshot SQL functions and creates the tables.
// If force is true, it will reload the SQL functions even if they already exist.
func NewSnapshotDBHandler(db *helper.Database, force bool) (*SnapshotDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	if err := loadSql.Init(db.Instance); err != nil {
		return nil, helper.NewError("init extensions", err)
	}
	if err := loadSql.LoadSnapshotSql(db.Instance, force); err != nil {
		return nil, helper.NewError("load snapshot sql", err)
	}

	h := &SnapshotDBHandler{db: db}
	if err := h.CreateTables(); err != nil {
		return nil, helper.NewError("create tables", err)
	}

	db.Logger.Info("Initialized SnapshotDBHandler")
	return h, nil
}

// CreateTables creates the 'hr_snapshots' and 'hr_chunks' tables if they do not exist.
func (h *SnapshotDBHandler) CreateTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_snapshot();`)
	if err != nil {
		return err
	}

	h.db.Logger.Info("Checked/created tables hr_snapshots and hr_chunks")
	return nil
}

// Save replaces the stored snapshot in one transaction. Readers see either the
// old or the new snapshot, never a mix.
func (h *SnapshotDBHandler) Save(ctx context.Context, snapshot *index.Snapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", model.ErrIngestionIO, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`SELECT insert_snapshot($1, $2, $3, $4, $5);`,
		snapshot.BuildID,
		snapshot.Model,
		snapshot.Index.Dim(),
		snapshot.Len(),
		snapshot.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert snapshot: %v", model.ErrIngestionIO, err)
	}

	if err := copyChunks(ctx, tx, snapshot); err != nil {
		return fmt.Errorf("%w: copy chunks: %v", model.ErrIngestionIO, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit snapshot: %v", model.ErrIngestionIO, err)
	}

	h.db.Logger.Info("Saved snapshot",
		slog.String("build_id", snapshot.BuildID.String()),
		slog.Int("records", snapshot.Len()),
	)
	return nil
}

func copyChunks(ctx context.Context, tx *sql.Tx, snapshot *index.Snapshot) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("hr_chunks",
		"build_id", "ordinal", "source", "kind", "text", "metadata", "embedding",
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range snapshot.Records {
		metadata, err := r.Metadata.Marshal()
		if err != nil {
			return helper.NewError("marshal metadata", err)
		}
		_, err = stmt.ExecContext(ctx,
			snapshot.BuildID.String(),
			r.Ordinal,
			r.Source,
			string(r.Kind),
			r.Text,
			string(metadata),
			pgvector.NewVector(snapshot.Index.Vector(r.Ordinal)),
		)
		if err != nil {
			return helper.NewError("copy row", err)
		}
	}

	_, err = stmt.ExecContext(ctx)
	return err
}

// Load reads the current snapshot. An empty database is model.ErrNotFound,
// rows that disagree with the snapshot header are model.ErrCorruptState.
func (h *SnapshotDBHandler) Load(ctx context.Context) (*index.Snapshot, error) {
	var (
		snapshot      index.Snapshot
		dim           int
		count         int
		snapshotCount int64
	)
	err := h.db.Instance.QueryRowContext(ctx, `SELECT * FROM select_current_snapshot();`).Scan(
		&snapshot.BuildID,
		&snapshot.Model,
		&dim,
		&count,
		&snapshot.CreatedAt,
		&snapshotCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no snapshot stored in database %s", model.ErrNotFound, h.db.Name)
	}
	if err != nil {
		return nil, helper.NewError("select snapshot", err)
	}
	if snapshotCount != 1 {
		return nil, fmt.Errorf("%w: %d snapshots stored, expected one", model.ErrCorruptState, snapshotCount)
	}
	snapshot.CreatedAt = snapshot.CreatedAt.UTC()

	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_snapshot_chunks($1);`, snapshot.BuildID)
	if err != nil {
		return nil, helper.NewError("query chunks", err)
	}
	defer rows.Close()

	snapshot.Index = index.NewFlat(dim)
	snapshot.Records = make([]model.Record, 0, count)
	for rows.Next() {
		var (
			record    model.Record
			kind      string
			embedding pgvector.Vector
		)
		err := rows.Scan(
			&record.Ordinal,
			&record.Source,
			&kind,
			&record.Text,
			&record.Metadata,
			&embedding,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		record.Kind = model.ContentKind(kind)
		if len(record.Metadata) == 0 {
			record.Metadata = nil
		}

		if err := snapshot.Index.Add(embedding.Slice()); err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %v", model.ErrCorruptState, record.Ordinal, err)
		}
		snapshot.Records = append(snapshot.Records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("rows", err)
	}

	if len(snapshot.Records) != count {
		return nil, fmt.Errorf("%w: snapshot %s expects %d chunks but %d are stored", model.ErrCorruptState, snapshot.BuildID, count, len(snapshot.Records))
	}
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Current returns the build id of the stored snapshot. An empty database is model.ErrNotFound.
func (h *SnapshotDBHandler) Current(ctx context.Context) (uuid.UUID, error) {
	var buildID uuid.UUID
	err := h.db.Instance.QueryRowContext(ctx, `SELECT output_build_id FROM select_current_snapshot();`).Scan(&buildID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("%w: no snapshot stored in database %s", model.ErrNotFound, h.db.Name)
	}
	if err != nil {
		return uuid.Nil, helper.NewError("select snapshot", err)
	}
	return buildID, nil
}

// DeleteAll removes every stored snapshot.
func (h *SnapshotDBHandler) DeleteAll(ctx context.Context) error {
	_, err := h.db.Instance.ExecContext(ctx, `SELECT delete_snapshots();`)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

var _ index.Store = (*SnapshotDBHandler)(nil)
