package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type databaseRegistry struct {
	cfg  *Config
	pool *pgxpool.Pool
}

// NewDatabaseRegistry creates a postgres backed registry on the supplied
// connection pool, creating the records table if it does not exist.
func NewDatabaseRegistry(ctx context.Context, cfg *Config, pool *pgxpool.Pool) (RecordRegistry, error) {
	ddl := `CREATE TABLE IF NOT EXISTS records (
		tenant TEXT NOT NULL,
		kind TEXT NOT NULL,
		identity TEXT NOT NULL,
		fields JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (tenant, identity)
	);`

	_, err := pool.Exec(ctx, ddl)
	if err != nil {
		return nil, fmt.Errorf("failed to create records table: %w", err)
	}

	return &databaseRegistry{cfg: cfg, pool: pool}, nil
}

func (d *databaseRegistry) Create(ctx context.Context, tenant, kind string, fields map[string]any) (*Record, error) {
	if err := d.cfg.allows(tenant, kind); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	record := &Record{
		Identity:  newIdentity(),
		Kind:      kind,
		Fields:    copyFields(fields),
		CreatedAt: now,
		UpdatedAt: now,
	}

	body, err := json.Marshal(record.Fields)
	if err != nil {
		return nil, NewBadRequestDataError(fmt.Sprintf("unstorable record fields: %s", err.Error()))
	}

	sql := `INSERT INTO records (tenant, kind, identity, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6);`

	_, err = d.pool.Exec(ctx, sql, tenant, kind, record.Identity, body, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (d *databaseRegistry) Retrieve(ctx context.Context, tenant, kind, identity string) (*Record, error) {
	if err := d.cfg.allows(tenant, kind); err != nil {
		return nil, err
	}

	sql := `SELECT fields, created_at, updated_at FROM records
		WHERE tenant=$1 AND kind=$2 AND identity=$3;`

	record := &Record{Identity: identity, Kind: kind}

	var body []byte
	err := d.pool.QueryRow(ctx, sql, tenant, kind, identity).Scan(&body, &record.CreatedAt, &record.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NewNotFoundError(
			fmt.Sprintf("no record of kind %s with identity %s", kind, identity),
		)
	}
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(body, &record.Fields)
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (d *databaseRegistry) Update(ctx context.Context, tenant, kind, identity string, set map[string]any, remove []string) (*Record, error) {
	if err := d.cfg.allows(tenant, kind); err != nil {
		return nil, err
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	sql := `SELECT fields, created_at FROM records
		WHERE tenant=$1 AND kind=$2 AND identity=$3 FOR UPDATE;`

	record := &Record{Identity: identity, Kind: kind}

	var body []byte
	err = tx.QueryRow(ctx, sql, tenant, kind, identity).Scan(&body, &record.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NewNotFoundError(
			fmt.Sprintf("no record of kind %s with identity %s", kind, identity),
		)
	}
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(body, &record.Fields)
	if err != nil {
		return nil, err
	}

	for name, value := range set {
		record.Fields[name] = value
	}

	for _, name := range remove {
		delete(record.Fields, name)
	}

	record.UpdatedAt = time.Now().UTC()

	body, err = json.Marshal(record.Fields)
	if err != nil {
		return nil, NewBadRequestDataError(fmt.Sprintf("unstorable record fields: %s", err.Error()))
	}

	sql = `UPDATE records SET fields=$4, updated_at=$5
		WHERE tenant=$1 AND kind=$2 AND identity=$3;`

	_, err = tx.Exec(ctx, sql, tenant, kind, identity, body, record.UpdatedAt)
	if err != nil {
		return nil, err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (d *databaseRegistry) Delete(ctx context.Context, tenant, kind, identity string) error {
	if err := d.cfg.allows(tenant, kind); err != nil {
		return err
	}

	sql := `DELETE FROM records WHERE tenant=$1 AND kind=$2 AND identity=$3;`

	tag, err := d.pool.Exec(ctx, sql, tenant, kind, identity)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return NewNotFoundError(
			fmt.Sprintf("no record of kind %s with identity %s", kind, identity),
		)
	}

	return nil
}
