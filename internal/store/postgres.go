// Package store persists investigation cases and the tagged-address side
// table to PostgreSQL: pgxpool connect/ping, a schema.sql loaded once at
// startup, and per-row upserts.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rawblock/wallet-forensics/pkg/models"
)

// PostgresStore is the durable side of investigation state: the
// orchestrator's in-memory Investigation map is the source of truth while
// a run is active, and this is where a finished or failed run's state
// lands for later retrieval across process restarts.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect opens a pgxpool against connStr and verifies it with a ping.
func Connect(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	log.Println("[store] connected to PostgreSQL")
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes schema.sql.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	schemaBytes, err := os.ReadFile("internal/store/schema.sql")
	if err != nil {
		return fmt.Errorf("store: read schema: %w", err)
	}
	if _, err := s.pool.Exec(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}
	log.Println("[store] schema initialized")
	return nil
}

// CaseRecord is one investigation's persisted state.
type CaseRecord struct {
	ID            string
	TargetAddress string
	Profile       string
	Stage         string
	FinalScore    *float64
	RiskLevel     string
	Report        *models.Report
	Error         string
}

// UpsertCase inserts or updates one investigation's row, keyed by ID.
func (s *PostgresStore) UpsertCase(ctx context.Context, rec CaseRecord) error {
	var reportJSON []byte
	if rec.Report != nil {
		var err error
		reportJSON, err = json.Marshal(rec.Report)
		if err != nil {
			return fmt.Errorf("store: marshal report: %w", err)
		}
	}

	sql := `
		INSERT INTO investigations (id, target_address, profile, stage, final_score, risk_level, report, error, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (id) DO UPDATE SET
			stage = EXCLUDED.stage,
			final_score = EXCLUDED.final_score,
			risk_level = EXCLUDED.risk_level,
			report = EXCLUDED.report,
			error = EXCLUDED.error,
			updated_at = NOW();
	`
	_, err := s.pool.Exec(ctx, sql, rec.ID, rec.TargetAddress, rec.Profile, rec.Stage,
		rec.FinalScore, rec.RiskLevel, reportJSON, nullIfEmpty(rec.Error))
	if err != nil {
		return fmt.Errorf("store: upsert case: %w", err)
	}
	return nil
}

// GetCase loads one investigation's persisted state by ID.
func (s *PostgresStore) GetCase(ctx context.Context, id string) (*CaseRecord, error) {
	sql := `
		SELECT id, target_address, profile, stage, final_score, risk_level, report, error
		FROM investigations WHERE id = $1;
	`
	row := s.pool.QueryRow(ctx, sql, id)

	var rec CaseRecord
	var finalScore *float64
	var riskLevel, errMsg *string
	var reportJSON []byte
	if err := row.Scan(&rec.ID, &rec.TargetAddress, &rec.Profile, &rec.Stage, &finalScore, &riskLevel, &reportJSON, &errMsg); err != nil {
		return nil, fmt.Errorf("store: get case: %w", err)
	}
	rec.FinalScore = finalScore
	if riskLevel != nil {
		rec.RiskLevel = *riskLevel
	}
	if errMsg != nil {
		rec.Error = *errMsg
	}
	if len(reportJSON) > 0 {
		var report models.Report
		if err := json.Unmarshal(reportJSON, &report); err != nil {
			return nil, fmt.Errorf("store: unmarshal report: %w", err)
		}
		rec.Report = &report
	}
	return &rec, nil
}

// ListCasesByAddress returns every investigation previously run against
// address, most recent first.
func (s *PostgresStore) ListCasesByAddress(ctx context.Context, address string, limit int) ([]CaseRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	sql := `
		SELECT id, target_address, profile, stage, final_score, risk_level, error
		FROM investigations WHERE target_address = $1
		ORDER BY created_at DESC LIMIT $2;
	`
	rows, err := s.pool.Query(ctx, sql, address, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list cases: %w", err)
	}
	defer rows.Close()

	var out []CaseRecord
	for rows.Next() {
		var rec CaseRecord
		var finalScore *float64
		var riskLevel, errMsg *string
		if err := rows.Scan(&rec.ID, &rec.TargetAddress, &rec.Profile, &rec.Stage, &finalScore, &riskLevel, &errMsg); err != nil {
			return nil, fmt.Errorf("store: scan case: %w", err)
		}
		rec.FinalScore = finalScore
		if riskLevel != nil {
			rec.RiskLevel = *riskLevel
		}
		if errMsg != nil {
			rec.Error = *errMsg
		}
		out = append(out, rec)
	}
	return out, nil
}

// UpsertTaggedAddress persists one integration catalog entry so it
// survives restarts independent of internal/catalog's own on-disk cache.
func (s *PostgresStore) UpsertTaggedAddress(ctx context.Context, e models.ServiceEndpoint, source string) error {
	metaJSON, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("store: marshal metadata: %w", err)
	}
	sql := `
		INSERT INTO tagged_addresses (address, service_type, service_name, confidence, last_verified, metadata, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (address) DO UPDATE SET
			service_type = EXCLUDED.service_type,
			service_name = EXCLUDED.service_name,
			confidence = EXCLUDED.confidence,
			last_verified = EXCLUDED.last_verified,
			metadata = EXCLUDED.metadata,
			source = EXCLUDED.source;
	`
	_, err = s.pool.Exec(ctx, sql, e.Address, string(e.Type), e.Name, e.Confidence, e.LastVerified, metaJSON, source)
	if err != nil {
		return fmt.Errorf("store: upsert tagged address: %w", err)
	}
	return nil
}

// ListTaggedAddresses returns the full persisted tagged-address table.
func (s *PostgresStore) ListTaggedAddresses(ctx context.Context) ([]models.ServiceEndpoint, error) {
	sql := `SELECT address, service_type, service_name, confidence, last_verified, metadata FROM tagged_addresses;`
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("store: list tagged addresses: %w", err)
	}
	defer rows.Close()

	var out []models.ServiceEndpoint
	for rows.Next() {
		var e models.ServiceEndpoint
		var serviceType string
		var metaJSON []byte
		if err := rows.Scan(&e.Address, &serviceType, &e.Name, &e.Confidence, &e.LastVerified, &metaJSON); err != nil {
			return nil, fmt.Errorf("store: scan tagged address: %w", err)
		}
		e.Type = models.ServiceType(serviceType)
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &e.Metadata); err != nil {
				return nil, fmt.Errorf("store: unmarshal metadata: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// GetPool exposes the connection pool for callers that need a direct
// query.
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
