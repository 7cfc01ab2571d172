// Package postgres provides the Postgres-backed lead store.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/pagespeed-leads/internal/lead"
)

//go:embed schema.sql
var schemaSQL string

// LeadStoreConfig controls the Postgres connection pool used for lead rows.
type LeadStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pool is the subset of *pgxpool.Pool the store uses. Each call checks out one
// connection and returns it to the pool before handing back control, including
// when the statement fails.
type pool interface {
	QueryRow(context.Context, string, ...any) pgx.Row
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Ping(context.Context) error
	Close()
}

// LeadStore reads and writes the leads table.
type LeadStore struct {
	pool pool
}

// NewLeadStore creates a Postgres-backed LeadStore using the provided config.
func NewLeadStore(ctx context.Context, cfg LeadStoreConfig) (*LeadStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	// Connections are established lazily on first checkout.
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &LeadStore{pool: p}, nil
}

// NewLeadStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewLeadStoreWithPool(p pool) (*LeadStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &LeadStore{pool: p}, nil
}

// Close releases the underlying pool resources.
func (s *LeadStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping verifies a connection can be checked out and used.
func (s *LeadStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Migrate creates the leads table and its indexes when they are missing.
func (s *LeadStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const leadColumns = "id, email, website_url, performance_score, accessibility_score, " +
	"best_practices_score, seo_score, analysis_data, continue_requested, submitted_at"

// CreateLead inserts a lead. Scores are stored on a 0-100 scale rounded to two
// decimals and returned rescaled to 0-1.
func (s *LeadStore) CreateLead(ctx context.Context, data lead.LeadData) (lead.Lead, error) {
	query := `
INSERT INTO leads (
	email,
	website_url,
	performance_score,
	accessibility_score,
	best_practices_score,
	seo_score,
	analysis_data
) VALUES (
	$1,$2,$3,$4,$5,$6,$7
)
RETURNING ` + leadColumns

	row := s.pool.QueryRow(ctx, query,
		data.Email,
		data.WebsiteURL,
		toStoredScore(data.Scores.Performance),
		toStoredScore(data.Scores.Accessibility),
		toStoredScore(data.Scores.BestPractices),
		toStoredScore(data.Scores.SEO),
		toStoredPayload(data.AnalysisData),
	)
	created, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return lead.Lead{}, lead.StorageError("create_lead", err, "failed to create lead, no rows returned")
	}
	if err != nil {
		return lead.Lead{}, lead.StorageError("create_lead", err, "insert lead")
	}
	return created, nil
}

// UpdateContinueRequested sets continue_requested on lead id. It reports
// whether exactly one row matched.
func (s *LeadStore) UpdateContinueRequested(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE leads SET continue_requested = TRUE WHERE id = $1`, id)
	if err != nil {
		return false, lead.StorageError("update_continue_requested", err, "update lead %d", id)
	}
	return tag.RowsAffected() == 1, nil
}

// FindLeadByID loads lead id, returning nil when it does not exist.
func (s *LeadStore) FindLeadByID(ctx context.Context, id int64) (*lead.Lead, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	found, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, lead.StorageError("find_lead", err, "select lead %d", id)
	}
	return &found, nil
}

// ListLeads returns leads newest first, optionally filtered on the
// continuation flag.
func (s *LeadStore) ListLeads(ctx context.Context, filter lead.ListFilter) ([]lead.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads`
	args := make([]any, 0, 3)
	if filter.ContinueRequested != nil {
		args = append(args, *filter.ContinueRequested)
		query += ` WHERE continue_requested = $1`
	}
	query += fmt.Sprintf(` ORDER BY submitted_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, lead.StorageError("list_leads", err, "select leads")
	}
	defer rows.Close()

	out := make([]lead.Lead, 0, filter.Limit)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, lead.StorageError("list_leads", err, "select leads")
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, lead.StorageError("list_leads", err, "iterate leads")
	}
	return out, nil
}

func scanLead(row pgx.Row) (lead.Lead, error) {
	var l lead.Lead
	var perf, access, practices, seo scoreColumn
	var analysis []byte
	err := row.Scan(
		&l.ID,
		&l.Email,
		&l.WebsiteURL,
		&perf,
		&access,
		&practices,
		&seo,
		&analysis,
		&l.ContinueRequested,
		&l.SubmittedAt,
	)
	if err != nil {
		return lead.Lead{}, fmt.Errorf("scan lead: %w", err)
	}
	l.PerformanceScore = perf.fraction()
	l.AccessibilityScore = access.fraction()
	l.BestPracticesScore = practices.fraction()
	l.SEOScore = seo.fraction()
	if len(analysis) > 0 {
		l.AnalysisData = json.RawMessage(analysis)
	}
	return l, nil
}

// toStoredScore converts a 0-1 score to the NUMERIC(5,2) 0-100 column value.
func toStoredScore(score *float64) any {
	if score == nil {
		return nil
	}
	return math.Round(*score*10000) / 100
}

func toStoredPayload(payload json.RawMessage) any {
	if len(payload) == 0 {
		return nil
	}
	return []byte(payload)
}

// scoreColumn scans a nullable NUMERIC score. The driver may hand numerics
// over as text, so strings are accepted alongside floats.
type scoreColumn struct {
	value float64
	valid bool
}

func (c *scoreColumn) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = scoreColumn{}
		return nil
	case float64:
		*c = scoreColumn{value: v, valid: true}
		return nil
	case float32:
		*c = scoreColumn{value: float64(v), valid: true}
		return nil
	case int64:
		*c = scoreColumn{value: float64(v), valid: true}
		return nil
	case string:
		return c.parse(v)
	case []byte:
		return c.parse(string(v))
	default:
		return fmt.Errorf("unsupported score type %T", src)
	}
}

func (c *scoreColumn) parse(s string) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse score %q: %w", s, err)
	}
	*c = scoreColumn{value: f, valid: true}
	return nil
}

// fraction rescales the 0-100 column value back to 0-1.
func (c scoreColumn) fraction() *float64 {
	if !c.valid {
		return nil
	}
	f := c.value / 100
	return &f
}
