package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"company-risk-poc/registry"
	"company-risk-poc/risk"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store is the Postgres persistence layer: location-type overrides, app
// config, registry cache, address images and assessments.
type Store struct {
	db *sqlx.DB
}

func Open(connStr string) (*Store, error) {
	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS location_type_overrides (
		activity_code TEXT PRIMARY KEY,
		location_type TEXT NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS app_config (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS registry_cache (
		cnpj       TEXT PRIMARY KEY,
		payload    JSONB NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS companies (
		cnpj       TEXT PRIMARY KEY,
		email      TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS address_images (
		cnpj       TEXT PRIMARY KEY,
		image      BYTEA NOT NULL,
		source     TEXT NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS assessments (
		id          BIGSERIAL PRIMARY KEY,
		cnpj        TEXT NOT NULL,
		payload     JSONB NOT NULL,
		score       INT NOT NULL,
		category    TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS assessments_cnpj_idx ON assessments (cnpj, created_at DESC)`,
}

// Migrate creates the tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

//
// LOCATION-TYPE OVERRIDES
//

// LocationTypeOverride looks up a persisted per-code override, trying the
// exact cleaned code first and then its 4-digit prefix.
func (s *Store) LocationTypeOverride(ctx context.Context, code string) (risk.LocationType, bool) {
	clean := risk.CleanActivityCode(code)
	if clean == "" {
		return risk.LocationUnknown, false
	}

	keys := []string{clean}
	if len(clean) > 4 {
		keys = append(keys, clean[:4])
	}

	for _, k := range keys {
		var t string
		err := s.db.GetContext(ctx, &t,
			`SELECT location_type FROM location_type_overrides WHERE activity_code = $1`, k)
		if err == nil {
			return risk.LocationType(t), true
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return risk.LocationUnknown, false
		}
	}
	return risk.LocationUnknown, false
}

// SetLocationTypeOverride upserts an override.
func (s *Store) SetLocationTypeOverride(ctx context.Context, code string, t risk.LocationType) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO location_type_overrides (activity_code, location_type, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (activity_code) DO UPDATE SET location_type = $2, updated_at = now()
	`, risk.CleanActivityCode(code), string(t))
	return err
}

//
// APP CONFIG
//

const (
	configKeyWhoisMinDays        = "whois_min_days"
	configKeyNonCorporateDomains = "non_corporate_domains"
)

func (s *Store) configValue(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.GetContext(ctx, &v, `SELECT value FROM app_config WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}

// WhoisMinDays returns the configured registrar-age threshold, or fallback
// when unset or unreadable.
func (s *Store) WhoisMinDays(ctx context.Context, fallback int) int {
	v, err := s.configValue(ctx, configKeyWhoisMinDays)
	if err != nil {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// NonCorporateDomains returns the configured free-mail domain list
// (comma-separated in config), or nil when unset so callers fall back to the
// built-in default.
func (s *Store) NonCorporateDomains(ctx context.Context) []string {
	v, err := s.configValue(ctx, configKeyNonCorporateDomains)
	if err != nil {
		return nil
	}
	var out []string
	for _, d := range strings.Split(v, ",") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, strings.ToLower(d))
		}
	}
	return out
}

// SetConfig upserts a config entry.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_config (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = now()
	`, key, value)
	return err
}

//
// REGISTRY CACHE
//

// CachedCompany returns a previously fetched registry record.
func (s *Store) CachedCompany(ctx context.Context, cnpj string) (registry.Company, error) {
	var payload []byte
	err := s.db.GetContext(ctx, &payload,
		`SELECT payload FROM registry_cache WHERE cnpj = $1`, registry.CleanCNPJ(cnpj))
	if errors.Is(err, sql.ErrNoRows) {
		return registry.Company{}, ErrNotFound
	}
	if err != nil {
		return registry.Company{}, err
	}
	var c registry.Company
	if err := json.Unmarshal(payload, &c); err != nil {
		return registry.Company{}, fmt.Errorf("decode cached company: %w", err)
	}
	return c, nil
}

// SaveCompany caches a registry record.
func (s *Store) SaveCompany(ctx context.Context, c registry.Company) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO registry_cache (cnpj, payload, fetched_at) VALUES ($1, $2, now())
		ON CONFLICT (cnpj) DO UPDATE SET payload = $2, fetched_at = now()
	`, c.CNPJ, payload)
	return err
}

//
// REGISTERED COMPANIES (the email the entity itself registered with)
//

// RegisteredEmail returns the email the entity supplied at onboarding, used
// as the typosquatting comparison subject.
func (s *Store) RegisteredEmail(ctx context.Context, cnpj string) (string, error) {
	var email sql.NullString
	err := s.db.GetContext(ctx, &email,
		`SELECT email FROM companies WHERE cnpj = $1`, registry.CleanCNPJ(cnpj))
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return email.String, nil
}

// SaveRegisteredEmail records the onboarding email for an entity.
func (s *Store) SaveRegisteredEmail(ctx context.Context, cnpj, email string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO companies (cnpj, email) VALUES ($1, $2)
		ON CONFLICT (cnpj) DO UPDATE SET email = $2
	`, registry.CleanCNPJ(cnpj), strings.ToLower(strings.TrimSpace(email)))
	return err
}

//
// ADDRESS IMAGES
//

// AddressImage returns the stored street-level photo for an entity.
func (s *Store) AddressImage(ctx context.Context, cnpj string) ([]byte, error) {
	var img []byte
	err := s.db.GetContext(ctx, &img,
		`SELECT image FROM address_images WHERE cnpj = $1`, registry.CleanCNPJ(cnpj))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return img, err
}

// SaveAddressImage stores the photo used for an assessment.
func (s *Store) SaveAddressImage(ctx context.Context, cnpj string, image []byte, source string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO address_images (cnpj, image, source, fetched_at) VALUES ($1, $2, $3, now())
		ON CONFLICT (cnpj) DO UPDATE SET image = $2, source = $3, fetched_at = now()
	`, registry.CleanCNPJ(cnpj), image, source)
	return err
}

//
// ASSESSMENTS
//

// StoredAssessment is a persisted assessment row.
type StoredAssessment struct {
	ID        int64           `db:"id" json:"id"`
	CNPJ      string          `db:"cnpj" json:"cnpj"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	Score     int             `db:"score" json:"score"`
	Category  string          `db:"category" json:"category"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// SaveAssessment appends a new assessment; prior rows for the same CNPJ are
// kept as history, the latest supersedes them.
func (s *Store) SaveAssessment(ctx context.Context, cnpj string, payload any, score int, category risk.Category) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assessments (cnpj, payload, score, category) VALUES ($1, $2, $3, $4)
	`, registry.CleanCNPJ(cnpj), raw, score, string(category))
	return err
}

// LatestAssessment returns the most recent assessment for an entity.
func (s *Store) LatestAssessment(ctx context.Context, cnpj string) (StoredAssessment, error) {
	var out StoredAssessment
	err := s.db.GetContext(ctx, &out, `
		SELECT id, cnpj, payload, score, category, created_at
		FROM assessments WHERE cnpj = $1
		ORDER BY created_at DESC LIMIT 1
	`, registry.CleanCNPJ(cnpj))
	if errors.Is(err, sql.ErrNoRows) {
		return out, ErrNotFound
	}
	return out, err
}
