// internal/store/profiles.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	commonerrors "matchmaking-workers/internal/common/errors"
	"matchmaking-workers/internal/common/logger"
	"matchmaking-workers/internal/models"

	"github.com/lib/pq"
)

const profileColumns = `id, name, COALESCE(description, ''), COALESCE(country, ''), COALESCE(city, ''),
	COALESCE(type, ''), COALESCE(size, ''), COALESCE(stage, ''),
	industry, platforms, technologies, markets, capabilities, needs,
	employees, founded_year, revenue, last_funding_amount, last_funding_date,
	COALESCE(pitch, ''), COALESCE(looking_for, ''), COALESCE(source, ''), created_at, updated_at`

// ProfileStore loads profiles from the profiles table with a Redis
// read-through cache in front.
type ProfileStore struct {
	db    *sql.DB
	cache *Cache
	log   logger.Logger
}

func NewProfileStore(db *sql.DB, cache *Cache, log logger.Logger) *ProfileStore {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &ProfileStore{db: db, cache: cache, log: log}
}

func profileKey(id string) string { return "profile:" + id }

// Get returns one profile. A missing row wraps errors.ErrProfileNotFound.
func (s *ProfileStore) Get(ctx context.Context, id string) (*models.Profile, error) {
	var cached models.Profile
	if s.cache.get(ctx, profileKey(id), &cached) {
		return &cached, nil
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", id, commonerrors.ErrProfileNotFound)
	}
	if err != nil {
		return nil, queryError(ctx, err)
	}

	s.cache.set(ctx, profileKey(id), p)
	return p, nil
}

// GetMany returns the profiles for ids in request order, skipping duplicates.
// Ids with no row are returned in missing.
func (s *ProfileStore) GetMany(ctx context.Context, ids []string) (found []*models.Profile, missing []string, err error) {
	byID := make(map[string]*models.Profile, len(ids))
	var toLoad []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		var cached models.Profile
		if s.cache.get(ctx, profileKey(id), &cached) {
			byID[id] = &cached
			continue
		}
		toLoad = append(toLoad, id)
	}

	if len(toLoad) > 0 {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+profileColumns+` FROM profiles WHERE id = ANY($1)`, pq.Array(toLoad))
		if err != nil {
			return nil, nil, queryError(ctx, err)
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanProfile(rows)
			if err != nil {
				return nil, nil, queryError(ctx, err)
			}
			byID[p.ID] = p
			s.cache.set(ctx, profileKey(p.ID), p)
		}
		if err := rows.Err(); err != nil {
			return nil, nil, queryError(ctx, err)
		}
	}

	found = make([]*models.Profile, 0, len(byID))
	for _, id := range ids {
		if !seen[id] {
			continue
		}
		seen[id] = false
		if p, ok := byID[id]; ok {
			found = append(found, p)
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		s.log.Debug("profiles not found", map[string]interface{}{"missing": missing})
	}
	return found, missing, nil
}

// TextDocuments returns up to limit non-empty free-text fields from the most
// recently updated profiles, for seeding the engine's IDF corpus.
func (s *ProfileStore) TextDocuments(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5000
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(description, ''), COALESCE(pitch, ''), COALESCE(looking_for, '')
		FROM profiles ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, queryError(ctx, err)
	}
	defer rows.Close()

	var docs []string
	for rows.Next() {
		var description, pitch, lookingFor string
		if err := rows.Scan(&description, &pitch, &lookingFor); err != nil {
			return nil, queryError(ctx, err)
		}
		for _, d := range []string{description, pitch, lookingFor} {
			if models.HasText(d) {
				docs = append(docs, d)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(ctx, err)
	}
	return docs, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row scanner) (*models.Profile, error) {
	var (
		p                    models.Profile
		employees, founded   sql.NullInt64
		revenue, fundingAmt  sql.NullFloat64
		fundingDate          sql.NullTime
		createdAt, updatedAt sql.NullTime
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Country, &p.City,
		&p.Type, &p.Size, &p.Stage,
		pq.Array(&p.Industry), pq.Array(&p.Platforms), pq.Array(&p.Technologies),
		pq.Array(&p.Markets), pq.Array(&p.Capabilities), pq.Array(&p.Needs),
		&employees, &founded, &revenue, &fundingAmt, &fundingDate,
		&p.Pitch, &p.LookingFor, &p.Source, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if employees.Valid {
		p.Employees = models.IntPtr(int(employees.Int64))
	}
	if founded.Valid {
		p.FoundedYear = models.IntPtr(int(founded.Int64))
	}
	if revenue.Valid {
		p.Revenue = models.FloatPtr(revenue.Float64)
	}
	if fundingAmt.Valid {
		p.LastFundingAmount = models.FloatPtr(fundingAmt.Float64)
	}
	if fundingDate.Valid {
		p.LastFundingDate = models.TimePtr(fundingDate.Time.UTC())
	}
	p.CreatedAt = nullTime(createdAt)
	p.UpdatedAt = nullTime(updatedAt)
	return &p, nil
}

func nullTime(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}

func queryError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return commonerrors.NewQueryTimeoutError("profiles")
	}
	return commonerrors.NewQueryExecutionFailedError("profiles", err)
}
