// internal/store/weights.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	commonerrors "matchmaking-workers/internal/common/errors"
	"matchmaking-workers/internal/common/logger"
	"matchmaking-workers/internal/models"
	"matchmaking-workers/pkg/weights"

	"github.com/goccy/go-json"
)

// WeightsStore resolves weights profiles. Lookups go Redis, then the
// weights_profiles table, then the weights file, then the built-in default.
type WeightsStore struct {
	db             *sql.DB
	cache          *Cache
	file           *weights.File
	defaultPersona string
	log            logger.Logger
}

type WeightsStoreOptions struct {
	File           *weights.File
	DefaultPersona string
}

func NewWeightsStore(db *sql.DB, cache *Cache, opts WeightsStoreOptions, log logger.Logger) *WeightsStore {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if opts.DefaultPersona == "" {
		opts.DefaultPersona = models.DefaultPersona
	}
	return &WeightsStore{
		db:             db,
		cache:          cache,
		file:           opts.File,
		defaultPersona: opts.DefaultPersona,
		log:            log,
	}
}

// Get returns the profile with the given id. Unknown ids wrap
// errors.ErrWeightsNotFound.
func (s *WeightsStore) Get(ctx context.Context, id string) (*models.WeightsProfile, error) {
	p, err := s.lookup(ctx, "id", id,
		`SELECT document FROM weights_profiles WHERE id = $1`)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("weights profile %q: %w", id, commonerrors.ErrWeightsNotFound)
	}
	return p, nil
}

// ByPersona returns the active profile for persona. Unknown personas fall
// back to the default persona.
func (s *WeightsStore) ByPersona(ctx context.Context, persona string) (*models.WeightsProfile, error) {
	if persona == "" {
		persona = s.defaultPersona
	}
	p, err := s.lookup(ctx, "persona", persona,
		`SELECT document FROM weights_profiles WHERE persona = $1 AND active ORDER BY updated_at DESC LIMIT 1`)
	if err != nil || p != nil {
		return p, err
	}

	if !strings.EqualFold(persona, s.defaultPersona) {
		s.log.Warn("no weights for persona, using default", map[string]interface{}{
			"persona":        persona,
			"defaultPersona": s.defaultPersona,
		})
		return s.ByPersona(ctx, s.defaultPersona)
	}
	return models.DefaultWeightsProfile(), nil
}

// Resolve picks a profile from the usual job inputs: an explicit id wins,
// then the persona, then the default persona.
func (s *WeightsStore) Resolve(ctx context.Context, id, persona string) (*models.WeightsProfile, error) {
	if id != "" {
		return s.Get(ctx, id)
	}
	return s.ByPersona(ctx, persona)
}

// lookup returns (nil, nil) when no tier knows key.
func (s *WeightsStore) lookup(ctx context.Context, kind, key, query string) (*models.WeightsProfile, error) {
	cacheKey := "weights:" + kind + ":" + strings.ToLower(key)

	var cached models.WeightsProfile
	if s.cache.get(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	if s.db != nil {
		var doc []byte
		err := s.db.QueryRowContext(ctx, query, key).Scan(&doc)
		switch {
		case err == nil:
			var p models.WeightsProfile
			if err := json.Unmarshal(doc, &p); err != nil {
				return nil, commonerrors.NewWeightsInvalidError(fmt.Sprintf("%s %q: %v", kind, key, err))
			}
			if err := weights.ValidateProfile(&p); err != nil {
				return nil, commonerrors.NewWeightsInvalidError(fmt.Sprintf("%s %q: %v", kind, key, err))
			}
			s.cache.set(ctx, cacheKey, &p)
			return &p, nil
		case errors.Is(err, sql.ErrNoRows):
		default:
			s.log.Warn("weights query failed, trying weights file", map[string]interface{}{
				kind:    key,
				"error": err,
			})
		}
	}

	if p, ok := s.file.Find(key); ok {
		return p, nil
	}
	if strings.EqualFold(key, models.DefaultPersona) {
		return models.DefaultWeightsProfile(), nil
	}
	return nil, nil
}
