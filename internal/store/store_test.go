package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"
	"time"

	commonerrors "matchmaking-workers/internal/common/errors"
	"matchmaking-workers/internal/common/logger"
	"matchmaking-workers/internal/models"
	"matchmaking-workers/pkg/weights"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fixtures
// ==========================

var profileCols = []string{
	"id", "name", "description", "country", "city", "type", "size", "stage",
	"industry", "platforms", "technologies", "markets", "capabilities", "needs",
	"employees", "founded_year", "revenue", "last_funding_amount", "last_funding_date",
	"pitch", "looking_for", "source", "created_at", "updated_at",
}

var fundedAt = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func addProfileRow(rows *sqlmock.Rows, id, name string) *sqlmock.Rows {
	return rows.AddRow(
		id, name, "Payments for studios", "US", "Austin", "startup", "small", "seed",
		"{fintech,gaming}", "{ios,android}", "{go}", "{us}", "{payments}", "{publishing}",
		int64(12), int64(2019), 1.5e6, nil, fundedAt,
		"We build payment rails for indie studios", "", "crm", fundedAt, fundedAt,
	)
}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, NewCache(rdb, CacheOptions{Name: "test", TTL: time.Minute}, logger.NewTestLogger(t))
}

// ==========================
// ProfileStore
// ==========================

func TestProfileStore_Get(t *testing.T) {
	db, mock := setupMockDB(t)
	mr, cache := setupMiniredis(t)
	s := NewProfileStore(db, cache, logger.NewTestLogger(t))
	ctx := context.Background()

	mock.ExpectQuery(`FROM profiles WHERE id = \$1`).
		WithArgs("p1").
		WillReturnRows(addProfileRow(sqlmock.NewRows(profileCols), "p1", "Acme Pay"))

	p, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Pay", p.Name)
	assert.Equal(t, []string{"fintech", "gaming"}, p.Industry)
	assert.Equal(t, []string{"publishing"}, p.Needs)
	require.NotNil(t, p.Employees)
	assert.Equal(t, 12, *p.Employees)
	assert.Nil(t, p.LastFundingAmount)
	require.NotNil(t, p.LastFundingDate)
	assert.True(t, fundedAt.Equal(*p.LastFundingDate))
	assert.True(t, mr.Exists("matching:profile:p1"))

	// served from redis, no second query
	again, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p.Industry, again.Industry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileStore_GetErrors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(m sqlmock.Sqlmock)
		sentinel error
		code     commonerrors.ErrorCode
	}{
		{
			name: "not found",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`FROM profiles`).WillReturnRows(sqlmock.NewRows(profileCols))
			},
			sentinel: commonerrors.ErrProfileNotFound,
		},
		{
			name: "query failure",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`FROM profiles`).WillReturnError(stderrors.New("connection reset"))
			},
			code: commonerrors.ErrCodeQueryExecutionFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			tt.setup(mock)

			_, err := NewProfileStore(db, nil, nil).Get(context.Background(), "ghost")
			require.Error(t, err)
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			} else {
				assert.Equal(t, tt.code, commonerrors.FromError(err).Code)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestProfileStore_RedisDownFallsBackToPostgres(t *testing.T) {
	db, mock := setupMockDB(t)
	rdb, rmock := redismock.NewClientMock()
	rmock.ExpectGet("matching:profile:p1").SetErr(stderrors.New("dial tcp: connection refused"))

	s := NewProfileStore(db, NewCache(rdb, CacheOptions{Name: "test"}, nil), nil)
	mock.ExpectQuery(`FROM profiles WHERE id = \$1`).
		WillReturnRows(addProfileRow(sqlmock.NewRows(profileCols), "p1", "Acme Pay"))

	p, err := s.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileStore_GetMany(t *testing.T) {
	db, mock := setupMockDB(t)
	_, cache := setupMiniredis(t)
	s := NewProfileStore(db, cache, nil)
	ctx := context.Background()

	cache.set(ctx, profileKey("p2"), &models.Profile{ID: "p2", Name: "Cached Co"})

	mock.ExpectQuery(`FROM profiles WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(addProfileRow(sqlmock.NewRows(profileCols), "p1", "Acme Pay"))

	found, missing, err := s.GetMany(ctx, []string{"p1", "p2", "p1", "", "p3"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "p1", found[0].ID)
	assert.Equal(t, "Cached Co", found[1].Name)
	assert.Equal(t, []string{"p3"}, missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileStore_GetManyAllCached(t *testing.T) {
	db, mock := setupMockDB(t)
	_, cache := setupMiniredis(t)
	s := NewProfileStore(db, cache, nil)
	ctx := context.Background()
	cache.set(ctx, profileKey("p1"), &models.Profile{ID: "p1"})

	found, missing, err := s.GetMany(ctx, []string{"p1"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Empty(t, missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileStore_TextDocuments(t *testing.T) {
	db, mock := setupMockDB(t)
	s := NewProfileStore(db, nil, nil)

	mock.ExpectQuery(`FROM profiles ORDER BY updated_at DESC LIMIT \$1`).
		WithArgs(5000).
		WillReturnRows(sqlmock.NewRows([]string{"description", "pitch", "looking_for"}).
			AddRow("Payments for studios", "", "  ").
			AddRow("", "Indie publishing", "Seed investors"))

	docs, err := s.TextDocuments(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Payments for studios", "Indie publishing", "Seed investors"}, docs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Cache
// ==========================

func TestCache_BreakerOpensAfterFailures(t *testing.T) {
	rdb, rmock := redismock.NewClientMock()
	for i := 0; i < 3; i++ {
		rmock.ExpectGet("matching:profile:p1").SetErr(stderrors.New("i/o timeout"))
	}
	c := NewCache(rdb, CacheOptions{Name: "test", FailureThreshold: 3, OpenTimeout: time.Hour}, nil)

	var p models.Profile
	for i := 0; i < 5; i++ {
		assert.False(t, c.get(context.Background(), profileKey("p1"), &p))
	}
	assert.Equal(t, gobreaker.StateOpen, c.State())
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestCache_MissesDoNotTrip(t *testing.T) {
	rdb, rmock := redismock.NewClientMock()
	for i := 0; i < 4; i++ {
		rmock.ExpectGet("matching:profile:p1").RedisNil()
	}
	c := NewCache(rdb, CacheOptions{Name: "test", FailureThreshold: 2}, nil)

	var p models.Profile
	for i := 0; i < 4; i++ {
		assert.False(t, c.get(context.Background(), profileKey("p1"), &p))
	}
	assert.Equal(t, gobreaker.StateClosed, c.State())
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestCache_NilAndInvalidate(t *testing.T) {
	var c *Cache
	var p models.Profile
	assert.False(t, c.get(context.Background(), "x", &p))
	c.set(context.Background(), "x", p)
	assert.NoError(t, c.Invalidate(context.Background(), "x"))
	assert.Nil(t, NewCache(nil, CacheOptions{}, nil))

	mr, cache := setupMiniredis(t)
	cache.set(context.Background(), profileKey("p9"), &models.Profile{ID: "p9"})
	require.True(t, mr.Exists("matching:profile:p9"))
	require.NoError(t, cache.Invalidate(context.Background(), profileKey("p9")))
	assert.False(t, mr.Exists("matching:profile:p9"))
}

// ==========================
// WeightsStore
// ==========================

const investorDoc = `{"id":"investor-v2","persona":"investor","weights":{"industry":90,"stage":100},
"thresholds":{"minimumOverallScore":40,"minimumConfidence":0.3,"maximumResults":10}}`

func weightsFile() *weights.File {
	return &weights.File{Profiles: []models.WeightsProfile{
		{ID: "founder-v1", Persona: "startup-founder", Weights: map[string]float64{"capabilities_needs": 100}},
	}}
}

func TestWeightsStore_GetFromPostgres(t *testing.T) {
	db, mock := setupMockDB(t)
	mr, cache := setupMiniredis(t)
	s := NewWeightsStore(db, cache, WeightsStoreOptions{File: weightsFile()}, logger.NewTestLogger(t))

	mock.ExpectQuery(`FROM weights_profiles WHERE id = \$1`).
		WithArgs("investor-v2").
		WillReturnRows(sqlmock.NewRows([]string{"document"}).AddRow([]byte(investorDoc)))

	p, err := s.Get(context.Background(), "investor-v2")
	require.NoError(t, err)
	assert.Equal(t, 100.0, p.Weight(models.FieldStage))
	assert.Equal(t, 10, p.Thresholds.MaximumResults)
	assert.True(t, mr.Exists("matching:weights:id:investor-v2"))

	cached, err := s.Get(context.Background(), "investor-v2")
	require.NoError(t, err)
	assert.Equal(t, p.Weights, cached.Weights)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWeightsStore_Fallbacks(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(m sqlmock.Sqlmock)
		id      string
		wantID  string
		wantErr error
		code    commonerrors.ErrorCode
	}{
		{
			name:   "no row falls back to file",
			setup:  func(m sqlmock.Sqlmock) { m.ExpectQuery(`weights_profiles`).WillReturnRows(sqlmock.NewRows([]string{"document"})) },
			id:     "founder-v1",
			wantID: "founder-v1",
		},
		{
			name:   "db error falls back to file",
			setup:  func(m sqlmock.Sqlmock) { m.ExpectQuery(`weights_profiles`).WillReturnError(stderrors.New("too many connections")) },
			id:     "founder-v1",
			wantID: "founder-v1",
		},
		{
			name:   "built-in default",
			setup:  func(m sqlmock.Sqlmock) { m.ExpectQuery(`weights_profiles`).WillReturnRows(sqlmock.NewRows([]string{"document"})) },
			id:     "default",
			wantID: "default",
		},
		{
			name:    "unknown id",
			setup:   func(m sqlmock.Sqlmock) { m.ExpectQuery(`weights_profiles`).WillReturnRows(sqlmock.NewRows([]string{"document"})) },
			id:      "ghost",
			wantErr: commonerrors.ErrWeightsNotFound,
		},
		{
			name: "invalid document",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`weights_profiles`).WillReturnRows(
					sqlmock.NewRows([]string{"document"}).AddRow([]byte(`{"id":"bad","persona":"x","weights":{"industry":-5}}`)))
			},
			id:   "bad",
			code: commonerrors.ErrCodeWeightsInvalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			tt.setup(mock)
			s := NewWeightsStore(db, nil, WeightsStoreOptions{File: weightsFile()}, nil)

			p, err := s.Get(context.Background(), tt.id)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, commonerrors.ErrCodeWeightsNotFound, commonerrors.FromError(err).Code)
			case tt.code != "":
				require.Error(t, err)
				assert.Equal(t, tt.code, commonerrors.FromError(err).Code)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, p.ID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestWeightsStore_ByPersona(t *testing.T) {
	s := NewWeightsStore(nil, nil, WeightsStoreOptions{File: weightsFile()}, logger.NewTestLogger(t))
	ctx := context.Background()

	p, err := s.ByPersona(ctx, "startup-founder")
	require.NoError(t, err)
	assert.Equal(t, "founder-v1", p.ID)

	p, err = s.ByPersona(ctx, "astronaut")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPersona, p.Persona)

	p, err = s.ByPersona(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPersona, p.Persona)
}

func TestWeightsStore_ConfiguredDefaultPersona(t *testing.T) {
	s := NewWeightsStore(nil, nil, WeightsStoreOptions{File: weightsFile(), DefaultPersona: "startup-founder"}, nil)

	p, err := s.ByPersona(context.Background(), "astronaut")
	require.NoError(t, err)
	assert.Equal(t, "founder-v1", p.ID)
}

func TestWeightsStore_Resolve(t *testing.T) {
	s := NewWeightsStore(nil, nil, WeightsStoreOptions{File: weightsFile()}, nil)
	ctx := context.Background()

	p, err := s.Resolve(ctx, "founder-v1", "investor")
	require.NoError(t, err)
	assert.Equal(t, "founder-v1", p.ID)

	p, err = s.Resolve(ctx, "", "startup-founder")
	require.NoError(t, err)
	assert.Equal(t, "founder-v1", p.ID)

	_, err = s.Resolve(ctx, "nope", "")
	assert.ErrorIs(t, err, commonerrors.ErrWeightsNotFound)
}
