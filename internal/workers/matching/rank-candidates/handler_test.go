package rankcandidates

import (
	"context"
	"fmt"
	"testing"
	"time"

	"matchmaking-workers/internal/common/config"
	"matchmaking-workers/internal/common/errors"
	"matchmaking-workers/internal/common/logger"
	"matchmaking-workers/internal/models"
	"matchmaking-workers/internal/ranking"
	"matchmaking-workers/internal/signals"
	"matchmaking-workers/internal/workers/matching"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type mockProfiles struct {
	mock.Mock
}

func (m *mockProfiles) Get(ctx context.Context, id string) (*models.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *mockProfiles) GetMany(ctx context.Context, ids []string) ([]*models.Profile, []string, error) {
	args := m.Called(ctx, ids)
	found, _ := args.Get(0).([]*models.Profile)
	missing, _ := args.Get(1).([]string)
	return found, missing, args.Error(2)
}

type mockWeights struct {
	mock.Mock
}

func (m *mockWeights) Resolve(ctx context.Context, id, persona string) (*models.WeightsProfile, error) {
	args := m.Called(ctx, id, persona)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WeightsProfile), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

func profile(id string, industry ...string) *models.Profile {
	return &models.Profile{ID: id, Name: "Company " + id, Industry: industry}
}

// industryOnly scores purely on industry overlap and drops anything under 50.
func industryOnly() *models.WeightsProfile {
	return &models.WeightsProfile{
		ID:      "industry-v1",
		Persona: "investor",
		Weights: map[string]float64{models.FieldIndustry: 1},
		Thresholds: models.Thresholds{
			MinimumOverallScore: 50,
			MaximumResults:      10,
		},
	}
}

func newTestHandler(t *testing.T, profiles *mockProfiles, weights *mockWeights, maxCandidates int) *Handler {
	t.Helper()
	cfg := LoadConfig(config.WorkerConfig{Timeout: 5000}, config.MatchingConfig{MaxCandidates: maxCandidates})
	ranker := ranking.NewRanker(signals.NewEngine(), ranking.WithParallelism(2))
	return NewHandler(cfg, ranker, profiles, weights, nil, logger.NewTestLogger(t))
}

func candidateIDs(matches []models.Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.CandidateID
	}
	return out
}

// ==========================
// Execute Tests
// ==========================

func TestHandler_Execute_OrdersAndFilters(t *testing.T) {
	weights := new(mockWeights)
	weights.On("Resolve", mock.Anything, "industry-v1", "").Return(industryOnly(), nil)
	h := newTestHandler(t, new(mockProfiles), weights, 0)

	out, err := h.Execute(context.Background(), &Input{
		SourceProfile: profile("src", "gaming"),
		Candidates: []*models.Profile{
			profile("c3", "fintech"),
			profile("c2", "gaming", "fintech"),
			profile("c1", "Gaming"),
		},
		WeightsSelection: matching.WeightsSelection{WeightsProfileID: "industry-v1"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"c1", "c2"}, candidateIDs(out.Matches))
	assert.Equal(t, 100.0, out.Matches[0].OverallScore)
	assert.Equal(t, 50.0, out.Matches[1].OverallScore)
	assert.Equal(t, 3, out.CandidateCount)
	assert.Equal(t, 2, out.MatchCount)
	assert.Equal(t, "src", out.ProfileID)
	assert.Equal(t, "industry-v1", out.WeightsProfileID)
	assert.NotEmpty(t, out.RunID)
	weights.AssertExpectations(t)
}

func TestHandler_Execute_LimitOverride(t *testing.T) {
	weights := new(mockWeights)
	resolved := industryOnly()
	weights.On("Resolve", mock.Anything, "", "investor").Return(resolved, nil)
	h := newTestHandler(t, new(mockProfiles), weights, 0)

	out, err := h.Execute(context.Background(), &Input{
		SourceProfile:    profile("src", "gaming"),
		Candidates:       []*models.Profile{profile("c1", "gaming"), profile("c2", "gaming", "edtech")},
		Limit:            1,
		WeightsSelection: matching.WeightsSelection{Persona: "investor"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, candidateIDs(out.Matches))
	// the resolved profile is not mutated
	assert.Equal(t, 10, resolved.Thresholds.MaximumResults)
}

func TestHandler_Execute_LoadsCandidatesByID(t *testing.T) {
	profiles := new(mockProfiles)
	profiles.On("Get", mock.Anything, "src").Return(profile("src", "gaming"), nil)
	profiles.On("GetMany", mock.Anything, []string{"c1", "ghost"}).
		Return([]*models.Profile{profile("c1", "gaming")}, []string{"ghost"}, nil)
	weights := new(mockWeights)
	weights.On("Resolve", mock.Anything, "", "").Return(industryOnly(), nil)
	h := newTestHandler(t, profiles, weights, 0)

	out, err := h.Execute(context.Background(), &Input{
		SourceProfileID: "src",
		Candidates:      []*models.Profile{profile("inline", "gaming")},
		CandidateIDs:    []string{"c1", "ghost"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "inline"}, candidateIDs(out.Matches))
	assert.Equal(t, []string{"ghost"}, out.MissingCandidateIDs)
	assert.Equal(t, 2, out.CandidateCount)
	profiles.AssertExpectations(t)
}

func TestHandler_Execute_CandidateCountIsDeduplicated(t *testing.T) {
	profiles := new(mockProfiles)
	profiles.On("GetMany", mock.Anything, []string{"c1", "src"}).
		Return([]*models.Profile{profile("c1", "gaming"), profile("src", "gaming")}, []string{}, nil)
	weights := new(mockWeights)
	weights.On("Resolve", mock.Anything, "", "").Return(industryOnly(), nil)
	h := newTestHandler(t, profiles, weights, 0)

	out, err := h.Execute(context.Background(), &Input{
		SourceProfile: profile("src", "gaming"),
		Candidates:    []*models.Profile{profile("c1", "gaming"), profile("c2", "gaming")},
		CandidateIDs:  []string{"c1", "src"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, candidateIDs(out.Matches))
	assert.Equal(t, 2, out.CandidateCount)
	assert.Equal(t, 2, out.MatchCount)
}

func TestHandler_Execute_EmptyPool(t *testing.T) {
	weights := new(mockWeights)
	weights.On("Resolve", mock.Anything, "", "").Return(industryOnly(), nil)
	h := newTestHandler(t, new(mockProfiles), weights, 0)

	out, err := h.Execute(context.Background(), &Input{SourceProfile: profile("src", "gaming")})
	require.NoError(t, err)
	assert.NotNil(t, out.Matches)
	assert.Empty(t, out.Matches)
	assert.Zero(t, out.MatchCount)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    *Input
		setup    func(p *mockProfiles, w *mockWeights)
		wantCode errors.ErrorCode
	}{
		{
			name:     "nil input",
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "no source",
			input:    &Input{Candidates: []*models.Profile{profile("c1", "gaming")}},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "negative limit",
			input:    &Input{SourceProfile: profile("src"), Limit: -1},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name: "too many candidates",
			input: &Input{
				SourceProfile: profile("src"),
				Candidates:    []*models.Profile{profile("c1"), profile("c2")},
				CandidateIDs:  []string{"c3"},
			},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:  "source not found",
			input: &Input{SourceProfileID: "ghost"},
			setup: func(p *mockProfiles, w *mockWeights) {
				p.On("Get", mock.Anything, "ghost").Return(nil, fmt.Errorf("profile ghost: %w", errors.ErrProfileNotFound))
			},
			wantCode: errors.ErrCodeProfileNotFound,
		},
		{
			name:  "weights not found",
			input: &Input{SourceProfile: profile("src"), WeightsSelection: matching.WeightsSelection{WeightsProfileID: "nope"}},
			setup: func(p *mockProfiles, w *mockWeights) {
				w.On("Resolve", mock.Anything, "nope", "").Return(nil, fmt.Errorf("weights profile %q: %w", "nope", errors.ErrWeightsNotFound))
			},
			wantCode: errors.ErrCodeWeightsNotFound,
		},
		{
			name:  "candidate lookup fails",
			input: &Input{SourceProfile: profile("src"), CandidateIDs: []string{"c1"}},
			setup: func(p *mockProfiles, w *mockWeights) {
				w.On("Resolve", mock.Anything, "", "").Return(industryOnly(), nil)
				p.On("GetMany", mock.Anything, []string{"c1"}).
					Return(nil, nil, errors.NewQueryTimeoutError("profiles"))
			},
			wantCode: errors.ErrCodeQueryTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles, weights := new(mockProfiles), new(mockWeights)
			if tt.setup != nil {
				tt.setup(profiles, weights)
			}
			h := newTestHandler(t, profiles, weights, 2)

			_, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.FromError(err).Code)
			profiles.AssertExpectations(t)
			weights.AssertExpectations(t)
		})
	}
}

func TestHandler_Execute_DeadlineExceeded(t *testing.T) {
	weights := new(mockWeights)
	weights.On("Resolve", mock.Anything, "", "").Return(industryOnly(), nil)
	h := newTestHandler(t, new(mockProfiles), weights, 0)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := h.Execute(ctx, &Input{
		SourceProfile: profile("src", "gaming"),
		Candidates:    []*models.Profile{profile("c1", "gaming")},
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeRankingTimeout, errors.FromError(err).Code)
}

func TestLoadConfig(t *testing.T) {
	cfg := LoadConfig(config.WorkerConfig{}, config.MatchingConfig{})
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 200, cfg.MaxCandidates)

	cfg = LoadConfig(config.WorkerConfig{Timeout: 1500}, config.MatchingConfig{MaxCandidates: 25})
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 25, cfg.MaxCandidates)
}
