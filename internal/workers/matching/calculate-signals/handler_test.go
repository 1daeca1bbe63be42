package calculatesignals

import (
	"context"
	"fmt"
	"testing"
	"time"

	"matchmaking-workers/internal/common/config"
	"matchmaking-workers/internal/common/errors"
	"matchmaking-workers/internal/common/logger"
	"matchmaking-workers/internal/common/observability"
	"matchmaking-workers/internal/models"
	"matchmaking-workers/internal/signals"
	"matchmaking-workers/internal/workers/matching"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
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
	return args.Get(0).([]*models.Profile), args.Get(1).([]string), args.Error(2)
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

func founder() *models.Profile {
	return &models.Profile{
		ID:           "founder-1",
		Name:         "Tiny Castle Games",
		Industry:     []string{"gaming"},
		Platforms:    []string{"mobile", "ios"},
		Needs:        []string{"publishing"},
		Capabilities: []string{"game development"},
		FoundedYear:  models.IntPtr(2020),
	}
}

func publisher() *models.Profile {
	return &models.Profile{
		ID:           "publisher-1",
		Name:         "Northwind Publishing",
		Industry:     []string{"Gaming"},
		Platforms:    []string{"mobile", "android"},
		Capabilities: []string{"publishing"},
		Needs:        []string{"game development"},
		FoundedYear:  models.IntPtr(2018),
	}
}

func selection(id, persona string) matching.WeightsSelection {
	return matching.WeightsSelection{WeightsProfileID: id, Persona: persona}
}

func newTestHandler(t *testing.T, profiles *mockProfiles, weights *mockWeights) *Handler {
	t.Helper()
	cfg := LoadConfig(config.WorkerConfig{Timeout: 5000})
	return NewHandler(cfg, signals.NewEngine(), profiles, weights, nil, logger.NewTestLogger(t))
}

// ==========================
// Execute Tests
// ==========================

func TestHandler_Execute_InlineProfiles(t *testing.T) {
	weights := new(mockWeights)
	weights.On("Resolve", mock.Anything, "", "startup-founder").Return(models.DefaultWeightsProfile(), nil)
	h := newTestHandler(t, new(mockProfiles), weights)

	out, err := h.Execute(context.Background(), &Input{ProfileA: founder(), ProfileB: publisher(),
		WeightsSelection: selection("", "startup-founder")})
	require.NoError(t, err)

	byField := map[string]models.Signal{}
	for _, s := range out.Signals {
		byField[s.Field] = s
	}
	assert.Equal(t, 100.0, byField[models.FieldIndustry].Score)
	assert.InDelta(t, 33.33, byField[models.FieldPlatforms].Score, 0.01)
	assert.Equal(t, 100.0, byField[models.FieldCapabilitiesNeeds].Score)
	assert.Greater(t, byField[models.FieldFoundedYear].Score, 60.0)

	assert.Equal(t, len(out.Signals), out.SignalCount)
	assert.Equal(t, "default", out.WeightsProfileID)
	assert.Greater(t, out.OverallScore, 0.0)
	assert.LessOrEqual(t, out.OverallScore, 100.0)
	assert.True(t, out.PassesThresholds)
	weights.AssertExpectations(t)
}

func TestHandler_Execute_ByID(t *testing.T) {
	profiles := new(mockProfiles)
	profiles.On("Get", mock.Anything, "founder-1").Return(founder(), nil)
	profiles.On("Get", mock.Anything, "publisher-1").Return(publisher(), nil)
	weights := new(mockWeights)
	weights.On("Resolve", mock.Anything, "investor-v1", "").Return(&models.WeightsProfile{
		ID:      "investor-v1",
		Persona: "investor",
		Weights: map[string]float64{models.FieldIndustry: 100},
		Thresholds: models.Thresholds{
			MinimumOverallScore: 99,
		},
	}, nil)
	h := newTestHandler(t, profiles, weights)

	out, err := h.Execute(context.Background(), &Input{ProfileAID: "founder-1", ProfileBID: "publisher-1",
		WeightsSelection: selection("investor-v1", "")})
	require.NoError(t, err)
	// only industry carries weight
	assert.Equal(t, 100.0, out.OverallScore)
	assert.True(t, out.PassesThresholds)
	assert.Equal(t, "founder-1", out.ProfileAID)
	profiles.AssertExpectations(t)
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
			input:    nil,
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "no second profile",
			input:    &Input{ProfileA: founder()},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "malformed persona",
			input:    &Input{ProfileA: founder(), ProfileB: publisher(), WeightsSelection: selection("", "Angel Investor")},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:  "profile not found",
			input: &Input{ProfileA: founder(), ProfileBID: "ghost"},
			setup: func(p *mockProfiles, w *mockWeights) {
				p.On("Get", mock.Anything, "ghost").Return(nil, fmt.Errorf("profile ghost: %w", errors.ErrProfileNotFound))
			},
			wantCode: errors.ErrCodeProfileNotFound,
		},
		{
			name:  "weights not found",
			input: &Input{ProfileA: founder(), ProfileB: publisher(), WeightsSelection: selection("nope", "")},
			setup: func(p *mockProfiles, w *mockWeights) {
				w.On("Resolve", mock.Anything, "nope", "").Return(nil, fmt.Errorf("weights profile %q: %w", "nope", errors.ErrWeightsNotFound))
			},
			wantCode: errors.ErrCodeWeightsNotFound,
		},
		{
			name: "inline weights invalid",
			input: func() *Input {
				in := &Input{ProfileA: founder(), ProfileB: publisher()}
				in.WeightsProfile = &models.WeightsProfile{ID: "x", Persona: "x", Weights: map[string]float64{"industry": -3}}
				return in
			}(),
			wantCode: errors.ErrCodeWeightsInvalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles, weights := new(mockProfiles), new(mockWeights)
			if tt.setup != nil {
				tt.setup(profiles, weights)
			}
			h := newTestHandler(t, profiles, weights)

			_, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.FromError(err).Code)
			profiles.AssertExpectations(t)
			weights.AssertExpectations(t)
		})
	}
}

func TestHandler_JobsReportedToOTel(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	obs := observability.NewWithReader("test", reader)
	cfg := LoadConfig(config.WorkerConfig{Timeout: 5000})
	h := NewHandler(cfg, signals.NewEngine(), nil, nil, obs, logger.NewTestLogger(t))

	h.startJob().Done(nil)
	h.startJob().Done(errors.NewInvalidInputError("bad"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	statuses := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "jobs.processed" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				task, _ := dp.Attributes.Value(attribute.Key("task_type"))
				status, _ := dp.Attributes.Value(attribute.Key("status"))
				assert.Equal(t, TaskType, task.AsString())
				statuses[status.AsString()] += dp.Value
			}
		}
	}
	assert.Len(t, statuses, 2)
	assert.Equal(t, int64(1), statuses["completed"])
	assert.Equal(t, int64(1), statuses[string(errors.ErrCodeInvalidInput)])
}

func TestInput_DecodesJobVariables(t *testing.T) {
	vars := `{
		"profileAId": "a-1",
		"profileB": {"id": "b-1", "name": "Inline Co", "industry": ["fintech"], "lastFundingDate": "2024-05-01T00:00:00Z"},
		"persona": "investor"
	}`
	var in Input
	require.NoError(t, json.Unmarshal([]byte(vars), &in))
	assert.Equal(t, "a-1", in.ProfileAID)
	require.NotNil(t, in.ProfileB)
	assert.Equal(t, []string{"fintech"}, in.ProfileB.Industry)
	assert.True(t, in.ProfileB.LastFundingDate.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "investor", in.Persona)
}

func TestLoadConfig(t *testing.T) {
	assert.Equal(t, 10*time.Second, LoadConfig(config.WorkerConfig{}).Timeout)
	assert.Equal(t, 2*time.Second, LoadConfig(config.WorkerConfig{Timeout: 2000}).Timeout)
}
