package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dafibh/fortuna/fortuna-rollover/internal/domain"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/testutil"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSettingsService() (*RolloverSettingsService, *testutil.MockUserPreferenceRepository, *testutil.MockEventPublisher, uuid.UUID) {
	userID := uuid.New()
	prefRepo := testutil.NewMockUserPreferenceRepository()
	publisher := testutil.NewMockEventPublisher()
	svc := NewRolloverSettingsService(testutil.NewMockIdentity(userID), prefRepo)
	svc.SetEventPublisher(publisher)
	return svc, prefRepo, publisher, userID
}

func TestRolloverSettingsService_GetSettings_Defaults(t *testing.T) {
	svc, prefRepo, _, _ := setupSettingsService()

	settings, err := svc.GetSettings(context.Background())
	require.NoError(t, err)

	assert.False(t, settings.AutoResetEnabled)
	assert.Equal(t, 1, settings.ResetDay)
	assert.True(t, settings.CarryOverEnabled)
	assert.Equal(t, domain.DefaultCarryOverCategories, settings.CarryOverCategories)
	assert.True(t, settings.MaxCarryOverPercentage.Equal(dec("50")))
	assert.Empty(t, settings.History)
	assert.Equal(t, 0, prefRepo.UpsertCalls)
}

func TestRolloverSettingsService_GetSettings_PartialDocument(t *testing.T) {
	svc, prefRepo, _, userID := setupSettingsService()
	prefRepo.SetPayload(userID, domain.PreferenceTypeBudgetReset, `{"autoResetEnabled": true, "maxCarryOverPercentage": "25.5"}`)

	settings, err := svc.GetSettings(context.Background())
	require.NoError(t, err)

	assert.True(t, settings.AutoResetEnabled)
	assert.True(t, settings.MaxCarryOverPercentage.Equal(dec("25.5")))
	assert.Equal(t, 1, settings.ResetDay)
	assert.True(t, settings.CarryOverEnabled)
	assert.Equal(t, domain.DefaultCarryOverCategories, settings.CarryOverCategories)
	assert.NotNil(t, settings.History)
}

func TestRolloverSettingsService_GetSettings_NormalizesStoredValues(t *testing.T) {
	svc, prefRepo, _, userID := setupSettingsService()
	prefRepo.SetPayload(userID, domain.PreferenceTypeBudgetReset,
		`{"resetDay": 31, "maxCarryOverPercentage": 150, "carryOverCategories": ["Food", "", "Food", "Rent"]}`)

	settings, err := svc.GetSettings(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, settings.ResetDay)
	assert.True(t, settings.MaxCarryOverPercentage.Equal(dec("100")))
	assert.Equal(t, []string{"Food", "Rent"}, settings.CarryOverCategories)
}

func TestRolloverSettingsService_GetSettings_TrimsStoredHistory(t *testing.T) {
	svc, prefRepo, _, userID := setupSettingsService()

	history := make([]domain.RolloverRecord, 14)
	for i := range history {
		history[i] = domain.RolloverRecord{
			ResetDate:    time.Date(2024, time.Month(i%12+1), 1, 0, 0, 0, 0, time.UTC).AddDate(i/12, 0, 0),
			SourcePeriod: domain.Period{Month: 1, Year: 2024},
			TargetPeriod: domain.Period{Month: 2, Year: 2024},
		}
	}
	payload, err := json.Marshal(map[string]interface{}{"history": history})
	require.NoError(t, err)
	prefRepo.SetPayload(userID, domain.PreferenceTypeBudgetReset, string(payload))

	got, err := svc.GetHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, got, domain.MaxRolloverHistory)
	assert.True(t, got[0].ResetDate.Equal(history[2].ResetDate))
	assert.True(t, got[len(got)-1].ResetDate.Equal(history[13].ResetDate))
}

func TestRolloverSettingsService_GetSettings_Errors(t *testing.T) {
	t.Run("storage", func(t *testing.T) {
		svc, prefRepo, _, _ := setupSettingsService()
		prefRepo.GetFn = func(uuid.UUID, string) (*domain.UserPreference, error) {
			return nil, errors.New("connection reset")
		}

		_, err := svc.GetSettings(context.Background())
		var storageErr *domain.StorageError
		require.ErrorAs(t, err, &storageErr)
		assert.Equal(t, "fetch settings", storageErr.Op)
	})

	t.Run("corrupt document", func(t *testing.T) {
		svc, prefRepo, _, userID := setupSettingsService()
		prefRepo.SetPayload(userID, domain.PreferenceTypeBudgetReset, `{"resetDay": "soon"`)

		_, err := svc.GetSettings(context.Background())
		var storageErr *domain.StorageError
		require.ErrorAs(t, err, &storageErr)
		assert.Equal(t, "decode settings", storageErr.Op)
	})

	t.Run("not authenticated", func(t *testing.T) {
		prefRepo := testutil.NewMockUserPreferenceRepository()
		svc := NewRolloverSettingsService(testutil.NewMockIdentity(uuid.Nil), prefRepo)

		_, err := svc.GetSettings(context.Background())
		assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	})
}

func TestRolloverSettingsService_SaveSettings(t *testing.T) {
	svc, prefRepo, publisher, userID := setupSettingsService()

	existing := domain.DefaultRolloverSettings()
	existing.AppendHistory(domain.RolloverRecord{
		ResetDate:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		SourcePeriod: domain.Period{Month: 12, Year: 2024},
		TargetPeriod: domain.Period{Month: 1, Year: 2025},
	})
	payload, err := json.Marshal(existing)
	require.NoError(t, err)
	prefRepo.SetPayload(userID, domain.PreferenceTypeBudgetReset, string(payload))

	input := domain.RolloverSettings{
		AutoResetEnabled:       true,
		ResetDay:               5,
		CarryOverEnabled:       true,
		CarryOverCategories:    []string{"Groceries", "Groceries", "Coffee"},
		MaxCarryOverPercentage: dec("30"),
		History:                []domain.RolloverRecord{},
	}

	saved, err := svc.SaveSettings(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, []string{"Groceries", "Coffee"}, saved.CarryOverCategories)
	assert.Len(t, saved.History, 1, "stored history is kept")

	reloaded, err := svc.GetSettings(context.Background())
	require.NoError(t, err)
	assert.True(t, reloaded.AutoResetEnabled)
	assert.Equal(t, 5, reloaded.ResetDay)
	assert.True(t, reloaded.MaxCarryOverPercentage.Equal(dec("30")))
	assert.Len(t, reloaded.History, 1)

	events := publisher.EventsOfType("rollover_settings.updated")
	require.Len(t, events, 1)
	assert.Equal(t, userID, events[0].UserID)
	assert.Equal(t, websocket.EntityTypeRolloverSettings, events[0].Event.Entity)
}

func TestRolloverSettingsService_SaveSettings_Validation(t *testing.T) {
	tests := []struct {
		name     string
		resetDay int
		pct      string
		expected error
	}{
		{"reset day zero", 0, "50", domain.ErrInvalidResetDay},
		{"reset day past 28", 29, "50", domain.ErrInvalidResetDay},
		{"negative percentage", 1, "-5", domain.ErrInvalidPercentage},
		{"percentage over 100", 1, "100.5", domain.ErrInvalidPercentage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, prefRepo, publisher, _ := setupSettingsService()
			input := domain.DefaultRolloverSettings()
			input.ResetDay = tt.resetDay
			input.MaxCarryOverPercentage = dec(tt.pct)

			_, err := svc.SaveSettings(context.Background(), input)
			assert.ErrorIs(t, err, tt.expected)
			assert.Equal(t, 0, prefRepo.UpsertCalls)
			assert.Empty(t, publisher.Events)
		})
	}
}

func TestRolloverSettingsService_SaveSettings_LastWriteWins(t *testing.T) {
	svc, _, _, _ := setupSettingsService()

	first := domain.DefaultRolloverSettings()
	first.CarryOverCategories = []string{"Groceries"}
	second := domain.DefaultRolloverSettings()
	second.CarryOverCategories = []string{"Shopping"}

	_, err := svc.SaveSettings(context.Background(), first)
	require.NoError(t, err)
	_, err = svc.SaveSettings(context.Background(), second)
	require.NoError(t, err)

	settings, err := svc.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Shopping"}, settings.CarryOverCategories)
}

func TestRolloverSettingsService_ListAutoResetCandidates(t *testing.T) {
	svc, prefRepo, _, _ := setupSettingsService()
	enabled := uuid.New()
	disabled := uuid.New()
	corrupt := uuid.New()
	prefRepo.SetPayload(enabled, domain.PreferenceTypeBudgetReset, `{"autoResetEnabled": true, "resetDay": 3}`)
	prefRepo.SetPayload(disabled, domain.PreferenceTypeBudgetReset, `{"autoResetEnabled": false}`)
	prefRepo.SetPayload(corrupt, domain.PreferenceTypeBudgetReset, `not json`)
	prefRepo.SetPayload(enabled, "dashboard_layout", `{"autoResetEnabled": true}`)

	candidates, err := svc.ListAutoResetCandidates(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, enabled, candidates[0].UserID)
	assert.Equal(t, 3, candidates[0].Settings.ResetDay)
}
