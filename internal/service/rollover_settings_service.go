package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dafibh/fortuna/fortuna-rollover/internal/domain"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	minResetDay = 1
	maxResetDay = 28
)

// RolloverSettingsService stores per-user rollover preferences and history.
// Concurrent saves for one user are last-write-wins.
type RolloverSettingsService struct {
	identity       domain.IdentityProvider
	preferenceRepo domain.UserPreferenceRepository
	eventPublisher websocket.EventPublisher
}

// NewRolloverSettingsService creates a new RolloverSettingsService
func NewRolloverSettingsService(identity domain.IdentityProvider, preferenceRepo domain.UserPreferenceRepository) *RolloverSettingsService {
	return &RolloverSettingsService{
		identity:       identity,
		preferenceRepo: preferenceRepo,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *RolloverSettingsService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// GetSettings returns the current user's settings, or the defaults when none are stored
func (s *RolloverSettingsService) GetSettings(ctx context.Context) (*domain.RolloverSettings, error) {
	userID, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.settingsFor(ctx, userID)
}

// GetHistory returns the current user's rollover history, most recent last
func (s *RolloverSettingsService) GetHistory(ctx context.Context) ([]domain.RolloverRecord, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	return settings.History, nil
}

// SaveSettings validates and stores the user's preferences. History cannot be
// written through this call; the stored history is kept.
func (s *RolloverSettingsService) SaveSettings(ctx context.Context, input domain.RolloverSettings) (*domain.RolloverSettings, error) {
	userID, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}

	if input.ResetDay < minResetDay || input.ResetDay > maxResetDay {
		return nil, domain.ErrInvalidResetDay
	}
	if err := ValidatePercentage(input.MaxCarryOverPercentage); err != nil {
		return nil, err
	}

	current, err := s.settingsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	updated := input
	updated.CarryOverCategories = dedupeCategories(input.CarryOverCategories)
	updated.History = current.History

	if err := s.save(ctx, userID, &updated); err != nil {
		return nil, err
	}

	log.Info().Str("user_id", userID.String()).Bool("carry_over_enabled", updated.CarryOverEnabled).Msg("Rollover settings updated")
	s.publishEvent(userID, websocket.RolloverSettingsUpdated(updated))

	return &updated, nil
}

// AutoResetCandidate pairs a user with settings that enable automatic rollover
type AutoResetCandidate struct {
	UserID   uuid.UUID
	Settings domain.RolloverSettings
}

// ListAutoResetCandidates returns every user whose settings enable automatic rollover.
// Documents that fail to decode are logged and skipped.
func (s *RolloverSettingsService) ListAutoResetCandidates(ctx context.Context) ([]AutoResetCandidate, error) {
	prefs, err := s.preferenceRepo.ListByType(ctx, domain.PreferenceTypeBudgetReset)
	if err != nil {
		return nil, domain.NewStorageError("list preferences", err)
	}

	candidates := make([]AutoResetCandidate, 0)
	for _, p := range prefs {
		settings, err := decodeSettings(p.Payload)
		if err != nil {
			log.Warn().Err(err).Str("user_id", p.UserID.String()).Msg("Skipping unreadable rollover settings")
			continue
		}
		if settings.AutoResetEnabled {
			candidates = append(candidates, AutoResetCandidate{UserID: p.UserID, Settings: settings})
		}
	}
	return candidates, nil
}

func (s *RolloverSettingsService) settingsFor(ctx context.Context, userID uuid.UUID) (*domain.RolloverSettings, error) {
	pref, err := s.preferenceRepo.Get(ctx, userID, domain.PreferenceTypeBudgetReset)
	if err != nil {
		if errors.Is(err, domain.ErrPreferenceNotFound) {
			defaults := domain.DefaultRolloverSettings()
			return &defaults, nil
		}
		return nil, domain.NewStorageError("fetch settings", err)
	}

	settings, err := decodeSettings(pref.Payload)
	if err != nil {
		return nil, domain.NewStorageError("decode settings", err)
	}
	return &settings, nil
}

func (s *RolloverSettingsService) save(ctx context.Context, userID uuid.UUID, settings *domain.RolloverSettings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.preferenceRepo.Upsert(ctx, userID, domain.PreferenceTypeBudgetReset, payload); err != nil {
		return domain.NewStorageError("save settings", err)
	}
	return nil
}

func (s *RolloverSettingsService) publishEvent(userID uuid.UUID, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(userID, event)
	}
}

// settingsDocument is the stored JSON shape; every field is optional
type settingsDocument struct {
	AutoResetEnabled       *bool                   `json:"autoResetEnabled"`
	ResetDay               *int                    `json:"resetDay"`
	CarryOverEnabled       *bool                   `json:"carryOverEnabled"`
	CarryOverCategories    *[]string               `json:"carryOverCategories"`
	MaxCarryOverPercentage *decimal.Decimal        `json:"maxCarryOverPercentage"`
	History                []domain.RolloverRecord `json:"history"`
}

// decodeSettings applies defaults for every missing field of a stored document
func decodeSettings(payload []byte) (domain.RolloverSettings, error) {
	settings := domain.DefaultRolloverSettings()
	if len(payload) == 0 {
		return settings, nil
	}

	var doc settingsDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return domain.RolloverSettings{}, err
	}

	if doc.AutoResetEnabled != nil {
		settings.AutoResetEnabled = *doc.AutoResetEnabled
	}
	if doc.ResetDay != nil && *doc.ResetDay >= minResetDay && *doc.ResetDay <= maxResetDay {
		settings.ResetDay = *doc.ResetDay
	}
	if doc.CarryOverEnabled != nil {
		settings.CarryOverEnabled = *doc.CarryOverEnabled
	}
	if doc.CarryOverCategories != nil {
		settings.CarryOverCategories = dedupeCategories(*doc.CarryOverCategories)
	}
	if doc.MaxCarryOverPercentage != nil {
		settings.MaxCarryOverPercentage = clampPercentage(*doc.MaxCarryOverPercentage)
	}
	for _, r := range doc.History {
		settings.AppendHistory(r)
	}
	return settings, nil
}

func clampPercentage(pct decimal.Decimal) decimal.Decimal {
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(oneHundred) {
		return oneHundred
	}
	return pct
}

// dedupeCategories drops empty and repeated names, keeping first-seen order
func dedupeCategories(categories []string) []string {
	seen := make(map[string]bool, len(categories))
	result := make([]string, 0, len(categories))
	for _, c := range categories {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		result = append(result, c)
	}
	return result
}
