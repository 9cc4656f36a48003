package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dafibh/fortuna/fortuna-rollover/internal/domain"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// RolloverArchive stores an immutable snapshot of an executed rollover
type RolloverArchive interface {
	Archive(ctx context.Context, userID uuid.UUID, result *domain.RolloverResult) (key string, err error)
}

// RolloverService plans and executes budget carry-over between periods.
// Preview and Execute share one derivation path (buildPlan) so an execute run
// against unchanged data applies exactly what the preview showed.
type RolloverService struct {
	identity       domain.IdentityProvider
	calculator     *UnspentCalculator
	budgetRepo     domain.BudgetRepository
	settings       *RolloverSettingsService
	eventPublisher websocket.EventPublisher
	archive        RolloverArchive
	now            func() time.Time
}

// NewRolloverService creates a new RolloverService
func NewRolloverService(
	identity domain.IdentityProvider,
	calculator *UnspentCalculator,
	budgetRepo domain.BudgetRepository,
	settings *RolloverSettingsService,
) *RolloverService {
	return &RolloverService{
		identity:   identity,
		calculator: calculator,
		budgetRepo: budgetRepo,
		settings:   settings,
		now:        time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *RolloverService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetArchive sets the sink that keeps a copy of every executed rollover
func (s *RolloverService) SetArchive(archive RolloverArchive) {
	s.archive = archive
}

// WithIdentity returns a copy of the service acting as identity.
// Used by the auto-rollover worker, which has no request context.
func (s *RolloverService) WithIdentity(identity domain.IdentityProvider) *RolloverService {
	clone := *s
	clone.identity = identity
	return &clone
}

// plannedLine is one source budget with its computed plan
type plannedLine struct {
	source  *domain.Budget
	record  domain.UnspentRecord
	optedIn bool
	plan    domain.RolloverPlan
}

// RequestFromSettings builds a request from the user's stored preferences.
// With carry-over disabled no category is opted in.
func (s *RolloverService) RequestFromSettings(ctx context.Context, source, target domain.Period) (*domain.RolloverRequest, error) {
	userID, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.settingsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	categories := []string{}
	if settings.CarryOverEnabled {
		categories = append(categories, settings.CarryOverCategories...)
	}

	return &domain.RolloverRequest{
		Source:                 source,
		Target:                 target,
		CarryOverCategories:    categories,
		MaxCarryOverPercentage: settings.MaxCarryOverPercentage,
	}, nil
}

// Preview computes the rollover plan without writing anything
func (s *RolloverService) Preview(ctx context.Context, req domain.RolloverRequest) (*domain.RolloverPreview, error) {
	userID, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}

	lines, err := s.buildPlan(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	preview := &domain.RolloverPreview{
		Source:                     req.Source,
		Target:                     req.Target,
		CategoriesWithCarryover:    []domain.RolloverPlan{},
		CategoriesWithoutCarryover: []domain.SkippedCategory{},
		TotalCarryOverAmount:       decimal.Zero,
	}
	for _, line := range lines {
		if line.plan.CarriedOverAmount.IsPositive() {
			preview.CategoriesWithCarryover = append(preview.CategoriesWithCarryover, line.plan)
			preview.TotalCarryOverAmount = preview.TotalCarryOverAmount.Add(line.plan.CarriedOverAmount)
			continue
		}
		preview.CategoriesWithoutCarryover = append(preview.CategoriesWithoutCarryover, domain.SkippedCategory{
			RolloverPlan: line.plan,
			Reason:       skipReason(line.record, line.optedIn),
		})
	}

	return preview, nil
}

// Execute recomputes the plan from current data and writes every line into the
// target period. Categories succeed or fail independently: the returned error is
// a *domain.PartialExecutionError when at least one category failed, and the
// result still describes the committed categories. A history record is appended
// in both cases.
func (s *RolloverService) Execute(ctx context.Context, req domain.RolloverRequest) (*domain.RolloverResult, error) {
	userID, err := s.identity.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}

	lines, err := s.buildPlan(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	result := &domain.RolloverResult{
		Source:                 req.Source,
		Target:                 req.Target,
		TotalCarriedOverAmount: decimal.Zero,
		Details:                make([]domain.RolloverPlan, 0, len(lines)),
	}

	for _, line := range lines {
		if _, err := s.upsertTargetBudget(ctx, userID, line.source, req.Target, line.plan.NewLimit); err != nil {
			log.Warn().Err(err).Str("user_id", userID.String()).Str("category", line.plan.Category).Msg("Failed to roll budget forward")
			result.Failures = append(result.Failures, domain.CategoryFailure{
				Category: line.plan.Category,
				Message:  err.Error(),
				Err:      domain.NewStorageError("upsert budget", err),
			})
			continue
		}
		result.CopiedBudgets++
		result.TotalCarriedOverAmount = result.TotalCarriedOverAmount.Add(line.plan.CarriedOverAmount)
		result.Details = append(result.Details, line.plan)
	}

	result.Record = domain.RolloverRecord{
		ResetDate:           s.now().UTC(),
		SourcePeriod:        req.Source,
		TargetPeriod:        req.Target,
		TotalCarriedOver:    result.TotalCarriedOverAmount,
		CategoriesCount:     result.CopiedBudgets,
		CarryOverCategories: append([]string{}, req.CarryOverCategories...),
	}

	historyErr := s.appendHistory(ctx, userID, result.Record)

	log.Info().
		Str("user_id", userID.String()).
		Str("source", req.Source.String()).
		Str("target", req.Target.String()).
		Int("copied_budgets", result.CopiedBudgets).
		Int("failed", len(result.Failures)).
		Str("carried_over", result.TotalCarriedOverAmount.StringFixed(2)).
		Msg("Rollover executed")

	if result.CopiedBudgets > 0 {
		s.publishEvent(userID, websocket.RolloverExecuted(result))
		s.archiveResult(ctx, userID, result)
	}

	var execErr error
	if len(result.Failures) > 0 {
		execErr = &domain.PartialExecutionError{Failures: result.Failures}
	}
	if historyErr != nil {
		execErr = errors.Join(execErr, historyErr)
	}
	return result, execErr
}

// buildPlan is the single derivation path shared by Preview and Execute
func (s *RolloverService) buildPlan(ctx context.Context, userID uuid.UUID, req domain.RolloverRequest) ([]plannedLine, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	records, budgets, err := s.calculator.calculate(ctx, userID, req.Source)
	if err != nil {
		return nil, err
	}
	if len(budgets) == 0 {
		return nil, domain.ErrNoSourceBudgets
	}

	optedIn := make(map[string]bool, len(req.CarryOverCategories))
	for _, c := range req.CarryOverCategories {
		optedIn[c] = true
	}

	lines := make([]plannedLine, len(records))
	for i, record := range records {
		carried := CarryOverAmount(record, optedIn[record.Category], req.MaxCarryOverPercentage)
		lines[i] = plannedLine{
			source:  budgets[i],
			record:  record,
			optedIn: optedIn[record.Category],
			plan: domain.RolloverPlan{
				Category:            record.Category,
				OriginalLimit:       record.BudgetLimit,
				CarriedOverAmount:   carried,
				NewLimit:            record.BudgetLimit.Add(carried),
				UnspentFromPrevious: record.UnspentAmount,
			},
		}
	}
	return lines, nil
}

// upsertTargetBudget overwrites the limit of an existing target budget for the
// category, or creates one copying the source budget's metadata.
func (s *RolloverService) upsertTargetBudget(ctx context.Context, userID uuid.UUID, source *domain.Budget, target domain.Period, limit decimal.Decimal) (*domain.Budget, error) {
	existing, err := s.budgetRepo.GetByCategory(ctx, userID, source.Category, target)
	switch {
	case err == nil:
		return s.budgetRepo.UpdateLimit(ctx, userID, existing.ID, limit)
	case errors.Is(err, domain.ErrBudgetNotFound):
		return s.budgetRepo.Create(ctx, source.CopyForPeriod(target, limit))
	default:
		return nil, fmt.Errorf("lookup target budget: %w", err)
	}
}

func (s *RolloverService) appendHistory(ctx context.Context, userID uuid.UUID, record domain.RolloverRecord) error {
	settings, err := s.settings.settingsFor(ctx, userID)
	if err != nil {
		return err
	}
	settings.AppendHistory(record)
	return s.settings.save(ctx, userID, settings)
}

func (s *RolloverService) publishEvent(userID uuid.UUID, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(userID, event)
	}
}

func (s *RolloverService) archiveResult(ctx context.Context, userID uuid.UUID, result *domain.RolloverResult) {
	if s.archive == nil {
		return
	}
	key, err := s.archive.Archive(ctx, userID, result)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("Failed to archive rollover")
		return
	}
	log.Debug().Str("user_id", userID.String()).Str("key", key).Msg("Rollover archived")
}

func validateRequest(req domain.RolloverRequest) error {
	if err := req.Source.Validate(); err != nil {
		return err
	}
	if err := req.Target.Validate(); err != nil {
		return err
	}
	if req.Source.Equal(req.Target) {
		return fmt.Errorf("%w: source and target must differ", domain.ErrInvalidPeriod)
	}
	return ValidatePercentage(req.MaxCarryOverPercentage)
}
