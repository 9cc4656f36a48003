package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dafibh/fortuna/fortuna-rollover/internal/domain"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/middleware"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// RolloverHandler handles budget rollover HTTP requests
type RolloverHandler struct {
	rolloverService *service.RolloverService
	settingsService *service.RolloverSettingsService
	calculator      *service.UnspentCalculator
}

// NewRolloverHandler creates a new RolloverHandler
func NewRolloverHandler(rolloverService *service.RolloverService, settingsService *service.RolloverSettingsService, calculator *service.UnspentCalculator) *RolloverHandler {
	return &RolloverHandler{
		rolloverService: rolloverService,
		settingsService: settingsService,
		calculator:      calculator,
	}
}

// RolloverRequestBody is the body of POST /rollover/preview and /rollover/execute.
// Target defaults to the month after the source; omitted categories and cap
// come from the stored settings.
type RolloverRequestBody struct {
	SourceYear             int              `json:"sourceYear"`
	SourceMonth            int              `json:"sourceMonth"`
	TargetYear             *int             `json:"targetYear,omitempty"`
	TargetMonth            *int             `json:"targetMonth,omitempty"`
	CarryOverCategories    *[]string        `json:"carryOverCategories,omitempty"`
	MaxCarryOverPercentage *decimal.Decimal `json:"maxCarryOverPercentage,omitempty"`
}

// UpdateSettingsRequest is the body of PUT /rollover/settings
type UpdateSettingsRequest struct {
	AutoResetEnabled       bool            `json:"autoResetEnabled"`
	ResetDay               int             `json:"resetDay"`
	CarryOverEnabled       bool            `json:"carryOverEnabled"`
	CarryOverCategories    []string        `json:"carryOverCategories"`
	MaxCarryOverPercentage decimal.Decimal `json:"maxCarryOverPercentage"`
}

// PeriodResponse represents a month/year pair in API responses
type PeriodResponse struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// PlanResponse represents one category's carry-over
type PlanResponse struct {
	Category            string `json:"category"`
	OriginalLimit       string `json:"originalLimit"`
	CarriedOverAmount   string `json:"carriedOverAmount"`
	NewLimit            string `json:"newLimit"`
	UnspentFromPrevious string `json:"unspentFromPrevious"`
}

// SkippedCategoryResponse is a plan line that carries nothing forward
type SkippedCategoryResponse struct {
	PlanResponse
	Reason string `json:"reason"`
}

// PreviewResponse represents the response for a rollover preview
type PreviewResponse struct {
	SourcePeriod               PeriodResponse            `json:"sourcePeriod"`
	TargetPeriod               PeriodResponse            `json:"targetPeriod"`
	CategoriesWithCarryover    []PlanResponse            `json:"categoriesWithCarryover"`
	CategoriesWithoutCarryover []SkippedCategoryResponse `json:"categoriesWithoutCarryover"`
	TotalCarryOverAmount       string                    `json:"totalCarryOverAmount"`
}

// CategoryErrorResponse describes a category that could not be rolled forward
type CategoryErrorResponse struct {
	Category string `json:"category,omitempty"`
	Message  string `json:"message"`
}

// ExecuteResponse represents the response for an executed rollover
type ExecuteResponse struct {
	Success                bool                    `json:"success"`
	SourcePeriod           PeriodResponse          `json:"sourcePeriod"`
	TargetPeriod           PeriodResponse          `json:"targetPeriod"`
	CopiedBudgets          int                     `json:"copiedBudgets"`
	TotalCarriedOverAmount string                  `json:"totalCarriedOverAmount"`
	Details                []PlanResponse          `json:"details"`
	Errors                 []CategoryErrorResponse `json:"errors,omitempty"`
}

// HistoryRecordResponse represents one rollover history entry
type HistoryRecordResponse struct {
	ResetDate           time.Time      `json:"resetDate"`
	SourcePeriod        PeriodResponse `json:"sourcePeriod"`
	TargetPeriod        PeriodResponse `json:"targetPeriod"`
	TotalCarriedOver    string         `json:"totalCarriedOver"`
	CategoriesCount     int            `json:"categoriesCount"`
	CarryOverCategories []string       `json:"carryOverCategories"`
}

// SettingsResponse represents the user's rollover settings
type SettingsResponse struct {
	AutoResetEnabled       bool                    `json:"autoResetEnabled"`
	ResetDay               int                     `json:"resetDay"`
	CarryOverEnabled       bool                    `json:"carryOverEnabled"`
	CarryOverCategories    []string                `json:"carryOverCategories"`
	MaxCarryOverPercentage string                  `json:"maxCarryOverPercentage"`
	History                []HistoryRecordResponse `json:"history"`
}

// UnspentResponse represents the spend summary of one budget
type UnspentResponse struct {
	Category             string `json:"category"`
	BudgetLimit          string `json:"budgetLimit"`
	TotalSpent           string `json:"totalSpent"`
	UnspentAmount        string `json:"unspentAmount"`
	SpentPercentage      string `json:"spentPercentage"`
	EligibleForCarryover bool   `json:"eligibleForCarryover"`
}

// GetUnspent handles GET /api/v1/rollover/unspent?year=&month=
func (h *RolloverHandler) GetUnspent(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	year, err := queryInt(c, "year")
	if err != nil {
		return h.handleError(c, err, "calculate unspent amounts")
	}
	month, err := queryInt(c, "month")
	if err != nil {
		return h.handleError(c, err, "calculate unspent amounts")
	}
	if year == nil || month == nil {
		return NewValidationError(c, "Invalid period", []ValidationError{
			{Field: "period", Message: "year and month are required"},
		})
	}

	period, err := domain.NewPeriod(*year, *month)
	if err != nil {
		return h.handleError(c, err, "calculate unspent amounts")
	}

	records, err := h.calculator.Calculate(c.Request().Context(), userID, period)
	if err != nil {
		return h.handleError(c, err, "calculate unspent amounts")
	}

	response := make([]UnspentResponse, len(records))
	for i, r := range records {
		response[i] = UnspentResponse{
			Category:             r.Category,
			BudgetLimit:          r.BudgetLimit.StringFixed(2),
			TotalSpent:           r.TotalSpent.StringFixed(2),
			UnspentAmount:        r.UnspentAmount.StringFixed(2),
			SpentPercentage:      r.SpentPercentage.StringFixed(2),
			EligibleForCarryover: r.EligibleForCarryover,
		}
	}

	return c.JSON(http.StatusOK, response)
}

// GetPreview handles GET /api/v1/rollover/preview using the stored settings
func (h *RolloverHandler) GetPreview(c echo.Context) error {
	body := RolloverRequestBody{}

	required := []struct {
		name string
		dst  *int
	}{
		{"sourceYear", &body.SourceYear},
		{"sourceMonth", &body.SourceMonth},
	}
	for _, p := range required {
		name, dst := p.name, p.dst
		v, err := queryInt(c, name)
		if err != nil {
			return h.handleError(c, err, "preview rollover")
		}
		if v == nil {
			return NewValidationError(c, "Invalid period", []ValidationError{
				{Field: name, Message: name + " is required"},
			})
		}
		*dst = *v
	}

	var err error
	if body.TargetYear, err = queryInt(c, "targetYear"); err != nil {
		return h.handleError(c, err, "preview rollover")
	}
	if body.TargetMonth, err = queryInt(c, "targetMonth"); err != nil {
		return h.handleError(c, err, "preview rollover")
	}

	return h.preview(c, body)
}

// PostPreview handles POST /api/v1/rollover/preview
func (h *RolloverHandler) PostPreview(c echo.Context) error {
	var body RolloverRequestBody
	if err := c.Bind(&body); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	return h.preview(c, body)
}

func (h *RolloverHandler) preview(c echo.Context, body RolloverRequestBody) error {
	req, err := h.buildRequest(c, body)
	if err != nil {
		return h.handleError(c, err, "preview rollover")
	}

	preview, err := h.rolloverService.Preview(c.Request().Context(), *req)
	if err != nil {
		return h.handleError(c, err, "preview rollover")
	}

	return c.JSON(http.StatusOK, toPreviewResponse(preview))
}

// Execute handles POST /api/v1/rollover/execute. A run where some categories
// failed returns 207 with the committed details and the per-category errors.
func (h *RolloverHandler) Execute(c echo.Context) error {
	var body RolloverRequestBody
	if err := c.Bind(&body); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	req, err := h.buildRequest(c, body)
	if err != nil {
		return h.handleError(c, err, "execute rollover")
	}

	result, err := h.rolloverService.Execute(c.Request().Context(), *req)
	if err != nil && result == nil {
		return h.handleError(c, err, "execute rollover")
	}

	response := toExecuteResponse(result)
	if err != nil {
		log.Warn().Err(err).Str("user_id", middleware.GetUserID(c).String()).Msg("Rollover completed with errors")
		if len(response.Errors) == 0 {
			response.Errors = []CategoryErrorResponse{{Message: "Failed to record rollover history"}}
		}
		return c.JSON(http.StatusMultiStatus, response)
	}

	response.Success = true
	return c.JSON(http.StatusOK, response)
}

// GetSettings handles GET /api/v1/rollover/settings
func (h *RolloverHandler) GetSettings(c echo.Context) error {
	settings, err := h.settingsService.GetSettings(c.Request().Context())
	if err != nil {
		return h.handleError(c, err, "get rollover settings")
	}
	return c.JSON(http.StatusOK, toSettingsResponse(settings))
}

// UpdateSettings handles PUT /api/v1/rollover/settings
func (h *RolloverHandler) UpdateSettings(c echo.Context) error {
	var body UpdateSettingsRequest
	if err := c.Bind(&body); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	settings, err := h.settingsService.SaveSettings(c.Request().Context(), domain.RolloverSettings{
		AutoResetEnabled:       body.AutoResetEnabled,
		ResetDay:               body.ResetDay,
		CarryOverEnabled:       body.CarryOverEnabled,
		CarryOverCategories:    body.CarryOverCategories,
		MaxCarryOverPercentage: body.MaxCarryOverPercentage,
	})
	if err != nil {
		return h.handleError(c, err, "update rollover settings")
	}

	return c.JSON(http.StatusOK, toSettingsResponse(settings))
}

// GetHistory handles GET /api/v1/rollover/history
func (h *RolloverHandler) GetHistory(c echo.Context) error {
	history, err := h.settingsService.GetHistory(c.Request().Context())
	if err != nil {
		return h.handleError(c, err, "get rollover history")
	}
	return c.JSON(http.StatusOK, toHistoryResponse(history))
}

// buildRequest starts from the stored settings and applies the body's overrides
func (h *RolloverHandler) buildRequest(c echo.Context, body RolloverRequestBody) (*domain.RolloverRequest, error) {
	source := domain.Period{Month: body.SourceMonth, Year: body.SourceYear}
	if err := source.Validate(); err != nil {
		return nil, err
	}

	target := source.Next()
	if (body.TargetYear == nil) != (body.TargetMonth == nil) {
		return nil, fmt.Errorf("%w: targetYear and targetMonth must be given together", domain.ErrInvalidPeriod)
	}
	if body.TargetYear != nil {
		target = domain.Period{Month: *body.TargetMonth, Year: *body.TargetYear}
	}

	req, err := h.rolloverService.RequestFromSettings(c.Request().Context(), source, target)
	if err != nil {
		return nil, err
	}
	if body.CarryOverCategories != nil {
		req.CarryOverCategories = *body.CarryOverCategories
	}
	if body.MaxCarryOverPercentage != nil {
		req.MaxCarryOverPercentage = *body.MaxCarryOverPercentage
	}
	return req, nil
}

// handleError maps service errors to problem responses
func (h *RolloverHandler) handleError(c echo.Context, err error, action string) error {
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		return NewUnauthorizedError(c, "Authentication required")
	case errors.Is(err, domain.ErrNoSourceBudgets):
		return NewUnprocessableError(c, "No budgets found in source period")
	case errors.Is(err, domain.ErrInvalidPeriod):
		return NewValidationError(c, "Invalid period", []ValidationError{{Field: "period", Message: err.Error()}})
	case errors.Is(err, domain.ErrInvalidPercentage):
		return NewValidationError(c, "Invalid carry-over percentage", []ValidationError{{Field: "maxCarryOverPercentage", Message: err.Error()}})
	case errors.Is(err, domain.ErrInvalidResetDay):
		return NewValidationError(c, "Invalid reset day", []ValidationError{{Field: "resetDay", Message: err.Error()}})
	case errors.Is(err, domain.ErrInvalidInput):
		return NewValidationError(c, err.Error(), nil)
	}

	log.Error().Err(err).Str("user_id", middleware.GetUserID(c).String()).Msg("Failed to " + action)
	return NewInternalError(c, "Failed to "+action)
}

func queryInt(c echo.Context, name string) (*int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, name)
	}
	return &v, nil
}

func toPeriodResponse(p domain.Period) PeriodResponse {
	return PeriodResponse{Year: p.Year, Month: p.Month}
}

func toPlanResponse(p domain.RolloverPlan) PlanResponse {
	return PlanResponse{
		Category:            p.Category,
		OriginalLimit:       p.OriginalLimit.StringFixed(2),
		CarriedOverAmount:   p.CarriedOverAmount.StringFixed(2),
		NewLimit:            p.NewLimit.StringFixed(2),
		UnspentFromPrevious: p.UnspentFromPrevious.StringFixed(2),
	}
}

func toPreviewResponse(p *domain.RolloverPreview) PreviewResponse {
	response := PreviewResponse{
		SourcePeriod:               toPeriodResponse(p.Source),
		TargetPeriod:               toPeriodResponse(p.Target),
		CategoriesWithCarryover:    make([]PlanResponse, len(p.CategoriesWithCarryover)),
		CategoriesWithoutCarryover: make([]SkippedCategoryResponse, len(p.CategoriesWithoutCarryover)),
		TotalCarryOverAmount:       p.TotalCarryOverAmount.StringFixed(2),
	}
	for i, plan := range p.CategoriesWithCarryover {
		response.CategoriesWithCarryover[i] = toPlanResponse(plan)
	}
	for i, skipped := range p.CategoriesWithoutCarryover {
		response.CategoriesWithoutCarryover[i] = SkippedCategoryResponse{
			PlanResponse: toPlanResponse(skipped.RolloverPlan),
			Reason:       string(skipped.Reason),
		}
	}
	return response
}

func toExecuteResponse(r *domain.RolloverResult) ExecuteResponse {
	response := ExecuteResponse{
		SourcePeriod:           toPeriodResponse(r.Source),
		TargetPeriod:           toPeriodResponse(r.Target),
		CopiedBudgets:          r.CopiedBudgets,
		TotalCarriedOverAmount: r.TotalCarriedOverAmount.StringFixed(2),
		Details:                make([]PlanResponse, len(r.Details)),
	}
	for i, d := range r.Details {
		response.Details[i] = toPlanResponse(d)
	}
	for _, f := range r.Failures {
		response.Errors = append(response.Errors, CategoryErrorResponse{Category: f.Category, Message: f.Message})
	}
	return response
}

func toHistoryResponse(history []domain.RolloverRecord) []HistoryRecordResponse {
	response := make([]HistoryRecordResponse, len(history))
	for i, r := range history {
		response[i] = HistoryRecordResponse{
			ResetDate:           r.ResetDate,
			SourcePeriod:        toPeriodResponse(r.SourcePeriod),
			TargetPeriod:        toPeriodResponse(r.TargetPeriod),
			TotalCarriedOver:    r.TotalCarriedOver.StringFixed(2),
			CategoriesCount:     r.CategoriesCount,
			CarryOverCategories: r.CarryOverCategories,
		}
	}
	return response
}

func toSettingsResponse(s *domain.RolloverSettings) SettingsResponse {
	return SettingsResponse{
		AutoResetEnabled:       s.AutoResetEnabled,
		ResetDay:               s.ResetDay,
		CarryOverEnabled:       s.CarryOverEnabled,
		CarryOverCategories:    s.CarryOverCategories,
		MaxCarryOverPercentage: s.MaxCarryOverPercentage.String(),
		History:                toHistoryResponse(s.History),
	}
}
