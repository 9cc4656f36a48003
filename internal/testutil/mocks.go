package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dafibh/fortuna/fortuna-rollover/internal/domain"
	"github.com/dafibh/fortuna/fortuna-rollover/internal/websocket"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockUserRepository is a mock implementation of domain.UserRepository
type MockUserRepository struct {
	Users    map[string]*domain.User
	CreateFn func(auth0ID, email string, name *string) (*domain.User, error)
}

// NewMockUserRepository creates a new MockUserRepository
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users: make(map[string]*domain.User),
	}
}

// GetByAuth0ID retrieves a user by Auth0 ID
func (m *MockUserRepository) GetByAuth0ID(ctx context.Context, auth0ID string) (*domain.User, error) {
	if user, ok := m.Users[auth0ID]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// CreateOrGetByAuth0ID creates or retrieves a user by Auth0 ID
func (m *MockUserRepository) CreateOrGetByAuth0ID(ctx context.Context, auth0ID, email string, name *string) (*domain.User, error) {
	if m.CreateFn != nil {
		return m.CreateFn(auth0ID, email, name)
	}
	if user, ok := m.Users[auth0ID]; ok {
		return user, nil
	}
	user := &domain.User{
		ID:        uuid.New(),
		Auth0ID:   auth0ID,
		Email:     email,
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.Users[auth0ID] = user
	return user, nil
}

// AddUser adds a user to the mock repository
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.Users[user.Auth0ID] = user
}

// MockBudgetRepository is an in-memory domain.BudgetRepository that enforces
// the (user, category, month, year) uniqueness of the real table
type MockBudgetRepository struct {
	mu      sync.Mutex
	Budgets map[uuid.UUID]*domain.Budget
	order   []uuid.UUID

	GetByPeriodFn   func(userID uuid.UUID, period domain.Period) ([]*domain.Budget, error)
	GetByCategoryFn func(userID uuid.UUID, category string, period domain.Period) (*domain.Budget, error)
	CreateFn        func(budget *domain.Budget) (*domain.Budget, error)
	UpdateLimitFn   func(userID, id uuid.UUID, limit decimal.Decimal) (*domain.Budget, error)

	GetByPeriodCalls int
	CreateCalls      int
	UpdateCalls      int
}

// NewMockBudgetRepository creates a new MockBudgetRepository
func NewMockBudgetRepository() *MockBudgetRepository {
	return &MockBudgetRepository{
		Budgets: make(map[uuid.UUID]*domain.Budget),
	}
}

// GetByPeriod returns the user's budgets for period in insertion order
func (m *MockBudgetRepository) GetByPeriod(ctx context.Context, userID uuid.UUID, period domain.Period) ([]*domain.Budget, error) {
	m.mu.Lock()
	m.GetByPeriodCalls++
	m.mu.Unlock()
	if m.GetByPeriodFn != nil {
		return m.GetByPeriodFn(userID, period)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Budget, 0)
	for _, id := range m.order {
		b := m.Budgets[id]
		if b.UserID == userID && b.Month == period.Month && b.Year == period.Year {
			copied := *b
			result = append(result, &copied)
		}
	}
	return result, nil
}

// GetByCategory returns the budget for the tuple or domain.ErrBudgetNotFound
func (m *MockBudgetRepository) GetByCategory(ctx context.Context, userID uuid.UUID, category string, period domain.Period) (*domain.Budget, error) {
	if m.GetByCategoryFn != nil {
		return m.GetByCategoryFn(userID, category, period)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if b := m.find(userID, category, period); b != nil {
		copied := *b
		return &copied, nil
	}
	return nil, domain.ErrBudgetNotFound
}

// Create inserts a budget, failing when the tuple already exists
func (m *MockBudgetRepository) Create(ctx context.Context, budget *domain.Budget) (*domain.Budget, error) {
	m.mu.Lock()
	m.CreateCalls++
	m.mu.Unlock()
	if m.CreateFn != nil {
		return m.CreateFn(budget)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.find(budget.UserID, budget.Category, budget.Period()) != nil {
		return nil, fmt.Errorf("duplicate budget for %s in %s", budget.Category, budget.Period())
	}
	m.insert(budget)
	copied := *budget
	return &copied, nil
}

// UpdateLimit overwrites the limit of an existing budget
func (m *MockBudgetRepository) UpdateLimit(ctx context.Context, userID, id uuid.UUID, limit decimal.Decimal) (*domain.Budget, error) {
	m.mu.Lock()
	m.UpdateCalls++
	m.mu.Unlock()
	if m.UpdateLimitFn != nil {
		return m.UpdateLimitFn(userID, id, limit)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.Budgets[id]
	if !ok || b.UserID != userID {
		return nil, domain.ErrBudgetNotFound
	}
	b.MonthlyLimit = limit
	b.UpdatedAt = time.Now()
	copied := *b
	return &copied, nil
}

// AddBudget adds a budget to the mock repository
func (m *MockBudgetRepository) AddBudget(budget *domain.Budget) *domain.Budget {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insert(budget)
	return budget
}

// Find returns the stored budget for the tuple, or nil
func (m *MockBudgetRepository) Find(userID uuid.UUID, category string, period domain.Period) *domain.Budget {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(userID, category, period)
}

// CountForPeriod returns how many budgets the user has in period
func (m *MockBudgetRepository) CountForPeriod(userID uuid.UUID, period domain.Period) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, b := range m.Budgets {
		if b.UserID == userID && b.Month == period.Month && b.Year == period.Year {
			count++
		}
	}
	return count
}

func (m *MockBudgetRepository) insert(budget *domain.Budget) {
	if budget.ID == uuid.Nil {
		budget.ID = uuid.New()
	}
	now := time.Now()
	budget.CreatedAt = now
	budget.UpdatedAt = now
	stored := *budget
	m.Budgets[budget.ID] = &stored
	m.order = append(m.order, budget.ID)
}

func (m *MockBudgetRepository) find(userID uuid.UUID, category string, period domain.Period) *domain.Budget {
	for _, b := range m.Budgets {
		if b.UserID == userID && b.Category == category && b.Month == period.Month && b.Year == period.Year {
			return b
		}
	}
	return nil
}

// MockExpenseRepository is a mock implementation of domain.ExpenseRepository
type MockExpenseRepository struct {
	Expenses         []*domain.Expense
	GetByDateRangeFn func(userID uuid.UUID, from, to time.Time) ([]*domain.Expense, error)
	Calls            int
}

// NewMockExpenseRepository creates a new MockExpenseRepository
func NewMockExpenseRepository() *MockExpenseRepository {
	return &MockExpenseRepository{
		Expenses: make([]*domain.Expense, 0),
	}
}

// GetByDateRange returns the user's expenses dated on any day in [from, to]
func (m *MockExpenseRepository) GetByDateRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*domain.Expense, error) {
	m.Calls++
	if m.GetByDateRangeFn != nil {
		return m.GetByDateRangeFn(userID, from, to)
	}

	end := to.AddDate(0, 0, 1)
	result := make([]*domain.Expense, 0)
	for _, e := range m.Expenses {
		if e.UserID != userID {
			continue
		}
		if e.Date.Before(from) || !e.Date.Before(end) {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

// AddExpense adds an expense to the mock repository
func (m *MockExpenseRepository) AddExpense(userID uuid.UUID, category string, amount decimal.Decimal, date time.Time) *domain.Expense {
	expense := &domain.Expense{
		ID:        uuid.New(),
		UserID:    userID,
		Category:  category,
		Amount:    amount,
		Date:      date,
		CreatedAt: time.Now(),
	}
	m.Expenses = append(m.Expenses, expense)
	return expense
}

// MockUserPreferenceRepository is a mock implementation of domain.UserPreferenceRepository
type MockUserPreferenceRepository struct {
	mu          sync.Mutex
	Preferences map[string]*domain.UserPreference

	GetFn        func(userID uuid.UUID, preferenceType string) (*domain.UserPreference, error)
	UpsertFn     func(userID uuid.UUID, preferenceType string, payload json.RawMessage) error
	ListByTypeFn func(preferenceType string) ([]*domain.UserPreference, error)

	UpsertCalls int
}

// NewMockUserPreferenceRepository creates a new MockUserPreferenceRepository
func NewMockUserPreferenceRepository() *MockUserPreferenceRepository {
	return &MockUserPreferenceRepository{
		Preferences: make(map[string]*domain.UserPreference),
	}
}

func preferenceKey(userID uuid.UUID, preferenceType string) string {
	return fmt.Sprintf("%s-%s", userID, preferenceType)
}

// Get retrieves a preference document
func (m *MockUserPreferenceRepository) Get(ctx context.Context, userID uuid.UUID, preferenceType string) (*domain.UserPreference, error) {
	if m.GetFn != nil {
		return m.GetFn(userID, preferenceType)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	pref, ok := m.Preferences[preferenceKey(userID, preferenceType)]
	if !ok {
		return nil, domain.ErrPreferenceNotFound
	}
	copied := *pref
	return &copied, nil
}

// Upsert stores a preference document, replacing any existing one
func (m *MockUserPreferenceRepository) Upsert(ctx context.Context, userID uuid.UUID, preferenceType string, payload json.RawMessage) error {
	m.mu.Lock()
	m.UpsertCalls++
	m.mu.Unlock()
	if m.UpsertFn != nil {
		return m.UpsertFn(userID, preferenceType, payload)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Preferences[preferenceKey(userID, preferenceType)] = &domain.UserPreference{
		UserID:         userID,
		PreferenceType: preferenceType,
		Payload:        append(json.RawMessage(nil), payload...),
		UpdatedAt:      time.Now(),
	}
	return nil
}

// ListByType returns every stored document of preferenceType ordered by user ID
func (m *MockUserPreferenceRepository) ListByType(ctx context.Context, preferenceType string) ([]*domain.UserPreference, error) {
	if m.ListByTypeFn != nil {
		return m.ListByTypeFn(preferenceType)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.UserPreference, 0)
	for _, p := range m.Preferences {
		if p.PreferenceType == preferenceType {
			copied := *p
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UserID.String() < result[j].UserID.String()
	})
	return result, nil
}

// SetPayload stores a raw JSON document for the user
func (m *MockUserPreferenceRepository) SetPayload(userID uuid.UUID, preferenceType string, payload string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Preferences[preferenceKey(userID, preferenceType)] = &domain.UserPreference{
		UserID:         userID,
		PreferenceType: preferenceType,
		Payload:        json.RawMessage(payload),
		UpdatedAt:      time.Now(),
	}
}

// MockIdentity is a mock implementation of domain.IdentityProvider
type MockIdentity struct {
	UserID uuid.UUID
	Err    error
	Calls  int
}

// NewMockIdentity returns an identity resolving to userID
func NewMockIdentity(userID uuid.UUID) *MockIdentity {
	return &MockIdentity{UserID: userID}
}

// CurrentUserID returns the configured user or error
func (m *MockIdentity) CurrentUserID(ctx context.Context) (uuid.UUID, error) {
	m.Calls++
	if m.Err != nil {
		return uuid.Nil, m.Err
	}
	if m.UserID == uuid.Nil {
		return uuid.Nil, domain.ErrNotAuthenticated
	}
	return m.UserID, nil
}

// PublishedEvent pairs a published event with its recipient
type PublishedEvent struct {
	UserID uuid.UUID
	Event  websocket.Event
}

// MockEventPublisher captures published events
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
}

// NewMockEventPublisher creates a new MockEventPublisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

// Publish records the event
func (m *MockEventPublisher) Publish(userID uuid.UUID, event websocket.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, PublishedEvent{UserID: userID, Event: event})
}

// EventsOfType returns the captured events with the given type
func (m *MockEventPublisher) EventsOfType(eventType string) []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]PublishedEvent, 0)
	for _, e := range m.Events {
		if e.Event.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

// MockRolloverArchive captures archived rollover results
type MockRolloverArchive struct {
	Archived []*domain.RolloverResult
	Err      error
}

// Archive records the result and returns a deterministic key
func (m *MockRolloverArchive) Archive(ctx context.Context, userID uuid.UUID, result *domain.RolloverResult) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.Archived = append(m.Archived, result)
	return fmt.Sprintf("rollovers/%s/%s/%d.json", userID, result.Target, len(m.Archived)), nil
}
