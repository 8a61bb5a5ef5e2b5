package application

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/ExpenseTracker/internal/finance/errors"
)

type CategoryServiceInterface interface {
	IsCategoryVisible(ctx context.Context, categoryID int64, userID string) (bool, error)
	GetSystemCategories(ctx context.Context) ([]domain.Category, error)
	GetUserCategories(ctx context.Context, userID string) ([]domain.Category, error)
}

type TransactionService struct {
	repo            domain.TransactionRepository
	categoryService CategoryServiceInterface
}

func NewTransactionService(repo domain.TransactionRepository, categoryService CategoryServiceInterface) *TransactionService {
	return &TransactionService{repo: repo, categoryService: categoryService}
}

type TransactionSummary struct {
	Year         int                     `json:"year"`
	IncomeTotal  float64                 `json:"income_total"`
	ExpenseTotal float64                 `json:"expense_total"`
	Months       map[string]MonthSummary `json:"months"`
}

type MonthSummary struct {
	IncomeTotal  float64       `json:"income_total"`
	ExpenseTotal float64       `json:"expense_total"`
	Weeks        []WeekSummary `json:"weeks"`
}

type WeekSummary struct {
	Week         int     `json:"week"`
	IncomeTotal  float64 `json:"income_total"`
	ExpenseTotal float64 `json:"expense_total"`
}

func (s *TransactionService) GetTransactionSummary(ctx context.Context, userID string, startDate, endDate time.Time) (map[int]TransactionSummary, error) {
	summary := make(map[int]TransactionSummary)
	if !isUUID(userID) {
		return summary, nil
	}

	transactions, err := s.repo.FindInDateRange(ctx, userID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	for _, transaction := range transactions {
		year := transaction.Date.Year()
		month := transaction.Date.Month().String()
		_, week := transaction.Date.ISOWeek()

		yearSummary, exists := summary[year]
		if !exists {
			yearSummary = TransactionSummary{
				Year:   year,
				Months: make(map[string]MonthSummary),
			}
		}

		monthSummary, exists := yearSummary.Months[month]
		if !exists {
			monthSummary = MonthSummary{Weeks: []WeekSummary{}}
		}

		weekIdx := -1
		for i, weekSummary := range monthSummary.Weeks {
			if weekSummary.Week == week {
				weekIdx = i
				break
			}
		}
		if weekIdx < 0 {
			monthSummary.Weeks = append(monthSummary.Weeks, WeekSummary{Week: week})
			weekIdx = len(monthSummary.Weeks) - 1
		}

		switch transaction.Type {
		case domain.TypeIncome:
			yearSummary.IncomeTotal += transaction.Amount
			monthSummary.IncomeTotal += transaction.Amount
			monthSummary.Weeks[weekIdx].IncomeTotal += transaction.Amount
		case domain.TypeExpense:
			yearSummary.ExpenseTotal += transaction.Amount
			monthSummary.ExpenseTotal += transaction.Amount
			monthSummary.Weeks[weekIdx].ExpenseTotal += transaction.Amount
		}

		yearSummary.Months[month] = monthSummary
		summary[year] = yearSummary
	}

	for year, yearSummary := range summary {
		yearSummary.IncomeTotal = roundCents(yearSummary.IncomeTotal)
		yearSummary.ExpenseTotal = roundCents(yearSummary.ExpenseTotal)
		for month, monthSummary := range yearSummary.Months {
			monthSummary.IncomeTotal = roundCents(monthSummary.IncomeTotal)
			monthSummary.ExpenseTotal = roundCents(monthSummary.ExpenseTotal)
			sort.Slice(monthSummary.Weeks, func(i, j int) bool { return monthSummary.Weeks[i].Week < monthSummary.Weeks[j].Week })
			for i := range monthSummary.Weeks {
				monthSummary.Weeks[i].IncomeTotal = roundCents(monthSummary.Weeks[i].IncomeTotal)
				monthSummary.Weeks[i].ExpenseTotal = roundCents(monthSummary.Weeks[i].ExpenseTotal)
			}
			yearSummary.Months[month] = monthSummary
		}
		summary[year] = yearSummary
	}

	return summary, nil
}

// CategoryBreakdown is the share of total expenses spent in one category.
type CategoryBreakdown struct {
	CategoryID int64   `json:"category_id"`
	Name       string  `json:"name"`
	Total      float64 `json:"total"`
	Count      int     `json:"count"`
	Percentage int     `json:"percentage"`
}

type Breakdown struct {
	TotalIncome     float64             `json:"total_income"`
	TotalExpenses   float64             `json:"total_expenses"`
	Net             float64             `json:"net"`
	Categories      []CategoryBreakdown `json:"categories"`
	HighestCategory *CategoryBreakdown  `json:"highest_category"`
}

// GetTransactionBreakdown totals every transaction of the user and splits the
// expenses per category, largest first.
func (s *TransactionService) GetTransactionBreakdown(ctx context.Context, userID string) (*Breakdown, error) {
	breakdown := &Breakdown{Categories: []CategoryBreakdown{}}
	if !isUUID(userID) {
		return breakdown, nil
	}

	transactions, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	names, err := s.categoryNames(ctx, userID)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[int64]*CategoryBreakdown)
	for _, transaction := range transactions {
		switch transaction.Type {
		case domain.TypeIncome:
			breakdown.TotalIncome += transaction.Amount
		case domain.TypeExpense:
			breakdown.TotalExpenses += transaction.Amount
			entry, ok := byCategory[transaction.CategoryID]
			if !ok {
				entry = &CategoryBreakdown{CategoryID: transaction.CategoryID, Name: names[transaction.CategoryID]}
				byCategory[transaction.CategoryID] = entry
			}
			entry.Total += transaction.Amount
			entry.Count++
		}
	}

	breakdown.TotalIncome = roundCents(breakdown.TotalIncome)
	breakdown.TotalExpenses = roundCents(breakdown.TotalExpenses)
	breakdown.Net = roundCents(breakdown.TotalIncome - breakdown.TotalExpenses)

	for _, entry := range byCategory {
		entry.Total = roundCents(entry.Total)
		if breakdown.TotalExpenses > 0 {
			entry.Percentage = int(math.Round(entry.Total / breakdown.TotalExpenses * 100))
		}
		breakdown.Categories = append(breakdown.Categories, *entry)
	}
	sort.Slice(breakdown.Categories, func(i, j int) bool {
		a, b := breakdown.Categories[i], breakdown.Categories[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.CategoryID < b.CategoryID
	})
	if len(breakdown.Categories) > 0 {
		highest := breakdown.Categories[0]
		breakdown.HighestCategory = &highest
	}

	return breakdown, nil
}

func (s *TransactionService) categoryNames(ctx context.Context, userID string) (map[int64]string, error) {
	system, err := s.categoryService.GetSystemCategories(ctx)
	if err != nil {
		return nil, err
	}
	own, err := s.categoryService.GetUserCategories(ctx, userID)
	if err != nil {
		return nil, err
	}

	names := make(map[int64]string, len(system)+len(own))
	for _, category := range append(system, own...) {
		names[category.ID] = category.Name
	}
	return names, nil
}

func (s *TransactionService) CreateTransaction(ctx context.Context, transaction *domain.Transaction) error {
	if !isUUID(transaction.UserID) {
		return financeErrors.NewValidationError("Missing user ID")
	}
	transaction.RoundToTwoDecimalPlaces()
	if err := transaction.Validate(); err != nil {
		return err
	}

	visible, err := s.categoryService.IsCategoryVisible(ctx, transaction.CategoryID, transaction.UserID)
	if err != nil {
		return err
	}
	if !visible {
		return financeErrors.ErrInvalidCategory
	}

	return s.repo.Create(ctx, transaction)
}

func (s *TransactionService) GetUserTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	if !isUUID(userID) {
		return []domain.Transaction{}, nil
	}
	transactions, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if transactions == nil {
		return []domain.Transaction{}, nil
	}
	return transactions, nil
}

func (s *TransactionService) UpdateTransaction(ctx context.Context, userID, transactionID string, patch domain.TransactionPatch) (*domain.Transaction, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if !isUUID(userID) || !isUUID(transactionID) {
		return nil, financeErrors.ErrNotFound
	}
	return s.repo.Update(ctx, transactionID, userID, patch)
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	if !isUUID(userID) || !isUUID(transactionID) {
		return financeErrors.ErrNotFound
	}
	return s.repo.Delete(ctx, transactionID, userID)
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
