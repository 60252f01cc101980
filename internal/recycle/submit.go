// Package recycle turns a list of recycled items into ledger credits.
package recycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dukerupert/reloop/internal/model"
)

const (
	ActivityType = "Recycled"
	maxQuantity  = 100
	maxItems     = 50
)

var (
	ErrNoItems         = errors.New("at least one item is required")
	ErrTooManyItems    = fmt.Errorf("at most %d items per submission", maxItems)
	ErrInvalidQuantity = fmt.Errorf("quantity must be between 1 and %d", maxQuantity)
	ErrInvalidItem     = errors.New("item name is required")
)

type Item struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Quantity int    `json:"quantity"`
}

type Line struct {
	Item     string `json:"item"`
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
	Points   int    `json:"points"`
}

type Receipt struct {
	Lines      []Line           `json:"lines"`
	Total      int              `json:"total"`
	Activities []model.Activity `json:"activities"`
}

// Earner credits a batch of earnings for one user atomically.
type Earner interface {
	EarnMany(ctx context.Context, userID int64, earnings []model.Earning) ([]model.Activity, error)
}

type Service struct {
	earner Earner
	rates  Rates
}

func NewService(earner Earner, rates Rates) *Service {
	if len(rates) == 0 {
		rates = DefaultRates
	}
	return &Service{earner: earner, rates: rates}
}

func (s *Service) Rates() Rates {
	return s.rates
}

// Quote prices items without crediting anything. Items without a category
// are classified from their name.
func (s *Service) Quote(items []Item) ([]Line, int, error) {
	if len(items) == 0 {
		return nil, 0, ErrNoItems
	}
	if len(items) > maxItems {
		return nil, 0, ErrTooManyItems
	}

	lines := make([]Line, 0, len(items))
	total := 0
	for _, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			return nil, 0, ErrInvalidItem
		}
		if it.Quantity < 1 || it.Quantity > maxQuantity {
			return nil, 0, ErrInvalidQuantity
		}
		category := strings.TrimSpace(it.Category)
		if _, known := s.rates[category]; !known {
			category = Classify(name)
		}
		pts := s.rates.PerItem(category) * it.Quantity
		lines = append(lines, Line{Item: name, Category: category, Quantity: it.Quantity, Points: pts})
		total += pts
	}
	return lines, total, nil
}

// Submit credits one activity per item line in a single ledger transaction.
func (s *Service) Submit(ctx context.Context, userID int64, items []Item) (*Receipt, error) {
	lines, total, err := s.Quote(items)
	if err != nil {
		return nil, err
	}

	earnings := make([]model.Earning, 0, len(lines))
	for _, l := range lines {
		item := l.Item
		if l.Quantity > 1 {
			item = fmt.Sprintf("%s x%d", l.Item, l.Quantity)
		}
		earnings = append(earnings, model.Earning{
			UserID:      userID,
			Type:        ActivityType,
			Category:    l.Category,
			Item:        item,
			Points:      l.Points,
			IsRecycling: true,
		})
	}

	acts, err := s.earner.EarnMany(ctx, userID, earnings)
	if err != nil {
		return nil, fmt.Errorf("credit recycled items: %w", err)
	}
	return &Receipt{Lines: lines, Total: total, Activities: acts}, nil
}
