package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/practice/practice/internal/platform/derive"
)

// DefaultPrices is the price table used until the catalog has been loaded,
// and whenever it cannot be.
var DefaultPrices = derive.PriceTable{Prices: map[string]float64{
	"consultation": 75,
	"follow-up":    45,
	"checkup":      60,
	"vaccination":  30,
	"procedure":    150,
}}

// Lister lists catalog items.
type Lister interface {
	List(ctx context.Context, limit, offset int) ([]*Item, int, error)
}

// PriceBook holds the current price table of bookable services.
type PriceBook struct {
	mu    sync.RWMutex
	table derive.PriceTable
}

// NewPriceBook starts from DefaultPrices.
func NewPriceBook() *PriceBook {
	return &PriceBook{table: DefaultPrices}
}

// Table returns the current prices.
func (b *PriceBook) Table() derive.PriceTable {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.table
}

// Reload replaces the table with the prices of every catalog item. An empty
// catalog keeps the current table.
func (b *PriceBook) Reload(ctx context.Context, src Lister) error {
	items, _, err := src.List(ctx, 1000, 0)
	if err != nil {
		return fmt.Errorf("load service prices: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	prices := make(map[string]float64, len(items))
	for _, it := range items {
		prices[it.Code] = it.Price
	}
	b.mu.Lock()
	b.table = derive.PriceTable{Prices: prices}
	b.mu.Unlock()
	return nil
}
