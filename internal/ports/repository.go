package ports

import (
	"context"
	"time"

	"github.com/tahmidmalekzoha/rawjournal/internal/domain"
)

// TradeFilter scopes a trade query. Zero values mean "no constraint".
type TradeFilter struct {
	AccountID string
	Symbol    string
	Session   string
	Direction domain.Direction
	From      time.Time // Inclusive lower bound on exit time
	To        time.Time // Exclusive upper bound on exit time
}

// IsScopeOnly reports whether the filter constrains nothing but account and time.
func (f TradeFilter) IsScopeOnly() bool {
	return f.Symbol == "" && f.Session == "" && f.Direction == ""
}

// TradeRepository defines the interface for storing and retrieving journaled trades.
type TradeRepository interface {
	// CreateTrade saves a new trade record and returns its assigned ID.
	// Returns ErrDuplicateEntry if the account already has the ticket number.
	CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error)
	// FindByID retrieves a trade by its unique ID.
	// Returns nil, nil if not found.
	FindByID(ctx context.Context, id int64) (*domain.Trade, error)
	// FindClosed retrieves closed trades matching the filter, ordered by exit time ascending.
	FindClosed(ctx context.Context, filter TradeFilter) ([]*domain.Trade, error)
	// DeleteTrade removes a trade. Returns ErrNotFound if it does not exist.
	DeleteTrade(ctx context.Context, id int64) error
	// LastModified returns a watermark that advances on every write to the account's trades,
	// or the zero time if nothing was ever written. An empty account means all accounts.
	LastModified(ctx context.Context, accountID string) (time.Time, error)
}

// CacheKey identifies a cached report: the scope it covers and the data watermark it was built from.
// Since is the resolved start of Period; it moves when a day, week, month or year rolls over.
type CacheKey struct {
	AccountID string
	Period    domain.Period
	Since     time.Time
	Watermark time.Time
}

// ReportCache stores serialized analytics reports.
type ReportCache interface {
	// GetReport returns the cached payload for key; ok is false on a miss.
	GetReport(ctx context.Context, key CacheKey) (payload []byte, ok bool, err error)
	// PutReport stores payload under key, replacing any older entry for the same scope.
	PutReport(ctx context.Context, key CacheKey, payload []byte) error
}
