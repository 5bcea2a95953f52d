package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/tahmidmalekzoha/rawjournal/internal/domain"
	"github.com/tahmidmalekzoha/rawjournal/internal/ports"
)

// Repository implements the ports.TradeRepository and ports.ReportCache interfaces using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
	now    func() time.Time
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
	Now    func() time.Time // Clock for created/updated stamps; defaults to time.Now
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository: %w", ports.ErrConfigurationError)
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/rawjournal.db"
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
			cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// One connection: SQLite serializes writers anyway, and ":memory:" databases are per-connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger, now: now}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite journal opened", ports.Fields{"path": dbPath})

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id TEXT NOT NULL,
		ticket_number TEXT NOT NULL,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_time TIMESTAMP NOT NULL,
		exit_time TIMESTAMP DEFAULT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL DEFAULT NULL,
		position_size REAL NOT NULL,
		pnl REAL DEFAULT NULL,
		pnl_pips REAL DEFAULT NULL,
		commission REAL NOT NULL DEFAULT 0,
		swap REAL NOT NULL DEFAULT 0,
		stop_loss REAL DEFAULT NULL,
		take_profit REAL DEFAULT NULL,
		status TEXT NOT NULL,
		import_source TEXT NOT NULL,
		session_tag TEXT DEFAULT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (account_id, ticket_number)
	);

	-- Advances on every write so cached reports can be invalidated, deletes included.
	CREATE TABLE IF NOT EXISTS account_watermarks (
		account_id TEXT PRIMARY KEY,
		modified_ns INTEGER NOT NULL
	);

	-- Single row, advanced on every write to any account.
	CREATE TABLE IF NOT EXISTS journal_watermark (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		modified_ns INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS analytics_cache (
		account_id TEXT NOT NULL,
		period TEXT NOT NULL,
		since_ns INTEGER NOT NULL,
		watermark_ns INTEGER NOT NULL,
		payload TEXT NOT NULL,
		calculated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (account_id, period)
	);

	CREATE INDEX IF NOT EXISTS idx_trades_account_status_exit ON trades (account_id, status, exit_time);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol_exit ON trades (symbol, exit_time);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Debug(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- TradeRepository Implementation ---

// CreateTrade saves a new trade record and returns its assigned ID.
func (r *Repository) CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	const query = `
	INSERT INTO trades (account_id, ticket_number, symbol, direction, entry_time, exit_time,
	                    entry_price, exit_price, position_size, pnl, pnl_pips, commission, swap,
	                    stop_loss, take_profit, status, import_source, session_tag, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := r.now().UTC()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction for trade %s: %w", trade.TicketNumber, err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, query,
		trade.AccountID, trade.TicketNumber, trade.Symbol, trade.Direction, trade.EntryTime.UTC(), nullTime(trade.ExitTime),
		trade.EntryPrice, nullFloat(trade.ExitPrice), trade.PositionSize, nullFloat(trade.PNL), nullFloat(trade.PNLPips),
		trade.Commission, trade.Swap, nullFloat(trade.StopLoss), nullFloat(trade.TakeProfit),
		trade.Status, trade.Source, nullString(trade.SessionTag), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("trade %s already exists in account %s: %w", trade.TicketNumber, trade.AccountID, ports.ErrDuplicateEntry)
		}
		return 0, fmt.Errorf("failed to insert trade %s for symbol %s: %w", trade.TicketNumber, trade.Symbol, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for trade %s: %w", trade.TicketNumber, err)
	}
	if err := bumpWatermark(ctx, tx, trade.AccountID, now); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit trade %s: %w", trade.TicketNumber, err)
	}

	trade.ID = id
	trade.CreatedAt, trade.UpdatedAt = now, now
	r.logger.Debug(ctx, "Trade created", ports.Fields{"tradeID": id, "symbol": trade.Symbol, "account": trade.AccountID})
	return id, nil
}

// FindByID retrieves a trade by its unique ID.
func (r *Repository) FindByID(ctx context.Context, id int64) (*domain.Trade, error) {
	row := r.db.QueryRowContext(ctx, selectTrade+` WHERE id = ?`, id)
	trade, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug(ctx, "Trade not found by ID", ports.Fields{"tradeID": id})
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query trade by ID %d: %w", id, err)
	}
	return trade, nil
}

// FindClosed retrieves closed trades matching filter, ordered by exit time ascending.
func (r *Repository) FindClosed(ctx context.Context, filter ports.TradeFilter) ([]*domain.Trade, error) {
	where := []string{"status = ?"}
	args := []interface{}{domain.StatusClosed}

	if filter.AccountID != "" {
		where = append(where, "account_id = ?")
		args = append(args, filter.AccountID)
	}
	if filter.Symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, filter.Symbol)
	}
	if filter.Session != "" {
		where = append(where, "session_tag = ?")
		args = append(args, filter.Session)
	}
	if filter.Direction != "" {
		where = append(where, "direction = ?")
		args = append(args, filter.Direction)
	}
	if !filter.From.IsZero() {
		where = append(where, "exit_time >= ?")
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		where = append(where, "exit_time < ?")
		args = append(args, filter.To.UTC())
	}

	query := selectTrade + " WHERE " + strings.Join(where, " AND ") + " ORDER BY exit_time ASC, id ASC"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query closed trades: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade during FindClosed: %w", err)
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// DeleteTrade removes a trade by ID.
func (r *Repository) DeleteTrade(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for delete of trade %d: %w", id, err)
	}
	defer tx.Rollback()

	var accountID string
	err = tx.QueryRowContext(ctx, `SELECT account_id FROM trades WHERE id = ?`, id).Scan(&accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("trade ID %d not found for delete: %w", id, ports.ErrNotFound)
		}
		return fmt.Errorf("failed to look up trade %d: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete trade %d: %w: %w", id, ports.ErrDeleteFailed, err)
	}
	if err := bumpWatermark(ctx, tx, accountID, r.now().UTC()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete of trade %d: %w", id, err)
	}
	r.logger.Debug(ctx, "Trade deleted", ports.Fields{"tradeID": id, "account": accountID})
	return nil
}

// LastModified returns the write watermark of an account, or of all accounts when accountID is empty.
func (r *Repository) LastModified(ctx context.Context, accountID string) (time.Time, error) {
	query := `SELECT COALESCE(MAX(modified_ns), 0) FROM journal_watermark`
	var args []interface{}
	if accountID != "" {
		query = `SELECT COALESCE(MAX(modified_ns), 0) FROM account_watermarks WHERE account_id = ?`
		args = append(args, accountID)
	}

	var ns int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&ns); err != nil {
		return time.Time{}, fmt.Errorf("failed to read watermark for account %q: %w", accountID, err)
	}
	if ns == 0 {
		return time.Time{}, nil
	}
	return time.Unix(0, ns).UTC(), nil
}

// --- ReportCache Implementation ---

// GetReport returns the cached report payload for key, if one was stored for the same scope and watermark.
func (r *Repository) GetReport(ctx context.Context, key ports.CacheKey) ([]byte, bool, error) {
	const query = `
	SELECT payload FROM analytics_cache
	WHERE account_id = ? AND period = ? AND since_ns = ? AND watermark_ns = ?`

	var payload string
	err := r.db.QueryRowContext(ctx, query, key.AccountID, key.Period, unixNano(key.Since), unixNano(key.Watermark)).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cached report for %s/%s: %w", key.AccountID, key.Period, err)
	}
	return []byte(payload), true, nil
}

// PutReport stores payload under key, replacing the previous entry for the same account and period.
func (r *Repository) PutReport(ctx context.Context, key ports.CacheKey, payload []byte) error {
	const query = `
	INSERT INTO analytics_cache (account_id, period, since_ns, watermark_ns, payload, calculated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (account_id, period) DO UPDATE SET
		since_ns = excluded.since_ns,
		watermark_ns = excluded.watermark_ns,
		payload = excluded.payload,
		calculated_at = excluded.calculated_at`

	_, err := r.db.ExecContext(ctx, query,
		key.AccountID, key.Period, unixNano(key.Since), unixNano(key.Watermark), string(payload), r.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store cached report for %s/%s: %w: %w", key.AccountID, key.Period, ports.ErrUpdateFailed, err)
	}
	return nil
}

// --- Helpers ---

const selectTrade = `
	SELECT id, account_id, ticket_number, symbol, direction, entry_time, exit_time,
	       entry_price, exit_price, position_size, pnl, pnl_pips, commission, swap,
	       stop_loss, take_profit, status, import_source, session_tag, created_at, updated_at
	FROM trades`

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanTrade scans a row into a domain.Trade struct.
func scanTrade(s scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	var (
		direction, status, source       string
		exitTime                        sql.NullTime
		exitPrice, pnl, pnlPips, sl, tp sql.NullFloat64
		session                         sql.NullString
	)
	err := s.Scan(
		&t.ID, &t.AccountID, &t.TicketNumber, &t.Symbol, &direction, &t.EntryTime, &exitTime,
		&t.EntryPrice, &exitPrice, &t.PositionSize, &pnl, &pnlPips, &t.Commission, &t.Swap,
		&sl, &tp, &status, &source, &session, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}

	t.Direction = domain.Direction(direction)
	t.Status = domain.TradeStatus(status)
	t.Source = domain.ImportSource(source)
	if exitTime.Valid {
		t.ExitTime = domain.Time(exitTime.Time)
	}
	t.ExitPrice = floatPtr(exitPrice)
	t.PNL = floatPtr(pnl)
	t.PNLPips = floatPtr(pnlPips)
	t.StopLoss = floatPtr(sl)
	t.TakeProfit = floatPtr(tp)
	if session.Valid {
		t.SessionTag = session.String
	}
	return t, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// bumpWatermark moves the account and journal watermarks forward, strictly, even if the
// clock has not moved or has stepped back.
func bumpWatermark(ctx context.Context, db execer, accountID string, now time.Time) error {
	const accountQuery = `
	INSERT INTO account_watermarks (account_id, modified_ns) VALUES (?, ?)
	ON CONFLICT (account_id) DO UPDATE SET
		modified_ns = MAX(account_watermarks.modified_ns + 1, excluded.modified_ns)`
	const journalQuery = `
	INSERT INTO journal_watermark (id, modified_ns) VALUES (1, ?)
	ON CONFLICT (id) DO UPDATE SET
		modified_ns = MAX(journal_watermark.modified_ns + 1, excluded.modified_ns)`
	if _, err := db.ExecContext(ctx, accountQuery, accountID, now.UnixNano()); err != nil {
		return fmt.Errorf("failed to advance watermark for account %s: %w", accountID, err)
	}
	if _, err := db.ExecContext(ctx, journalQuery, now.UnixNano()); err != nil {
		return fmt.Errorf("failed to advance journal watermark: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return domain.Float64(v.Float64)
}
