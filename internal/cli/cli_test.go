package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tahmidmalekzoha/rawjournal/config"
	"github.com/tahmidmalekzoha/rawjournal/internal/adapters/logger"
	"github.com/tahmidmalekzoha/rawjournal/internal/adapters/sqlite"
	"github.com/tahmidmalekzoha/rawjournal/internal/app"
	"github.com/tahmidmalekzoha/rawjournal/internal/domain"
	"github.com/tahmidmalekzoha/rawjournal/internal/ports"
)

// Wednesday 2024-03-13 15:00 UTC, markets open.
var testNow = time.Date(2024, 3, 13, 15, 0, 0, 0, time.UTC)

type harness struct {
	cfg     *config.Config
	journal *app.JournalService
	dir     string
}

func setupCLI(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		DBPath:         filepath.Join(dir, "journal.db"),
		DefaultAccount: "main",
		DefaultPeriod:  domain.PeriodAll,
		WeekStart:      time.Monday,
		DefaultLotSize: 0.01,
		ReportCache:    true,
		ReportFormat:   config.ReportText,
	}
	log := logger.NewStdLoggerTo(io.Discard, logger.LevelError)

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	journal, err := app.NewJournalService(cfg, log, repo, repo, app.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	return &harness{cfg: cfg, journal: journal, dir: dir}
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand(h.cfg, h.journal)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, args...)
	require.NoError(t, err, out)
	return out
}

func (h *harness) addWinners(t *testing.T) {
	t.Helper()
	h.mustRun(t, "add", "--symbol", "EURUSD", "--direction", "buy", "--entry", "1.1000", "--exit", "1.1030",
		"--size", "0.1", "--entry-time", "2024-03-11 09:00:00", "--exit-time", "2024-03-11 11:00:00", "--ticket", "1")
	h.mustRun(t, "add", "--symbol", "usd/jpy", "--direction", "sell", "--entry", "150.30", "--exit", "150.00",
		"--size", "1", "--entry-time", "2024-03-12 02:00:00", "--exit-time", "2024-03-12 03:00:00", "--ticket", "2")
}

func TestEstimateCommand(t *testing.T) {
	h := setupCLI(t)

	out := h.mustRun(t, "estimate", "--symbol", "usdjpy", "--direction", "buy", "--entry", "150", "--exit", "150.30", "--size", "1")
	assert.Contains(t, out, "BUY USDJPY 150.000 -> 150.300")
	assert.Contains(t, out, "Pips: +30.0 pips")
	assert.Contains(t, out, "P&L:  300.00")

	out = h.mustRun(t, "estimate", "--symbol", "EURUSD", "--entry", "1.1")
	assert.Equal(t, "no estimate\n", out)

	out = h.mustRun(t, "estimate", "--symbol", "EURUSD", "--direction", "hold", "--entry", "1.1", "--exit", "1.2")
	assert.Equal(t, "no estimate\n", out)
}

func TestAddCommand(t *testing.T) {
	h := setupCLI(t)

	out := h.mustRun(t, "add", "--symbol", "EURUSD", "--direction", "buy", "--entry", "1.1000", "--exit", "1.1030",
		"--size", "0.1", "--entry-time", "2024-03-11 09:00:00", "--exit-time", "2024-03-11 11:00:00", "--ticket", "T1")
	assert.Contains(t, out, "Added trade #1 (T1 BUY EURUSD, closed)")
	assert.Contains(t, out, "P&L: 30.00 (+30.0 pips)")

	stored, err := h.journal.GetTrade(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "main", stored.AccountID)
	assert.Equal(t, string(domain.SessionLondon), stored.SessionTag)

	out = h.mustRun(t, "add", "--symbol", "GBPUSD", "--direction", "sell", "--entry", "1.27")
	assert.Contains(t, out, "GBPUSD, open)")

	_, err = h.run(t, "add", "--symbol", "EURUSD", "--direction", "buy", "--entry", "1.1", "--exit", "1.2", "--ticket", "T1")
	assert.ErrorIs(t, err, ports.ErrDuplicateEntry)

	_, err = h.run(t, "add", "--symbol", "EURUSD", "--entry", "1.1")
	assert.Error(t, err, "direction is required")

	_, err = h.run(t, "add", "--symbol", "EURUSD", "--direction", "buy", "--entry", "1.1", "--entry-time", "yesterday")
	assert.ErrorIs(t, err, ports.ErrInvalidTrade)
}

func TestReportCommand_Text(t *testing.T) {
	h := setupCLI(t)

	out := h.mustRun(t, "report")
	assert.Contains(t, out, "Account: main | Period: all | Market: open")
	assert.Contains(t, out, "No closed trades in this period.")

	h.addWinners(t)
	out = h.mustRun(t, "report", "--period", "week")
	assert.Contains(t, out, "Period: week since 2024-03-11")
	assert.Contains(t, out, "2 (2 won, 0 lost, 0 breakeven)")
	assert.Contains(t, out, "100.00%")
	assert.Contains(t, out, "∞")
	assert.Contains(t, out, "330.00")
	assert.Contains(t, out, "By Symbol")
	assert.Contains(t, out, "USDJPY")
	assert.Contains(t, out, "By Hour (UTC)")
	assert.Contains(t, out, "09:00")
	assert.Contains(t, out, "2024-03")
}

func TestReportCommand_JSON(t *testing.T) {
	h := setupCLI(t)
	h.addWinners(t)

	out := h.mustRun(t, "report", "--format", "json")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "inf", decoded["profit_factor"])
	assert.Equal(t, float64(2), decoded["total_trades"])
	assert.Equal(t, 330.0, decoded["total_pnl"])
	assert.Equal(t, "USDJPY", decoded["best_symbol"])
	assert.Len(t, decoded["equity_curve"], 2)
}

func TestReportCommand_YAML(t *testing.T) {
	h := setupCLI(t)
	h.addWinners(t)
	h.mustRun(t, "add", "--symbol", "EURUSD", "--direction", "buy", "--entry", "1.1000", "--pnl", "-110",
		"--entry-time", "2024-03-12 14:00:00", "--exit-time", "2024-03-12 15:00:00", "--ticket", "3")

	out := h.mustRun(t, "report", "--format", "YAML", "--symbol", "eurusd")

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 2, decoded["total_trades"])
	assert.Equal(t, 0.27, decoded["profit_factor"])

	out = h.mustRun(t, "report", "--format", "yaml", "--direction", "sell")
	assert.Contains(t, out, "profit_factor: .inf")
}

func TestReportCommand_Errors(t *testing.T) {
	h := setupCLI(t)

	_, err := h.run(t, "report", "--format", "xml")
	assert.Error(t, err)

	_, err = h.run(t, "report", "--period", "decade")
	assert.Error(t, err)

	_, err = h.run(t, "report", "--direction", "sideways")
	assert.Error(t, err)
}

func TestReportCommand_AllAccounts(t *testing.T) {
	h := setupCLI(t)
	h.addWinners(t)
	h.mustRun(t, "add", "--account", "prop", "--symbol", "XAUUSD", "--direction", "buy", "--entry", "2300", "--pnl", "-50",
		"--entry-time", "2024-03-12 14:00:00", "--exit-time", "2024-03-12 15:00:00")

	out := h.mustRun(t, "report", "--account", "prop")
	assert.Contains(t, out, "1 (0 won, 1 lost, 0 breakeven)")

	out = h.mustRun(t, "report", "--all-accounts")
	assert.Contains(t, out, "Account: all accounts")
	assert.Contains(t, out, "3 (2 won, 1 lost, 0 breakeven)")
}

func TestImportExportCommands(t *testing.T) {
	h := setupCLI(t)

	src := filepath.Join(h.dir, "deals.csv")
	require.NoError(t, os.WriteFile(src, []byte(strings.Join([]string{
		"Time,Deal,Symbol,Type,Volume,Price,Profit",
		"2024.03.11 10:30:00,1001,EURUSD,sell,0.10,1.10300,30.00",
		"2024.03.12 16:30:00,1002,GBPUSD,buy,0.20,1.27000,-12.50",
		"2024.03.12 17:00:00,1003,,balance,,,500",
	}, "\n")), 0o644))

	out := h.mustRun(t, "import", src, "--account", "mt5")
	assert.Contains(t, out, "Imported 2 of 3 rows")
	assert.Contains(t, out, "(mt5 format): 0 duplicates, 1 invalid")
	assert.Contains(t, out, "row 4:")

	out = h.mustRun(t, "import", src, "--account", "mt5")
	assert.Contains(t, out, "Imported 0 of 3 rows")
	assert.Contains(t, out, "2 duplicates")

	out = h.mustRun(t, "export", "-", "--account", "mt5")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ticket,symbol,direction"))
	assert.True(t, strings.HasPrefix(lines[1], "1001,EURUSD,sell"))

	dst := filepath.Join(h.dir, "out.csv")
	out = h.mustRun(t, "export", dst, "--account", "mt5", "--period", "today")
	assert.Contains(t, out, "Exported 0 trades")
	written, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(written), "\n"), "header only")

	_, err = h.run(t, "import", filepath.Join(h.dir, "missing.csv"))
	assert.Error(t, err)
}

func TestDeleteCommand(t *testing.T) {
	h := setupCLI(t)
	h.addWinners(t)

	out := h.mustRun(t, "delete", "1")
	assert.Contains(t, out, "Deleted trade #1 (1 EURUSD)")

	out = h.mustRun(t, "report")
	assert.Contains(t, out, "1 (1 won, 0 lost, 0 breakeven)")

	_, err := h.run(t, "delete", "1")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	_, err = h.run(t, "delete", "abc")
	assert.Error(t, err)
}
