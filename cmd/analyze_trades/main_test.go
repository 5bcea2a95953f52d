package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFindTradeFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.csv", "")
	writeFile(t, dir, "a.CSV", "")
	writeFile(t, dir, "notes.txt", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755))

	files, err := findTradeFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.CSV"), filepath.Join(dir, "b.csv")}, files)

	_, err = findTradeFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "march.csv",
		"Symbol,Open Time,Close Time,Profit\n"+
			"EURUSD,2024-03-11 09:00:00,2024-03-11 10:00:00,100\n"+
			"EURUSD,2024-03-11 14:00:00,2024-03-11 15:00:00,-50\n"+
			"GBPUSD,2024-03-12 02:00:00,2024-03-12 03:00:00,20\n")
	bad := writeFile(t, dir, "broken.csv", "Ticket,Price\n1,1.1\n")

	var out bytes.Buffer
	reports := summarize(&out, []string{bad, good}, 0.01)

	require.Contains(t, reports, good)
	assert.NotContains(t, reports, bad)

	r := reports[good]
	assert.Equal(t, 3, r.TotalTrades)
	assert.Equal(t, 70.0, r.TotalPnL)
	assert.Equal(t, "2.40", r.ProfitFactor.String())

	keys := make([]string, 0, len(r.BySession))
	for _, s := range r.BySession {
		keys = append(keys, s.Key)
	}
	assert.ElementsMatch(t, []string{"london", "overlap", "asian"}, keys)

	assert.Contains(t, out.String(), "march.csv")
	assert.NotContains(t, out.String(), "broken.csv")

	var details bytes.Buffer
	printSessions(&details, "march.csv", r)
	assert.Contains(t, details.String(), "overlap")
}
