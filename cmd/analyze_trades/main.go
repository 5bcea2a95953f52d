package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/tahmidmalekzoha/rawjournal/internal/analytics"
	"github.com/tahmidmalekzoha/rawjournal/internal/domain"
	"github.com/tahmidmalekzoha/rawjournal/internal/utils"
)

var (
	dir     = flag.String("dir", "data", "directory holding trade CSV exports")
	lotSize = flag.Float64("lot", utils.DefaultLotSize, "position size for rows without one")
	details = flag.Bool("sessions", false, "print a per-session breakdown for every file")
)

func main() {
	flag.Parse()

	// Find all trade export files
	files, err := findTradeFiles(*dir)
	if err != nil {
		log.Fatalf("Error finding trade files: %v", err)
	}

	if len(files) == 0 {
		log.Printf("No CSV files found in %s.", *dir)
		return
	}

	reports := summarize(os.Stdout, files, *lotSize)

	if *details {
		fmt.Println("\n## Session Analysis")
		for _, file := range files {
			if r, ok := reports[file]; ok {
				printSessions(os.Stdout, filepath.Base(file), r)
			}
		}
	}
}

// summarize prints one row per file and returns the computed reports keyed by path.
func summarize(out io.Writer, files []string, lot float64) map[string]*analytics.Report {
	reports := make(map[string]*analytics.Report, len(files))

	// Create a tabwriter for formatted output
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "File\tTrades\tWinRate\tPF\tAvgWin\tAvgLoss\tTotalPnL\tMaxDD\tMaxDD%\t")

	for _, file := range files {
		report, err := analyzeFile(file, lot)
		if err != nil {
			log.Printf("Error reading trades from %s: %v", file, err)
			continue
		}
		reports[file] = report

		fmt.Fprintf(w, "%s\t%d\t%.2f\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t\n",
			filepath.Base(file),
			report.TotalTrades,
			report.WinRate,
			report.ProfitFactor,
			report.AvgWin,
			report.AvgLoss,
			report.TotalPnL,
			report.MaxDrawdown,
			report.MaxDrawdownPct,
		)
	}
	w.Flush()
	return reports
}

func analyzeFile(path string, lot float64) (*analytics.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	parsed, err := utils.ReadTradesFromCSV(f, utils.ImportOptions{DefaultLotSize: lot})
	if err != nil {
		return nil, err
	}
	if len(parsed.Errors) > 0 {
		log.Printf("%s: skipped %d unreadable rows", filepath.Base(path), len(parsed.Errors))
	}
	for _, t := range parsed.Trades {
		if t.SessionTag == "" {
			t.SessionTag = string(domain.SessionForTime(t.EntryTime))
		}
	}
	return analytics.Compute(parsed.Trades), nil
}

func printSessions(out io.Writer, name string, r *analytics.Report) {
	fmt.Fprintf(out, "\nFile: %s\n", name)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Session\tTrades\tPnL\tWinRate")
	for _, s := range r.BySession {
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\n", s.Key, s.TradeCount, s.PnL, s.WinRate)
	}
	w.Flush()
}

// findTradeFiles lists the CSV files in dir, sorted by name.
func findTradeFiles(dir string) ([]string, error) {
	var files []string

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Strings(files)
	return files, nil
}
