package utils

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahmidmalekzoha/rawjournal/internal/domain"
	"github.com/tahmidmalekzoha/rawjournal/internal/ports"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    Format
	}{
		{"mt5 deals", []string{"Time", "Deal", "Symbol", "Type", "Direction", "Volume", "Price", "Order", "Commission", "Swap", "Profit"}, FormatMT5},
		{"mt5 with bom and spaces", []string{"\ufeffTime ", " Deal", "Symbol", "Type", "Volume", "Price", "Profit"}, FormatMT5},
		{"missing profit", []string{"Time", "Deal", "Symbol", "Type", "Volume", "Price"}, FormatGeneric},
		{"generic", []string{"Ticket", "Pair", "Side", "Open Time"}, FormatGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.headers))
		})
	}
}

func TestSuggestMapping_MT5(t *testing.T) {
	headers := []string{"Time", "Deal", "Symbol", "Type", "Direction", "Volume", "Price", "Order", "Commission", "Swap", "Profit"}
	m := SuggestMapping(headers, FormatMT5)

	assert.Equal(t, ColumnMapping{
		FieldEntryTime:  0,
		FieldTicket:     1,
		FieldSymbol:     2,
		FieldDirection:  3,
		FieldSize:       5,
		FieldEntryPrice: 6,
		FieldCommission: 8,
		FieldSwap:       9,
		FieldPNL:        10,
	}, m)
}

func TestSuggestMapping_Generic(t *testing.T) {
	headers := []string{"Position ID", "Instrument", "Side", "Open Time", "Open Price", "Close Time", "Close Price", "Lots", "Net Profit", "Stop Loss", "Take Profit", "Comm"}
	m := SuggestMapping(headers, FormatGeneric)

	assert.Equal(t, ColumnMapping{
		FieldTicket:     0,
		FieldSymbol:     1,
		FieldDirection:  2,
		FieldEntryTime:  3,
		FieldEntryPrice: 4,
		FieldExitTime:   5,
		FieldExitPrice:  6,
		FieldSize:       7,
		FieldPNL:        8,
		FieldStopLoss:   9,
		FieldTakeProfit: 10,
		FieldCommission: 11,
	}, m)
}

func TestSuggestMapping_WholeWords(t *testing.T) {
	// "id" must not match inside "side", "sl" must not match inside "slippage".
	headers := []string{"Symbol", "Side", "Time", "Slippage"}
	m := SuggestMapping(headers, FormatGeneric)

	_, hasTicket := m[FieldTicket]
	_, hasStop := m[FieldStopLoss]
	assert.False(t, hasTicket)
	assert.False(t, hasStop)
	assert.Equal(t, 1, m[FieldDirection])
	assert.Equal(t, 2, m[FieldEntryTime])
}

func TestReadTradesFromCSV_MT5(t *testing.T) {
	input := strings.Join([]string{
		"Time,Deal,Symbol,Type,Direction,Volume,Price,Order,Commission,Swap,Profit",
		"2024.03.11 09:00:00,1001,EURUSD,buy,in,0.10,1.10000,501,-0.70,0,0",
		"2024.03.11 10:30:00,1002,EURUSD,sell,out,0.10,1.10300,502,-0.70,0,30.00",
		"2024.03.11 11:00:00,1003,,balance,,,,,,,1000",
		"",
	}, "\n")

	res, err := ReadTradesFromCSV(strings.NewReader(input), ImportOptions{AccountID: "acc-1"})
	require.NoError(t, err)

	assert.Equal(t, FormatMT5, res.Format)
	require.Len(t, res.Trades, 2)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 4, res.Errors[0].Row)
	assert.ErrorIs(t, res.Errors[0], ports.ErrInvalidTrade)

	opening := res.Trades[0]
	assert.Equal(t, "acc-1", opening.AccountID)
	assert.Equal(t, "1001", opening.TicketNumber)
	assert.Equal(t, domain.Buy, opening.Direction)
	assert.Equal(t, domain.SourceMT5, opening.Source)
	assert.Equal(t, time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC), opening.EntryTime)
	assert.Nil(t, opening.PNL, "a zero profit cell is treated as no profit")
	assert.Nil(t, opening.ExitTime)
	assert.Equal(t, domain.StatusOpen, opening.Status)

	closing := res.Trades[1]
	assert.Equal(t, domain.Sell, closing.Direction)
	assert.InDelta(t, 1.103, closing.EntryPrice, 1e-12)
	assert.InDelta(t, 0.1, closing.PositionSize, 1e-12)
	assert.InDelta(t, -0.7, closing.Commission, 1e-12)
	require.NotNil(t, closing.PNL)
	assert.InDelta(t, 30.0, *closing.PNL, 1e-12)
	require.NotNil(t, closing.ExitTime)
	assert.Equal(t, closing.EntryTime, *closing.ExitTime)
	assert.True(t, closing.IsPriced())
}

func TestReadTradesFromCSV_Generic(t *testing.T) {
	input := strings.Join([]string{
		"Ticket,Pair,Side,Open Time,Close Time,Open Price,Close Price,Size,P&L,SL,TP",
		"A1,eur/usd,Buy,2024-03-11T09:00:00Z,2024-03-11T11:00:00Z,1.1000,1.1030,,,1.0950,0",
		",usd_jpy,SELL,2024-03-12 14:00:00,,150.000,,1,,,",
		"A3,GBPUSD,buy,not a date,,1.25,,1,,,",
		"A4,GBPUSD,buy,2024-03-12,,abc,,1,,,",
	}, "\n")

	res, err := ReadTradesFromCSV(strings.NewReader(input), ImportOptions{AccountID: "acc-1", DefaultLotSize: 0.05})
	require.NoError(t, err)
	assert.Equal(t, FormatGeneric, res.Format)
	require.Len(t, res.Trades, 2)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, 4, res.Errors[0].Row)
	assert.Equal(t, 5, res.Errors[1].Row)

	closed := res.Trades[0]
	assert.Equal(t, "A1", closed.TicketNumber)
	assert.Equal(t, "EURUSD", closed.Symbol)
	assert.Equal(t, domain.SourceCSV, closed.Source)
	assert.Equal(t, 0.05, closed.PositionSize, "missing size falls back to the default lot")
	require.NotNil(t, closed.ExitPrice)
	assert.InDelta(t, 1.103, *closed.ExitPrice, 1e-12)
	require.NotNil(t, closed.ExitTime)
	assert.Equal(t, time.Date(2024, 3, 11, 11, 0, 0, 0, time.UTC), *closed.ExitTime)
	assert.Nil(t, closed.PNL)
	require.NotNil(t, closed.StopLoss)
	assert.Nil(t, closed.TakeProfit, "zero TP means unset")
	assert.Equal(t, domain.StatusClosed, closed.Status)

	open := res.Trades[1]
	assert.True(t, strings.HasPrefix(open.TicketNumber, "csv-"))
	assert.Equal(t, "USDJPY", open.Symbol)
	assert.Equal(t, domain.Sell, open.Direction)
	assert.Equal(t, domain.StatusOpen, open.Status)
	assert.Nil(t, open.ExitTime)
}

func TestReadTradesFromCSV_GeneratedTicketsAreUnique(t *testing.T) {
	input := "Symbol,Time\nEURUSD,2024-03-11\nEURUSD,2024-03-11\n"
	res, err := ReadTradesFromCSV(strings.NewReader(input), ImportOptions{})
	require.NoError(t, err)
	require.Len(t, res.Trades, 2)
	assert.NotEqual(t, res.Trades[0].TicketNumber, res.Trades[1].TicketNumber)
	assert.Equal(t, DefaultLotSize, res.Trades[0].PositionSize)
}

func TestReadTradesFromCSV_Unsupported(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no symbol column", "Ticket,Time,Price\n1,2024-03-11,1.1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTradesFromCSV(strings.NewReader(tt.input), ImportOptions{})
			assert.ErrorIs(t, err, ports.ErrUnsupportedFormat)
		})
	}
}

func TestReadTradesFromCSV_ExplicitMapping(t *testing.T) {
	input := "a,b,c\nXAUUSD,2024-03-11 09:00:00,2350.5\n"
	res, err := ReadTradesFromCSV(strings.NewReader(input), ImportOptions{
		Mapping: ColumnMapping{FieldSymbol: 0, FieldEntryTime: 1, FieldEntryPrice: 2},
	})
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, "XAUUSD", res.Trades[0].Symbol)
	assert.Equal(t, 2350.5, res.Trades[0].EntryPrice)
}

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 3, 11, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-11T09:30:00Z", want},
		{"2024-03-11T11:30:00+02:00", want},
		{"2024-03-11 09:30:00", want},
		{"2024.03.11 09:30:00", want},
		{"2024.03.11 09:30", want},
		{"2024-03-11", time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got))
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	_, err := ParseTime("11/03/2024")
	assert.ErrorIs(t, err, ports.ErrInvalidTrade)
	_, err = ParseTime("")
	assert.ErrorIs(t, err, ports.ErrInvalidTrade)
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "EURUSD", NormalizeSymbol("eur/usd"))
	assert.Equal(t, "XAUUSD", NormalizeSymbol(" xau_usd "))
	assert.Equal(t, "US30", NormalizeSymbol("us-30"))
	assert.Equal(t, "", NormalizeSymbol("--"))
}

func TestWriteTradesToCSV_RoundTrip(t *testing.T) {
	exit := time.Date(2024, 3, 11, 11, 0, 0, 0, time.UTC)
	trades := []*domain.Trade{
		{
			TicketNumber: "T1",
			Symbol:       "EURUSD",
			Direction:    domain.Sell,
			EntryTime:    time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC),
			ExitTime:     &exit,
			EntryPrice:   1.1030,
			ExitPrice:    domain.Float64(1.1000),
			PositionSize: 0.2,
			PNL:          domain.Float64(60),
			PNLPips:      domain.Float64(30),
			Commission:   -1.4,
			StopLoss:     domain.Float64(1.1080),
			Status:       domain.StatusClosed,
			SessionTag:   "london",
		},
		nil,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTradesToCSV(&buf, trades))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ticket,symbol,direction,open time,close time,open price,close price,volume,profit,pips,commission,swap,sl,tp,status,session", lines[0])

	res, err := ReadTradesFromCSV(&buf, ImportOptions{AccountID: "acc-2"})
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Len(t, res.Trades, 1)

	got := res.Trades[0]
	assert.Equal(t, "T1", got.TicketNumber)
	assert.Equal(t, domain.Sell, got.Direction)
	assert.Equal(t, trades[0].EntryTime, got.EntryTime)
	require.NotNil(t, got.ExitTime)
	assert.Equal(t, exit, *got.ExitTime)
	assert.Equal(t, 1.1, *got.ExitPrice)
	assert.Equal(t, 60.0, *got.PNL)
	assert.Equal(t, -1.4, got.Commission)
	assert.Equal(t, 1.108, *got.StopLoss)
	assert.Equal(t, domain.StatusClosed, got.Status)
}
