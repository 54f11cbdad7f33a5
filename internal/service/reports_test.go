package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"
	_ "time/tzdata"

	"nine-pos/internal/logging"
	"nine-pos/internal/models"
	"nine-pos/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var reportNow = time.Date(2026, time.October, 15, 14, 30, 0, 0, time.UTC) // a Thursday

func TestDateRange(t *testing.T) {
	cases := []struct {
		name       string
		period     string
		now        time.Time
		start, end string
		wantStart  time.Time
		wantEnd    time.Time
	}{
		{
			name:      "default is daily",
			now:       reportNow,
			wantStart: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 10, 15, 23, 59, 59, 999000000, time.UTC),
		},
		{
			name:      "weekly runs sunday to saturday",
			period:    PeriodWeekly,
			now:       reportNow,
			wantStart: time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 10, 17, 23, 59, 59, 999000000, time.UTC),
		},
		{
			name:      "monthly covers the last day",
			period:    PeriodMonthly,
			now:       reportNow,
			wantStart: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 10, 31, 23, 59, 59, 999000000, time.UTC),
		},
		{
			name:      "monthly in a leap february",
			period:    PeriodMonthly,
			now:       time.Date(2024, 2, 10, 8, 0, 0, 0, time.UTC),
			wantStart: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 2, 29, 23, 59, 59, 999000000, time.UTC),
		},
		{
			name:      "custom date-only end extends to end of day",
			period:    PeriodCustom,
			now:       reportNow,
			start:     "2026-09-01",
			end:       "2026-09-03",
			wantStart: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 9, 3, 23, 59, 59, 999000000, time.UTC),
		},
		{
			name:      "custom timestamps are kept",
			period:    PeriodCustom,
			now:       reportNow,
			start:     "2026-09-01T08:00:00Z",
			end:       "2026-09-01T18:00:00Z",
			wantStart: time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, end, err := DateRange(tc.period, tc.now, tc.start, tc.end)
			require.NoError(t, err)
			require.True(t, tc.wantStart.Equal(start), "start %s", start)
			require.True(t, tc.wantEnd.Equal(end), "end %s", end)
		})
	}
}

func TestParseDateBoundAcrossDSTChanges(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	for _, day := range []string{"2026-03-08", "2026-11-01"} {
		start, err := ParseDateBound(day, ny, false)
		require.NoError(t, err)
		require.Equal(t, day+"T00:00:00", start.Format("2006-01-02T15:04:05"))

		end, err := ParseDateBound(day, ny, true)
		require.NoError(t, err)
		require.Equal(t, day+"T23:59:59.999", end.Format("2006-01-02T15:04:05.000"), day)
	}

	end, err := ParseDateBound("2026-03-08T10:00:00Z", ny, true)
	require.NoError(t, err)
	require.True(t, end.Equal(time.Date(2026, time.March, 8, 10, 0, 0, 0, time.UTC)))

	_, err = ParseDateBound("08/03/2026", ny, true)
	require.Error(t, err)
}

func TestDateRangeRejects(t *testing.T) {
	cases := []struct {
		name, period, start, end string
	}{
		{"unknown period", "yearly", "", ""},
		{"custom without dates", PeriodCustom, "", ""},
		{"custom without end", PeriodCustom, "2026-01-01", ""},
		{"custom garbage", PeriodCustom, "yesterday", "2026-01-01"},
		{"custom reversed", PeriodCustom, "2026-02-01", "2026-01-01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := DateRange(tc.period, reportNow, tc.start, tc.end)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
		})
	}
}

func seedReportSales(t *testing.T) (*ReportService, *models.Product, *models.Product) {
	t.Helper()
	db := testutil.NewDB(t)
	cashier := testutil.CreateUser(t, db, "Cara", "cara@example.com", "secret1", models.RoleCashier)
	tea := testutil.CreateProduct(t, db, "Tea", "10", 100)
	cake := testutil.CreateProduct(t, db, "Cake", "25", 100)

	day := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	testutil.CreateSale(t, db, cashier.ID, day.Add(9*time.Hour), "30", map[*models.Product]int{tea: 3})
	testutil.CreateSale(t, db, cashier.ID, day.Add(10*time.Hour), "50", map[*models.Product]int{cake: 2})
	testutil.CreateSale(t, db, cashier.ID, day.Add(11*time.Hour), "70", map[*models.Product]int{tea: 2, cake: 2})
	// Outside today, inside this week.
	testutil.CreateSale(t, db, cashier.ID, day.Add(-2*24*time.Hour), "20", map[*models.Product]int{tea: 2})
	// Previous month.
	testutil.CreateSale(t, db, cashier.ID, time.Date(2026, 9, 20, 12, 0, 0, 0, time.UTC), "100", map[*models.Product]int{cake: 4})

	svc := NewReportService(db, logging.Discard())
	svc.now = func() time.Time { return reportNow }
	return svc, tea, cake
}

func TestDailySalesReport(t *testing.T) {
	svc, _, _ := seedReportSales(t)

	r, err := svc.Sales(context.Background(), ReportQuery{Period: PeriodDaily})
	require.NoError(t, err)
	require.Equal(t, 3, r.TotalSales)
	requireDecimal(t, "150", r.TotalRevenue)
	require.Equal(t, 9, r.TotalItemsSold)
	require.Equal(t, map[string]int{"Tea": 5, "Cake": 4}, r.SalesByProduct)
	require.Len(t, r.SalesByDay, 1)
	requireDecimal(t, "150", r.SalesByDay["2026-10-15"])
}

func TestWeeklyAndMonthlySalesReport(t *testing.T) {
	svc, _, _ := seedReportSales(t)

	weekly, err := svc.Sales(context.Background(), ReportQuery{Period: PeriodWeekly})
	require.NoError(t, err)
	require.Equal(t, 4, weekly.TotalSales)
	requireDecimal(t, "170", weekly.TotalRevenue)
	require.Len(t, weekly.SalesByDay, 2)

	monthly, err := svc.Sales(context.Background(), ReportQuery{Period: PeriodMonthly})
	require.NoError(t, err)
	require.Equal(t, 4, monthly.TotalSales)

	custom, err := svc.Sales(context.Background(), ReportQuery{Period: PeriodCustom, StartDate: "2026-09-01", EndDate: "2026-10-31"})
	require.NoError(t, err)
	require.Equal(t, 5, custom.TotalSales)
	requireDecimal(t, "270", custom.TotalRevenue)
}

func TestEmptyReportHasZeroes(t *testing.T) {
	svc, _, _ := seedReportSales(t)

	r, err := svc.Sales(context.Background(), ReportQuery{Period: PeriodCustom, StartDate: "2020-01-01", EndDate: "2020-01-02"})
	require.NoError(t, err)
	require.Zero(t, r.TotalSales)
	requireDecimal(t, "0", r.TotalRevenue)
	require.NotNil(t, r.Sales)
	require.Empty(t, r.SalesByProduct)
}

func TestBuildSalesReportDiscountsAndDays(t *testing.T) {
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	end := endOfDay(time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC))
	sales := []models.Sale{
		{TotalAmount: decimal.RequireFromString("18"), Discount: decimal.RequireFromString("2"), Date: start.Add(time.Hour),
			SaleItems: []models.SaleItem{{ProductID: 9, Quantity: 2}}},
		{TotalAmount: decimal.RequireFromString("5.5"), Discount: decimal.Zero, Date: start.Add(26 * time.Hour),
			SaleItems: []models.SaleItem{{ProductID: 9, Quantity: 1, Product: &models.Product{Name: "Soap"}}}},
	}

	r := BuildSalesReport(sales, start, end)
	requireDecimal(t, "23.5", r.TotalRevenue)
	requireDecimal(t, "2", r.DiscountsApplied)
	require.Equal(t, map[string]int{"Product 9": 2, "Soap": 1}, r.SalesByProduct)

	rows := r.DayRows()
	require.Len(t, rows, 2)
	require.Equal(t, "2026-10-01", rows[0].Date)
	require.Equal(t, 1, rows[0].Sales)
	require.Equal(t, 2, rows[0].ItemsSold)
	requireDecimal(t, "2", rows[0].Discounts)
	require.Equal(t, "2026-10-02", rows[1].Date)
}

func TestRenderCSV(t *testing.T) {
	svc, _, _ := seedReportSales(t)
	r, err := svc.Sales(context.Background(), ReportQuery{Period: PeriodWeekly})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderCSV(&buf, r))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Equal(t, CSVHeader, records[0])
	require.Equal(t, [][]string{
		CSVHeader,
		{"2026-10-13", "1", "20.00", "2", "0.00"},
		{"2026-10-15", "3", "150.00", "9", "0.00"},
	}, records)
}

func TestRenderXLSX(t *testing.T) {
	svc, _, _ := seedReportSales(t)
	r, err := svc.Sales(context.Background(), ReportQuery{Period: PeriodDaily})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderXLSX(&buf, r))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(reportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, CSVHeader, rows[0])
	require.Equal(t, "2026-10-15", rows[1][0])
	require.Equal(t, "3", rows[1][1])
	require.Equal(t, "150", rows[1][2])
}

func TestReportFilename(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	require.Equal(t, "sales-report-20260304T050607Z.csv", ReportFilename(now, "csv"))
}

func TestTotalsMatchesFullReport(t *testing.T) {
	svc, _, _ := seedReportSales(t)

	totals, err := svc.Totals(context.Background(), ReportQuery{Period: PeriodWeekly})
	require.NoError(t, err)
	require.Equal(t, int64(4), totals.TotalCount)
	requireDecimal(t, "170", totals.TotalRevenue)
}
