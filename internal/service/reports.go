package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"nine-pos/internal/database"
	"nine-pos/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Report periods.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodCustom  = "custom"
)

const dayLayout = "2006-01-02"

// CSVHeader is the first row of every CSV sales report.
var CSVHeader = []string{"Date", "Total Sales", "Total Revenue", "Items Sold", "Discounts"}

// ReportQuery selects the report range. StartDate/EndDate are only read for
// the custom period and accept YYYY-MM-DD or RFC 3339.
type ReportQuery struct {
	Period    string
	StartDate string
	EndDate   string
}

// SalesReport is the aggregate over every sale in [StartDate, EndDate].
type SalesReport struct {
	TotalSales       int                        `json:"totalSales"`
	TotalRevenue     decimal.Decimal            `json:"totalRevenue"`
	TotalItemsSold   int                        `json:"totalItemsSold"`
	DiscountsApplied decimal.Decimal            `json:"discountsApplied"`
	SalesByProduct   map[string]int             `json:"salesByProduct"`
	SalesByDay       map[string]decimal.Decimal `json:"salesByDay"`
	StartDate        time.Time                  `json:"startDate"`
	EndDate          time.Time                  `json:"endDate"`
	Sales            []models.Sale              `json:"sales"`

	loc *time.Location
}

// DayRow is one CSV/XLSX line.
type DayRow struct {
	Date      string
	Sales     int
	Revenue   decimal.Decimal
	ItemsSold int
	Discounts decimal.Decimal
}

type ReportService struct {
	db  *gorm.DB
	log *logrus.Logger
	now func() time.Time
}

func NewReportService(db *gorm.DB, log *logrus.Logger) *ReportService {
	return &ReportService{db: db, log: log, now: time.Now}
}

// Sales fetches the sales in the selected range and aggregates them.
func (s *ReportService) Sales(ctx context.Context, q ReportQuery) (*SalesReport, error) {
	now := s.now()
	start, end, err := DateRange(q.Period, now, q.StartDate, q.EndDate)
	if err != nil {
		return nil, err
	}

	var sales []models.Sale
	err = s.db.WithContext(ctx).
		Preload("SaleItems", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("SaleItems.Product").
		Where("date BETWEEN ? AND ?", start.UTC(), end.UTC()).
		Order("date").Order("id").
		Find(&sales).Error
	if err != nil {
		return nil, persistence("load sales for report", err)
	}

	s.log.WithFields(logrus.Fields{"period": q.Period, "sales": len(sales)}).Debug("sales report built")
	return BuildSalesReport(sales, start, end), nil
}

// Totals returns only revenue and sale count for the selected range,
// computed in SQL.
func (s *ReportService) Totals(ctx context.Context, q ReportQuery) (*database.SalesTotals, error) {
	start, end, err := DateRange(q.Period, s.now(), q.StartDate, q.EndDate)
	if err != nil {
		return nil, err
	}
	totals, err := database.GetSalesTotals(ctx, s.db, start, end)
	if err != nil {
		return nil, persistence("sum sales", err)
	}
	return totals, nil
}

// DateRange resolves a period to inclusive bounds in now's location.
// daily is today, weekly is the Sunday–Saturday week containing today,
// monthly is the current calendar month.
func DateRange(period string, now time.Time, startDate, endDate string) (time.Time, time.Time, error) {
	loc := now.Location()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch period {
	case "", PeriodDaily:
		return today, endOfDay(today), nil
	case PeriodWeekly:
		start := today.AddDate(0, 0, -int(today.Weekday()))
		return start, endOfDay(start.AddDate(0, 0, 6)), nil
	case PeriodMonthly:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return start, endOfDay(start.AddDate(0, 1, -1)), nil
	case PeriodCustom:
		if startDate == "" || endDate == "" {
			return time.Time{}, time.Time{}, invalid("startDate", "custom period requires startDate and endDate")
		}
		start, err := ParseDateBound(startDate, loc, false)
		if err != nil {
			return time.Time{}, time.Time{}, invalid("startDate", err.Error())
		}
		end, err := ParseDateBound(endDate, loc, true)
		if err != nil {
			return time.Time{}, time.Time{}, invalid("endDate", err.Error())
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, invalid("endDate", "endDate is before startDate")
		}
		return start, end, nil
	}
	return time.Time{}, time.Time{}, invalid("period", "period must be daily, weekly, monthly or custom")
}

func endOfDay(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), day.Location())
}

// ParseDateBound reads YYYY-MM-DD or RFC 3339. Dates are taken in loc; an
// upper bound given as a bare date covers that whole day.
func ParseDateBound(v string, loc *time.Location, upper bool) (time.Time, error) {
	t, dateOnly, err := parseBound(v, loc)
	if err != nil {
		return time.Time{}, err
	}
	if dateOnly && upper {
		return endOfDay(t), nil
	}
	return t, nil
}

func parseBound(v string, loc *time.Location) (time.Time, bool, error) {
	if t, err := time.ParseInLocation(dayLayout, v, loc); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid date %q", v)
	}
	return t.In(loc), false, nil
}

// BuildSalesReport aggregates already-loaded sales. Day buckets use the
// location of start.
func BuildSalesReport(sales []models.Sale, start, end time.Time) *SalesReport {
	r := &SalesReport{
		TotalSales:       len(sales),
		TotalRevenue:     decimal.Zero,
		DiscountsApplied: decimal.Zero,
		SalesByProduct:   map[string]int{},
		SalesByDay:       map[string]decimal.Decimal{},
		StartDate:        start,
		EndDate:          end,
		Sales:            sales,
		loc:              start.Location(),
	}
	if r.Sales == nil {
		r.Sales = []models.Sale{}
	}

	for _, sale := range sales {
		r.TotalRevenue = r.TotalRevenue.Add(sale.TotalAmount)
		r.DiscountsApplied = r.DiscountsApplied.Add(sale.Discount)

		day := r.dayOf(sale)
		r.SalesByDay[day] = r.SalesByDay[day].Add(sale.TotalAmount)

		for _, item := range sale.SaleItems {
			r.TotalItemsSold += item.Quantity
			name := fmt.Sprintf("Product %d", item.ProductID)
			if item.Product != nil && item.Product.Name != "" {
				name = item.Product.Name
			}
			r.SalesByProduct[name] += item.Quantity
		}
	}
	return r
}

func (r *SalesReport) dayOf(sale models.Sale) string {
	loc := r.loc
	if loc == nil {
		loc = r.StartDate.Location()
	}
	return sale.Date.In(loc).Format(dayLayout)
}

// DayRows returns one row per day bucket in date order, derived from the
// report's own sales.
func (r *SalesReport) DayRows() []DayRow {
	days := make([]string, 0, len(r.SalesByDay))
	for day := range r.SalesByDay {
		days = append(days, day)
	}
	sort.Strings(days)

	rows := make([]DayRow, 0, len(days))
	for _, day := range days {
		row := DayRow{Date: day, Revenue: r.SalesByDay[day], Discounts: decimal.Zero}
		for _, sale := range r.Sales {
			if r.dayOf(sale) != day {
				continue
			}
			row.Sales++
			row.Discounts = row.Discounts.Add(sale.Discount)
			for _, item := range sale.SaleItems {
				row.ItemsSold += item.Quantity
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// RenderCSV writes the header row and one row per day.
func RenderCSV(w io.Writer, r *SalesReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, row := range r.DayRows() {
		rec := []string{
			row.Date,
			strconv.Itoa(row.Sales),
			row.Revenue.StringFixed(2),
			strconv.Itoa(row.ItemsSold),
			row.Discounts.StringFixed(2),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const reportSheet = "Sales Report"

// RenderXLSX writes the same rows as RenderCSV into a workbook.
func RenderXLSX(w io.Writer, r *SalesReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return err
	}
	for i, h := range CSVHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(reportSheet, cell, h); err != nil {
			return err
		}
	}
	for i, row := range r.DayRows() {
		line := i + 2
		revenue, _ := row.Revenue.Float64()
		discounts, _ := row.Discounts.Float64()
		values := []any{row.Date, row.Sales, revenue, row.ItemsSold, discounts}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, line)
			if err := f.SetCellValue(reportSheet, cell, v); err != nil {
				return err
			}
		}
	}
	_, err := f.WriteTo(w)
	return err
}

// ReportFilename is the attachment name for an export generated at now.
func ReportFilename(now time.Time, ext string) string {
	return fmt.Sprintf("sales-report-%s.%s", now.UTC().Format("20060102T150405Z"), ext)
}
