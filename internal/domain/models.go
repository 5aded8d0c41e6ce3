package domain

import "time"

// RawSalesRow is one spreadsheet-shaped upload row before normalization.
// All fields arrive as strings; the normalizer owns coercion and validation.
type RawSalesRow struct {
	BillNumber    string `json:"bill_number"`
	Timestamp     string `json:"timestamp"`
	Branch        string `json:"branch"`
	Channel       string `json:"channel"`
	CategoryGroup string `json:"category_group"`
	ItemName      string `json:"item_name"`
	Quantity      string `json:"quantity"`
	UnitPrice     string `json:"unit_price"`
	NetRevenue    string `json:"net_revenue"`
	CustomerName  string `json:"customer_name,omitempty"`
}

// SalesRecord is one sold line item. BillNumber groups line items into one
// check; a check total is the sum of NetRevenue over lines sharing a bill
// number. Records are immutable after normalization.
type SalesRecord struct {
	LineID        string    `json:"line_id"`
	BatchID       string    `json:"batch_id"`
	OwnerID       string    `json:"owner_id"`
	BillNumber    string    `json:"bill_number"`
	Timestamp     time.Time `json:"timestamp"`
	Branch        string    `json:"branch"`
	Channel       string    `json:"channel"`
	CategoryGroup string    `json:"category_group"`
	ItemName      string    `json:"item_name"`
	Quantity      int       `json:"quantity"`
	UnitPrice     float64   `json:"unit_price"`
	NetRevenue    float64   `json:"net_revenue"`
	CustomerName  string    `json:"customer_name,omitempty"`
}

// CacheSnapshot is the locally persisted sync descriptor. A snapshot whose
// LatestRecordTimestamp is not a genuine date cannot support incremental
// top-up and forces a full rebuild.
type CacheSnapshot struct {
	Records               []SalesRecord `json:"records"`
	SourceBatchCount      int           `json:"source_batch_count"`
	CapturedAt            time.Time     `json:"captured_at"`
	LatestRecordTimestamp time.Time     `json:"latest_record_timestamp"`
}

// UploadBatch describes one ingested upload; batch counts drive the cache
// reconciliation decision.
type UploadBatch struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	FileName   string    `json:"file_name"`
	RowCount   int       `json:"row_count"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// PeriodWindow is an inclusive date range; End is normalized to end-of-day.
type PeriodWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewPeriodWindow builds a window with End pushed to the last nanosecond of
// its day so that "end inclusive" holds for timestamped records.
func NewPeriodWindow(start, end time.Time) PeriodWindow {
	y, m, d := end.Date()
	return PeriodWindow{
		Start: start,
		End:   time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), end.Location()),
	}
}

func (w PeriodWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func (w PeriodWindow) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Previous returns the window of equal length immediately preceding w.
func (w PeriodWindow) Previous() PeriodWindow {
	span := w.End.Sub(w.Start)
	end := w.Start.Add(-time.Nanosecond)
	return PeriodWindow{Start: end.Add(-span), End: end}
}

type ComparisonDirection string

const (
	DirectionUp            ComparisonDirection = "up"
	DirectionDown          ComparisonDirection = "down"
	DirectionFlat          ComparisonDirection = "flat"
	DirectionNotApplicable ComparisonDirection = "n/a"
)

// ComparisonResult carries display-ready growth figures. When the previous
// value is zero or non-finite every display field is the "N/A" sentinel and
// callers must not attempt arithmetic on it.
type ComparisonResult struct {
	Direction          ComparisonDirection `json:"direction"`
	Percent            string              `json:"percent"`
	Sign               string              `json:"sign"`
	AbsoluteDifference string              `json:"absolute_difference"`
}

type Quadrant string

const (
	QuadrantStar    Quadrant = "star"
	QuadrantCashCow Quadrant = "cash_cow"
	QuadrantHorse   Quadrant = "horse"
	QuadrantDog     Quadrant = "dog"
)

// ProductStat aggregates one product inside a category slice.
type ProductStat struct {
	Name     string  `json:"name"`
	Revenue  float64 `json:"revenue"`
	Quantity int     `json:"quantity"`
}

// QuadrantBreakdown classifies a product slice against its own average
// revenue and quantity. Each product lands in exactly one list.
type QuadrantBreakdown struct {
	Stars    []ProductStat `json:"stars"`
	CashCows []ProductStat `json:"cash_cows"`
	Horses   []ProductStat `json:"horses"`
	Dogs     []ProductStat `json:"dogs"`
}

// CustomerProfile is built from the full available history, then tagged
// against the active-in-window subset. Segment flags are non-exclusive.
type CustomerProfile struct {
	Name            string    `json:"name"`
	FirstSeen       time.Time `json:"first_seen"`
	TotalBills      int       `json:"total_bills"`
	TotalSpend      float64   `json:"total_spend"`
	BillsInWindow   int       `json:"bills_in_window"`
	SpendInWindow   float64   `json:"spend_in_window"`
	AvgSpendPerBill float64   `json:"avg_spend_per_bill"`
	IsNew           bool      `json:"is_new"`
	IsLoyal         bool      `json:"is_loyal"`
	IsHighSpender   bool      `json:"is_high_spender"`
}

type CustomerSegmentSummary struct {
	ActiveCustomers int               `json:"active_customers"`
	NewCustomers    int               `json:"new_customers"`
	LoyalCustomers  int               `json:"loyal_customers"`
	HighSpenders    int               `json:"high_spenders"`
	Customers       []CustomerProfile `json:"customers"`
}

// SeriesPoint is one chart-ready bucket of a trend series.
type SeriesPoint struct {
	Bucket          string  `json:"bucket"`
	Revenue         float64 `json:"revenue"`
	UniqueChecks    int     `json:"unique_checks"`
	AveragePerCheck float64 `json:"average_per_check"`
}

// BreakdownEntry is one chart-ready slice of a categorical breakdown
// (channel, branch, category group).
type BreakdownEntry struct {
	Key             string  `json:"key"`
	Revenue         float64 `json:"revenue"`
	Quantity        int     `json:"quantity"`
	UniqueChecks    int     `json:"unique_checks"`
	AveragePerCheck float64 `json:"average_per_check"`
}

// PeakWindow is the fixed 2-hour span starting at the busiest hour of day.
type PeakWindow struct {
	StartHour     int `json:"start_hour"`
	EndHour       int `json:"end_hour"`
	DistinctBills int `json:"distinct_bills"`
}

// SpendRange is the typical per-check spend band (25th to 75th percentile of
// bill totals).
type SpendRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// PeriodSummary holds the headline metrics for one window.
type PeriodSummary struct {
	Window          PeriodWindow `json:"window"`
	Records         int          `json:"records"`
	Revenue         float64      `json:"revenue"`
	TotalChecks     int          `json:"total_checks"`
	AveragePerCheck float64      `json:"average_per_check"`
	ItemsSold       int          `json:"items_sold"`
}

/// AnalysisResult is the results bag handed to presentation: a flat metrics
// map plus chart-ready series. It is immutable from the caller's perspective.
type AnalysisResult struct {
	Current             PeriodSummary                `json:"current"`
	Comparison          PeriodSummary                `json:"comparison"`
	RevenueComparison   ComparisonResult             `json:"revenue_comparison"`
	ChecksComparison    ComparisonResult             `json:"checks_comparison"`
	APCComparison       ComparisonResult             `json:"apc_comparison"`
	RevenueByDay        []SeriesPoint                `json:"revenue_by_day"`
	RevenueByWeek       []SeriesPoint                `json:"revenue_by_week"`
	RevenueByMonth      []SeriesPoint                `json:"revenue_by_month"`
	HourlyHistogram     []SeriesPoint                `json:"hourly_histogram"`
	PeakWindow          PeakWindow                   `json:"peak_window"`
	TypicalSpend        SpendRange                   `json:"typical_spend"`
	ByChannel           []BreakdownEntry             `json:"by_channel"`
	ByBranch            []BreakdownEntry             `json:"by_branch"`
	ByCategory          []BreakdownEntry             `json:"by_category"`
	TopProducts         []ProductStat                `json:"top_products"`
	QuadrantsByCategory map[string]QuadrantBreakdown `json:"quadrants_by_category"`
	Customers           CustomerSegmentSummary       `json:"customers"`
	Metrics             map[string]string            `json:"metrics"`
}

type UploadRequest struct {
	FileName string        `json:"file_name"`
	Rows     []RawSalesRow `json:"rows"`
}

type UploadResult struct {
	BatchID      string `json:"batch_id"`
	Records      int    `json:"records"`
	SkippedRows  int    `json:"skipped_rows"`
	Bills        int    `json:"bills"`
	TotalBatches int    `json:"total_batches"`
}

type SyncResult struct {
	State   string `json:"state"`
	Records int    `json:"records"`
}

type DashboardResponse struct {
	OwnerID   string         `json:"owner_id"`
	SyncState string         `json:"sync_state"`
	Records   int            `json:"records"`
	Analysis  AnalysisResult `json:"analysis"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type MerchantCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type MerchantUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
