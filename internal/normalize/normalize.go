package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"salespulse/backend/internal/domain"
)

// ValidationError identifies the row and field that made an upload
// unacceptable. Ingestion aborts on it; nothing is persisted.
type ValidationError struct {
	BillNumber string
	Field      string
	Value      string
	Reason     string
}

func (e *ValidationError) Error() string {
	switch {
	case e.BillNumber != "" && e.Value != "":
		return fmt.Sprintf("invalid upload: bill %s has unparseable %s %q", e.BillNumber, e.Field, e.Value)
	case e.Field != "":
		return fmt.Sprintf("invalid upload: required column %s is missing or empty", e.Field)
	default:
		return fmt.Sprintf("invalid upload: %s", e.Reason)
	}
}

// Layouts the upload producers are known to emit, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
}

// requiredFields are checked against the first row carrying a bill number.
// The upload either has these columns populated or it is rejected outright.
var requiredFields = []struct {
	name  string
	value func(domain.RawSalesRow) string
}{
	{"timestamp", func(r domain.RawSalesRow) string { return r.Timestamp }},
	{"branch", func(r domain.RawSalesRow) string { return r.Branch }},
	{"channel", func(r domain.RawSalesRow) string { return r.Channel }},
	{"category_group", func(r domain.RawSalesRow) string { return r.CategoryGroup }},
	{"item_name", func(r domain.RawSalesRow) string { return r.ItemName }},
	{"net_revenue", func(r domain.RawSalesRow) string { return r.NetRevenue }},
}

// Normalize converts raw upload rows into canonical sales records. It is a
// pure function: no side effects, deterministic apart from line IDs.
//
// Rows without a bill number are skipped and counted, never silently lost.
// A date that fails to parse aborts the whole upload with an error naming the
// bill number and the raw value. Malformed numeric fields coerce to 0; only
// the field is lost, not the row.
func Normalize(rows []domain.RawSalesRow) ([]domain.SalesRecord, int, error) {
	firstValid := -1
	for i, row := range rows {
		if strings.TrimSpace(row.BillNumber) != "" {
			firstValid = i
			break
		}
	}
	if firstValid < 0 {
		return nil, 0, &ValidationError{Reason: "no row carries a bill number"}
	}

	for _, field := range requiredFields {
		if strings.TrimSpace(field.value(rows[firstValid])) == "" {
			return nil, 0, &ValidationError{Field: field.name}
		}
	}

	records := make([]domain.SalesRecord, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		bill := strings.TrimSpace(row.BillNumber)
		if bill == "" {
			skipped++
			continue
		}

		ts, err := parseDate(row.Timestamp)
		if err != nil {
			return nil, 0, &ValidationError{
				BillNumber: bill,
				Field:      "timestamp",
				Value:      strings.TrimSpace(row.Timestamp),
			}
		}

		records = append(records, domain.SalesRecord{
			LineID:        uuid.NewString(),
			BillNumber:    bill,
			Timestamp:     ts,
			Branch:        strings.TrimSpace(row.Branch),
			Channel:       strings.TrimSpace(row.Channel),
			CategoryGroup: strings.TrimSpace(row.CategoryGroup),
			ItemName:      strings.TrimSpace(row.ItemName),
			Quantity:      lenientQuantity(row.Quantity),
			UnitPrice:     lenientPrice(row.UnitPrice),
			NetRevenue:    lenientFloat(row.NetRevenue),
			CustomerName:  strings.TrimSpace(row.CustomerName),
		})
	}

	return records, skipped, nil
}

func parseDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", trimmed)
}

// lenientQuantity parses an integer quantity, defaulting to 0 on failure and
// clamping negatives (the record invariant is quantity >= 0).
func lenientQuantity(raw string) int {
	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || qty < 0 {
		return 0
	}
	return qty
}

func lenientPrice(raw string) float64 {
	price := lenientFloat(raw)
	if price < 0 {
		return 0
	}
	return price
}

// lenientFloat defaults to 0 on parse failure so malformed numeric cells
// never propagate NaN into aggregation. Negative values pass through:
// net revenue is allowed to be negative for refunds.
func lenientFloat(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return value
}
