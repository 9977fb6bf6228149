package domain

import "time"

// Column names of the re-order report as exported by the report portal.
const (
	ColumnItemNumber      = "Item Number"
	ColumnManufacturer    = "Manufacturer"
	ColumnItemDescription = "Item Description"
	ColumnOnHand          = "On Hand"
	ColumnOnPO            = "On PO"
	ColumnSevenDays       = "7 Days"
	ColumnItemCost        = "Item Cost"
	ColumnTotalQty        = "Total Qty"
	ColumnSuggested       = "Suggested"
)

// ReportColumns lists the report columns the pipeline reads
var ReportColumns = []string{
	ColumnItemNumber, ColumnManufacturer, ColumnItemDescription,
	ColumnOnHand, ColumnOnPO, ColumnSevenDays,
	ColumnItemCost, ColumnTotalQty, ColumnSuggested,
}

// ReportRow is one raw record of the acquired re-order report. Values are
// keyed by header name; a missing column yields an empty string.
type ReportRow struct {
	Index  int
	Values map[string]string
}

// Get returns the value of column name, or "" when absent.
func (r ReportRow) Get(name string) string {
	if r.Values == nil {
		return ""
	}
	return r.Values[name]
}

// IsHeader reports whether the row carries section metadata rather than an
// item.
func (r ReportRow) IsHeader() bool {
	return r.Get(ColumnItemNumber) == ""
}

// ReconciledRow is a data row stamped with its governing section header and
// retained because its item number is in the account's SKU set.
type ReconciledRow struct {
	Market          string `json:"market"`
	StoreID         string `json:"store_id"`
	StoreName       string `json:"store_name"`
	Manufacturer    string `json:"manufacturer"`
	ItemNumber      string `json:"item_number"`
	ItemDescription string `json:"item_description"`
	OnHand          string `json:"on_hand"`
	OnPO            string `json:"on_po"`
	SevenDays       string `json:"seven_days"`
	ItemCost        string `json:"item_cost"`
	TotalQty        string `json:"total_qty"`
	Suggested       string `json:"suggested"`
}

// ReconciledColumns is the header of the raw "report" sheet.
var ReconciledColumns = []string{
	"Market", "StoreID", "Store Name", "Manufacturer",
	"Item Number", "Item Description", "On Hand", "On PO",
	"7 Days", "Item Cost", "Total Qty", "Suggested",
}

// Cells returns the row in ReconciledColumns order.
func (r ReconciledRow) Cells() []string {
	return []string{
		r.Market, r.StoreID, r.StoreName, r.Manufacturer,
		r.ItemNumber, r.ItemDescription, r.OnHand, r.OnPO,
		r.SevenDays, r.ItemCost, r.TotalQty, r.Suggested,
	}
}

// RunStatus is the terminal state of one account's run
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusSkipped   RunStatus = "skipped"
)

// RunOutcome summarises one account's pass through the pipeline.
type RunOutcome struct {
	RunID      string        `json:"run_id" db:"run_id"`
	Account    string        `json:"account" db:"account"`
	Status     RunStatus     `json:"status" db:"status"`
	FailedStep string        `json:"failed_step,omitempty" db:"failed_step"`
	Error      string        `json:"error,omitempty" db:"error"`
	SkuCount   int           `json:"sku_count" db:"sku_count"`
	RowCount   int           `json:"row_count" db:"row_count"`
	OutputPath string        `json:"output_path,omitempty" db:"output_path"`
	StartedAt  time.Time     `json:"started_at" db:"started_at"`
	Duration   time.Duration `json:"duration" db:"duration_ns"`
}
