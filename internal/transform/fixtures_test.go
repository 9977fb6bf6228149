package transform

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"idoosync/pkg/contracts/domain"
)

var reportHeader = []any{
	"Manufacturer", "Item Number", "Item Description", "On Hand", "On PO",
	"7 Days", "Item Cost", "Total Qty", "Suggested",
}

// sampleReport mimics the portal export: section headers carry their label
// in the Manufacturer column with no item number
var sampleReport = [][]any{
	{"Market: West"},
	{"StoreID: 101"},
	{"Store Name: Alpha"},
	{"Samsung", "111", "Galaxy S", 2, 0, 1, 499.99, 3, 1},
	{"Apple", "999", "iPhone", 5, 1, 2, 799, 6, 0},
	{"Samsung", "111", "Galaxy S", 2, 0, 1, 499.99, 3, 1},
	{"Motorola", "222", "Edge", 0, 0, 3, 199.5, 0, 2},
	{"StoreID: 102"},
	{"Store Name: Beta"},
	{"Samsung", "222", "Edge", 1, 0, 0, 199.5, 1, 0},
	{"Report Total"},
	{"Market: East"},
	{"StoreID: 201"},
	{"Store Name: Gamma"},
	{"Samsung", "111", "Galaxy S", 4, 2, 0, 499.99, 6, 0},
}

func writeReport(t *testing.T, dir string, header []any, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}

	path := filepath.Join(dir, "ReOrder Custom Report.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func row(values map[string]string) domain.ReportRow {
	return domain.ReportRow{Values: values}
}

func header(label string) domain.ReportRow {
	return row(map[string]string{domain.ColumnManufacturer: label})
}

func item(number, store string) domain.ReportRow {
	return row(map[string]string{
		domain.ColumnManufacturer:    "Samsung",
		domain.ColumnItemNumber:      number,
		domain.ColumnItemDescription: "item " + number + " " + store,
		domain.ColumnItemCost:        "10",
	})
}

func toStrings(header []any, rows [][]any) [][]string {
	conv := func(in []any) []string {
		out := make([]string, len(in))
		for i, v := range in {
			out[i] = fmt.Sprint(v)
		}
		return out
	}
	out := [][]string{conv(header)}
	for _, r := range rows {
		out = append(out, conv(r))
	}
	return out
}
