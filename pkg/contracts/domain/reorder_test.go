package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportRow(t *testing.T) {
	header := ReportRow{Values: map[string]string{"Store Name": "Downtown"}}
	item := ReportRow{Values: map[string]string{ColumnItemNumber: "111", ColumnOnHand: "4"}}

	assert.True(t, header.IsHeader())
	assert.False(t, item.IsHeader())
	assert.Equal(t, "4", item.Get(ColumnOnHand))
	assert.Equal(t, "", item.Get(ColumnSuggested))
	assert.True(t, ReportRow{}.IsHeader())
}

func TestReconciledRowCells(t *testing.T) {
	row := ReconciledRow{
		Market: "West", StoreID: "S1", StoreName: "Downtown", Manufacturer: "Acme",
		ItemNumber: "111", ItemDescription: "Phone", OnHand: "4", OnPO: "1",
		SevenDays: "2", ItemCost: "99.50", TotalQty: "5", Suggested: "3",
	}
	cells := row.Cells()

	assert.Len(t, cells, len(ReconciledColumns))
	assert.Equal(t, "West", cells[0])
	assert.Equal(t, "111", cells[4])
	assert.Equal(t, "3", cells[len(cells)-1])
}
