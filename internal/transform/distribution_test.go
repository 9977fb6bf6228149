package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"idoosync/pkg/contracts/domain"
)

func TestBuildDistribution(t *testing.T) {
	got := BuildDistribution([]domain.ReconciledRow{{
		Market: "West", StoreID: "101", StoreName: "Alpha",
		Manufacturer: "Samsung", ItemNumber: "111", ItemDescription: "Galaxy S",
		OnHand: "2", OnPO: "0", SevenDays: "1", ItemCost: "499.99", TotalQty: "3", Suggested: "1",
	}})

	assert.Equal(t, []DistributionRow{{
		ItemCost: "499.99", Market: "West", StoreName: "Alpha", ItemNumber: "111",
		ItemDescription: "Galaxy S", OnHand: "2", OnPO: "0", SevenDays: "1",
		TotalQty: "3", Suggested: "1",
	}}, got)
	assert.Len(t, DistributionColumns, 16)
	assert.Equal(t, "Item Cost", DistributionColumns[0])
	assert.Equal(t, "Difference", DistributionColumns[15])
}

func TestPlanDistributionLayout(t *testing.T) {
	w, b := BandWhite, BandBlue

	tests := []struct {
		name   string
		stores []string
		bands  []Band
		groups []Group
	}{
		{
			name:   "bands flip at store boundaries",
			stores: []string{"A", "A", "B", "B", "B", "C"},
			bands:  []Band{w, w, b, b, b, w},
			groups: []Group{{"A", 2, 3}, {"B", 4, 6}, {"C", 7, 7}},
		},
		{
			name:   "non-adjacent repeats start new groups",
			stores: []string{"A", "B", "A"},
			bands:  []Band{w, b, w},
			groups: []Group{{"A", 2, 2}, {"B", 3, 3}, {"A", 4, 4}},
		},
		{
			name:   "single store",
			stores: []string{"A", "A"},
			bands:  []Band{w, w},
			groups: []Group{{"A", 2, 3}},
		},
		{
			name:   "no rows",
			stores: nil,
			bands:  []Band{},
			groups: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout := PlanDistributionLayout(tt.stores)
			assert.Equal(t, tt.bands, layout.Bands)
			assert.Equal(t, tt.groups, layout.Groups)
			assert.Equal(t, len(tt.stores)+1, layout.LastRow)
		})
	}
}

func TestGroupMerged(t *testing.T) {
	assert.True(t, Group{Start: 2, End: 3}.Merged())
	assert.False(t, Group{Start: 7, End: 7}.Merged())
}

func TestBandString(t *testing.T) {
	assert.Equal(t, "white", BandWhite.String())
	assert.Equal(t, "blue", BandBlue.String())
}
