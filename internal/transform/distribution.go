package transform

import "idoosync/pkg/contracts/domain"

// DistributionColumns is the header of the distribution sheet, columns A
// through P
var DistributionColumns = []string{
	"Item Cost", "Market", "Store Name", "Item Number", "Item Description",
	"On Hand", "On PO", "7 Days", "Total Qty", "Suggested",
	"Qty", "0", "Shipping", "Total", "Your Total", "Difference",
}

// DistributionRow is one item in the distribution view. The trailing
// computed columns start at zero or blank and are filled by formulas or
// by hand.
type DistributionRow struct {
	ItemCost        string
	Market          string
	StoreName       string
	ItemNumber      string
	ItemDescription string
	OnHand          string
	OnPO            string
	SevenDays       string
	TotalQty        string
	Suggested       string
	Qty             int
	Zero            int
}

// BuildDistribution reorders the reconciled rows into the distribution
// view: StoreID and Manufacturer are dropped and the item cost leads.
func BuildDistribution(rows []domain.ReconciledRow) []DistributionRow {
	out := make([]DistributionRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, DistributionRow{
			ItemCost:        r.ItemCost,
			Market:          r.Market,
			StoreName:       r.StoreName,
			ItemNumber:      r.ItemNumber,
			ItemDescription: r.ItemDescription,
			OnHand:          r.OnHand,
			OnPO:            r.OnPO,
			SevenDays:       r.SevenDays,
			TotalQty:        r.TotalQty,
			Suggested:       r.Suggested,
		})
	}
	return out
}

// Band is the background of a distribution row
type Band int

const (
	BandWhite Band = iota
	BandBlue
)

func (b Band) String() string {
	if b == BandBlue {
		return "blue"
	}
	return "white"
}

// Group is a maximal run of rows sharing a Store Name, as 1-based sheet
// rows with the header in row 1
type Group struct {
	StoreName string
	Start     int
	End       int
}

// Merged reports whether the group's N/O/P cells span several rows
func (g Group) Merged() bool {
	return g.End > g.Start
}

// DistributionLayout holds the banding and grouping of the distribution
// sheet
type DistributionLayout struct {
	// Bands has one entry per data row
	Bands  []Band
	Groups []Group
	// LastRow is the last sheet row in use
	LastRow int
}

// PlanDistributionLayout works out bands and groups from the Store Name of
// each data row in order. The band flips every time the Store Name
// changes, starting white. Groups key on Store Name alone, so equal names
// under different markets that happen to be adjacent share a group.
func PlanDistributionLayout(storeNames []string) DistributionLayout {
	layout := DistributionLayout{
		Bands:   make([]Band, len(storeNames)),
		LastRow: len(storeNames) + 1,
	}

	band := BandBlue
	for i, name := range storeNames {
		row := i + 2
		if i == 0 || name != storeNames[i-1] {
			if band == BandBlue {
				band = BandWhite
			} else {
				band = BandBlue
			}
			layout.Groups = append(layout.Groups, Group{StoreName: name, Start: row, End: row})
		} else {
			layout.Groups[len(layout.Groups)-1].End = row
		}
		layout.Bands[i] = band
	}
	return layout
}

// StoreNames returns the Store Name of each row in order
func StoreNames(rows []DistributionRow) []string {
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.StoreName
	}
	return names
}
