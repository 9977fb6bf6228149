package transform

import (
	"errors"
	"strings"

	"idoosync/pkg/contracts/domain"
)

// ErrNoMatchingItems is returned when no report row survives
// reconciliation
var ErrNoMatchingItems = errors.New("no matching items found in report")

// Section header labels carried in the Manufacturer column
const (
	labelMarket    = "Market:"
	labelStoreID   = "StoreID:"
	labelStoreName = "Store Name:"
)

// sectionState is the most recent header value of each kind
type sectionState struct {
	market    string
	storeID   string
	storeName string
}

// apply updates the state from a header row's label text. Text matching
// none of the labels is ignored.
func (s *sectionState) apply(text string) {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, labelMarket):
		s.market = strings.TrimSpace(strings.TrimPrefix(text, labelMarket))
	case strings.HasPrefix(text, labelStoreID):
		s.storeID = strings.TrimSpace(strings.TrimPrefix(text, labelStoreID))
	case strings.HasPrefix(text, labelStoreName):
		s.storeName = strings.TrimSpace(strings.TrimPrefix(text, labelStoreName))
	}
}

// Reconcile keeps the data rows whose item number is in skus, stamped with
// the section headers in force at that point, and drops exact duplicates
// keeping the first occurrence. An empty result is ErrNoMatchingItems.
func Reconcile(rows []domain.ReportRow, skus *domain.SkuSet) ([]domain.ReconciledRow, error) {
	var (
		state sectionState
		out   []domain.ReconciledRow
		seen  = make(map[domain.ReconciledRow]struct{})
	)

	for _, row := range rows {
		if row.IsHeader() {
			state.apply(row.Get(domain.ColumnManufacturer))
			continue
		}

		item := row.Get(domain.ColumnItemNumber)
		if !skus.Contains(item) {
			continue
		}

		rec := domain.ReconciledRow{
			Market:          state.market,
			StoreID:         state.storeID,
			StoreName:       state.storeName,
			Manufacturer:    row.Get(domain.ColumnManufacturer),
			ItemNumber:      item,
			ItemDescription: row.Get(domain.ColumnItemDescription),
			OnHand:          row.Get(domain.ColumnOnHand),
			OnPO:            row.Get(domain.ColumnOnPO),
			SevenDays:       row.Get(domain.ColumnSevenDays),
			ItemCost:        row.Get(domain.ColumnItemCost),
			TotalQty:        row.Get(domain.ColumnTotalQty),
			Suggested:       row.Get(domain.ColumnSuggested),
		}
		if _, dup := seen[rec]; dup {
			continue
		}
		seen[rec] = struct{}{}
		out = append(out, rec)
	}

	if len(out) == 0 {
		return nil, ErrNoMatchingItems
	}
	return out, nil
}
