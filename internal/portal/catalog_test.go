package portal

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idoosync/internal/browser"
	"idoosync/internal/shared/testutil"
	"idoosync/pkg/contracts/domain"
)

func catalogHTML(items ...[2]string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="catItemList-holder main">`)
	for _, it := range items {
		b.WriteString(`<div class="catalauge-item-holder "><div class="cat-prd-id"> ` + it[0] + ` </div>`)
		b.WriteString(`<table><tr><td class="cat-prd-qty">` + it[1] + `</td></tr></table></div>`)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"Allocation : 3 of 10", 3, false},
		{"Allocation : 0 of 5", 0, false},
		{"  12  ", 12, false},
		{"Allocation : 7 of 9", 7, false},
		{"Allocation : ０３ of 4", 3, false},
		{"Allocation : N/A", 0, true},
		{"of 4", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuantity(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCatalog(t *testing.T) {
	html := catalogHTML(
		[2]string{"111", "Allocation : 3 of 10"},
		[2]string{"222", "Allocation : 0 of 10"},
		[2]string{"333", "Allocation : soon"},
		[2]string{"444", "Allocation : 1 of 1"},
	) + `<div class="catalauge-item-holder "><div class="cat-prd-id">999</div></div>`

	pass, err := ParseCatalog(strings.NewReader(html), DefaultListSelectors)
	require.NoError(t, err)

	assert.Equal(t, 4, pass.Nodes)
	assert.Equal(t, []domain.StockEntry{
		{SKU: "111", AvailableQty: 3},
		{SKU: "444", AvailableQty: 1},
	}, pass.Entries)
	require.Len(t, pass.Skipped, 1)
	assert.Contains(t, pass.Skipped[0].Error(), "333")
}

func TestParseCatalogMissingFields(t *testing.T) {
	html := `<div class="catItemList-holder"><div class="catalauge-item-holder"><td class="cat-prd-qty">Allocation : 2 of 2</td></div></div>`

	pass, err := ParseCatalog(strings.NewReader(html), DefaultListSelectors)
	require.NoError(t, err)
	assert.Equal(t, 1, pass.Nodes)
	assert.Empty(t, pass.Entries)
	require.Len(t, pass.Skipped, 1)
	assert.Contains(t, pass.Skipped[0].Error(), "missing")
}

func TestCollectBothSections(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()

	h.driver.HTMLByFrame[""] = catalogHTML(
		[2]string{"111", "Allocation : 3 of 10"},
		[2]string{"222", "Allocation : 0 of 10"},
	)
	h.driver.Put(selFilterAlloc, testutil.NewElement("filter"))

	cpo := &testutil.FakeElement{Name: "cpo", ClickErr: browser.ErrNotInteractable}
	h.driver.Put(selCPOLink, cpo)
	h.driver.OnClick("cpo", func(string) {
		h.driver.HTMLByFrame[""] = catalogHTML(
			[2]string{"CPO-1", "Allocation : 2 of 2"},
			[2]string{"111", "Allocation : 1 of 4"},
		)
	})

	extractor := NewCatalogExtractor(h.nav, h.cfg, dir, h.logger)
	passes, err := extractor.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, passes, 2)

	assert.Equal(t, SectionStandard, passes[0].Section)
	assert.Equal(t, SectionCPO, passes[1].Section)
	assert.Equal(t, []string{"click:filter", "click:cpo", "parent_click:cpo"}, h.driver.Actions())

	for _, name := range []string{PhoneScreenshot, CPOScreenshot} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	set, entries := StockFromPasses(passes)
	assert.Equal(t, []string{"111", "CPO-1", domain.SentinelSKU}, set.Items())
	assert.Len(t, entries, 3)
	testutil.AssertLogAttr(t, h.logs, "strategy", "parent_click")
	testutil.AssertLogContains(t, h.logs, slog.LevelInfo, "Stock added")
}

func TestCollectWithoutStockOrCPO(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	h.driver.HTMLByFrame[""] = catalogHTML([2]string{"111", "Allocation : 0 of 10"})
	h.driver.Put(selFilterAlloc, testutil.NewElement("filter"))

	extractor := NewCatalogExtractor(h.nav, h.cfg, dir, h.logger)
	passes, err := extractor.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, passes, 1)
	assert.Empty(t, passes[0].Entries)
	assert.Empty(t, h.driver.Actions())
	assert.Empty(t, h.driver.Screenshots())

	set, entries := StockFromPasses(passes)
	assert.Equal(t, []string{domain.SentinelSKU}, set.Items())
	assert.Empty(t, entries)
}

func TestCollectFailsWhenEveryClickFails(t *testing.T) {
	h := newHarness(t)
	h.driver.HTMLByFrame[""] = catalogHTML()
	h.driver.Put(selCPOLink, &testutil.FakeElement{
		Name:      "cpo",
		ClickErr:  browser.ErrNotInteractable,
		ParentErr: browser.ErrNotInteractable,
		ScriptErr: browser.ErrStaleElement,
	})

	extractor := NewCatalogExtractor(h.nav, h.cfg, t.TempDir(), h.logger)
	passes, err := extractor.Collect(context.Background())

	assert.ErrorIs(t, err, browser.ErrStrategiesExhausted)
	assert.Len(t, passes, 1)
}
