package portal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"idoosync/internal/browser"
	"idoosync/internal/config"
	"idoosync/pkg/contracts/domain"
)

// Catalog sections
const (
	SectionStandard = "standard"
	SectionCPO      = "cpo"
)

const allocationLabel = "Allocation :"

// ListSelectors locate catalog entries and their fields in the fragment
type ListSelectors struct {
	List     string
	SKU      string
	Quantity string
}

// DefaultListSelectors matches the portal's catalog item list
var DefaultListSelectors = ListSelectors{
	List:     "div.catItemList-holder > div.catalauge-item-holder",
	SKU:      "div.cat-prd-id",
	Quantity: "td.cat-prd-qty",
}

// Pass is the result of reading one catalog section
type Pass struct {
	Section string
	Entries []domain.StockEntry
	// Nodes counts every catalog entry seen, in stock or not
	Nodes   int
	Skipped []error
}

// ParseCatalog reads entries from a catalog fragment. Entries with a
// non-positive quantity are dropped; entries whose fields are missing or
// unparsable are reported in Skipped without stopping the pass.
func ParseCatalog(r io.Reader, sel ListSelectors) (Pass, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Pass{}, fmt.Errorf("parse catalog html: %w", err)
	}

	var pass Pass
	doc.Find(sel.List).Each(func(i int, node *goquery.Selection) {
		pass.Nodes++

		skuNode := node.Find(sel.SKU).First()
		qtyNode := node.Find(sel.Quantity).First()
		if skuNode.Length() == 0 || qtyNode.Length() == 0 {
			pass.Skipped = append(pass.Skipped, fmt.Errorf("catalog node %d: missing sku or quantity", i))
			return
		}

		sku := normalize(skuNode.Text())
		qty, err := ParseQuantity(qtyNode.Text())
		if err != nil {
			pass.Skipped = append(pass.Skipped, fmt.Errorf("catalog node %d (%s): %w", i, sku, err))
			return
		}
		if qty <= 0 || sku == "" {
			return
		}
		pass.Entries = append(pass.Entries, domain.StockEntry{SKU: sku, AvailableQty: qty})
	})
	return pass, nil
}

// ParseQuantity reads the allocated count from text such as
// "Allocation : 3 of 10".
func ParseQuantity(text string) (int, error) {
	s := normalize(text)
	s = strings.TrimSpace(strings.ReplaceAll(s, allocationLabel, ""))
	if before, _, found := strings.Cut(s, "of"); found {
		s = before
	}
	s = strings.TrimSpace(s)

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse quantity %q: %w", text, err)
	}
	return n, nil
}

// normalize folds compatibility characters such as no-break spaces and
// full-width digits before trimming.
func normalize(s string) string {
	out, _, err := transform.String(norm.NFKC, s)
	if err != nil {
		out = s
	}
	return strings.TrimSpace(out)
}

// CatalogExtractor reads stock from the catalog frame in both sections
type CatalogExtractor struct {
	nav           *browser.Navigator
	cfg           config.PortalConfig
	selectors     ListSelectors
	screenshotDir string
	logger        *slog.Logger
}

// NewCatalogExtractor creates an extractor. Screenshots of each section
// are written to screenshotDir.
func NewCatalogExtractor(nav *browser.Navigator, cfg config.PortalConfig, screenshotDir string, logger *slog.Logger) *CatalogExtractor {
	return &CatalogExtractor{
		nav:           nav,
		cfg:           cfg,
		selectors:     DefaultListSelectors,
		screenshotDir: screenshotDir,
		logger:        logger,
	}
}

// Extract parses the catalog currently rendered in the active frame
func (c *CatalogExtractor) Extract(ctx context.Context, section string) (Pass, error) {
	html, err := c.nav.HTML(ctx)
	if err != nil {
		return Pass{}, fmt.Errorf("read %s catalog: %w", section, err)
	}

	pass, err := ParseCatalog(strings.NewReader(html), c.selectors)
	if err != nil {
		return Pass{}, err
	}
	pass.Section = section

	for _, skipped := range pass.Skipped {
		c.logger.ErrorContext(ctx, "Error processing catalog node",
			slog.String("section", section),
			slog.String("error", skipped.Error()))
	}
	for _, e := range pass.Entries {
		c.logger.InfoContext(ctx, "Stock added",
			slog.String("section", section),
			slog.String("sku", e.SKU),
			slog.Int("qty", e.AvailableQty))
	}
	return pass, nil
}

// Collect reads the standard section, applies the allocation filter when
// anything is in stock, then reads the CPO section when its link exists.
func (c *CatalogExtractor) Collect(ctx context.Context) ([]Pass, error) {
	standard, err := c.Extract(ctx, SectionStandard)
	if err != nil {
		return nil, err
	}
	passes := []Pass{standard}

	if len(standard.Entries) > 0 {
		if err := c.filterAllocation(ctx); err != nil {
			return passes, err
		}
	}

	opened, err := c.openCPO(ctx)
	if err != nil || !opened {
		return passes, err
	}

	cpo, err := c.Extract(ctx, SectionCPO)
	if err != nil {
		return passes, err
	}
	passes = append(passes, cpo)

	if cpo.Nodes > 0 {
		c.nav.Screenshot(ctx, filepath.Join(c.screenshotDir, CPOScreenshot))
		if err := c.nav.Settle(ctx, shotPause); err != nil {
			return passes, err
		}
	}
	return passes, nil
}

func (c *CatalogExtractor) filterAllocation(ctx context.Context) error {
	btn, err := c.nav.Locate(ctx, selFilterAlloc, config.DefaultElementWait, browser.Present)
	if err != nil || btn == nil {
		return err
	}
	if err := btn.Click(ctx); err != nil {
		c.logger.WarnContext(ctx, "Allocation filter click failed", slog.String("error", err.Error()))
		return nil
	}
	if err := c.nav.Settle(ctx, c.cfg.FilterSettle); err != nil {
		return err
	}
	c.nav.Screenshot(ctx, filepath.Join(c.screenshotDir, PhoneScreenshot))
	return c.nav.Settle(ctx, shotPause)
}

// openCPO switches the catalog to the CPO section, escalating through the
// click strategies. A missing link is not an error.
func (c *CatalogExtractor) openCPO(ctx context.Context) (bool, error) {
	link, err := c.nav.Locate(ctx, selCPOLink, config.DefaultElementWait, browser.Present)
	if err != nil || link == nil {
		return false, err
	}

	how, err := browser.FirstSuccess(ctx, browser.ClickStrategies(link, browser.EscalatingClick...)...)
	if err != nil {
		return false, fmt.Errorf("open CPO section: %w", err)
	}
	c.logger.InfoContext(ctx, "Opened CPO section", slog.String("strategy", how))

	return true, c.nav.Settle(ctx, c.cfg.CPOSettle)
}

// StockFromPasses merges the passes into a SKU set with the sentinel
// appended and the flat list of stock entries.
func StockFromPasses(passes []Pass) (*domain.SkuSet, []domain.StockEntry) {
	set := domain.NewSkuSet()
	var entries []domain.StockEntry
	for _, p := range passes {
		set.AddEntries(p.Entries)
		entries = append(entries, p.Entries...)
	}
	set.EnsureSentinel()
	return set, entries
}
