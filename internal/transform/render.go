package transform

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"idoosync/pkg/contracts/domain"
)

// Sheet names of the output workbook
const (
	SheetReport       = "report"
	SheetDistribution = "Phone distribution idoo"
	SheetStock        = "stock_quantity"
)

// Distribution sheet colours
const (
	ColorOrange    = "FFA500"
	ColorLightBlue = "ADD8E6"
	ColorWhite     = "FFFFFF"
	ColorRed       = "FF0000"
)

var stockColumns = []string{"SKU", "Quantity"}

// columnWidths are applied to the distribution sheet as start, end, width
var columnWidths = []struct {
	from, to string
	width    float64
}{
	{"A", "B", 10},
	{"C", "C", 20},
	{"D", "D", 15},
	{"E", "E", 30},
	{"F", "P", 10},
}

// Render writes the output workbook to path: the raw reconciled rows, the
// formatted distribution view and the stock quantities.
func Render(path string, raw []domain.ReconciledRow, dist []DistributionRow, stock []domain.StockEntry) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), SheetReport); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := writeRaw(f, raw); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetDistribution); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", SheetDistribution, err)
	}
	if err := writeDistribution(f, dist); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetStock); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", SheetStock, err)
	}
	if err := writeStock(f, stock); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	fullCalc := true
	if err := f.SetCalcProps(&excelize.CalcPropsOptions{FullCalcOnLoad: &fullCalc}); err != nil {
		return fmt.Errorf("failed to set calculation properties: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeRaw(f *excelize.File, rows []domain.ReconciledRow) error {
	if err := setRow(f, SheetReport, 1, strings2any(domain.ReconciledColumns)); err != nil {
		return err
	}
	for i, r := range rows {
		values := []any{
			r.Market, r.StoreID, r.StoreName, r.Manufacturer,
			r.ItemNumber, r.ItemDescription,
			numeric(r.OnHand), numeric(r.OnPO), numeric(r.SevenDays),
			numeric(r.ItemCost), numeric(r.TotalQty), numeric(r.Suggested),
		}
		if err := setRow(f, SheetReport, i+2, values); err != nil {
			return err
		}
	}
	return nil
}

func writeStock(f *excelize.File, stock []domain.StockEntry) error {
	if err := setRow(f, SheetStock, 1, strings2any(stockColumns)); err != nil {
		return err
	}
	for i, e := range stock {
		if err := setRow(f, SheetStock, i+2, []any{e.SKU, e.AvailableQty}); err != nil {
			return err
		}
	}
	return nil
}

// distributionStyles are the cell styles of the distribution sheet
type distributionStyles struct {
	header       int
	headerOrange int
	band         map[Band]int
	orange       int
	difference   int
}

func newDistributionStyles(f *excelize.File) (*distributionStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	style := func(color string, font *excelize.Font) *excelize.Style {
		return &excelize.Style{
			Border:    border,
			Alignment: center,
			Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Font:      font,
		}
	}

	s := &distributionStyles{band: make(map[Band]int, 2)}
	var white, blue int
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&s.header, style(ColorWhite, &excelize.Font{Bold: true})},
		{&s.headerOrange, style(ColorOrange, &excelize.Font{Bold: true})},
		{&white, style(ColorWhite, nil)},
		{&blue, style(ColorLightBlue, nil)},
		{&s.orange, style(ColorOrange, nil)},
		{&s.difference, style(ColorOrange, &excelize.Font{Color: ColorRed})},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return nil, fmt.Errorf("failed to create style: %w", err)
		}
		*d.dst = id
	}
	s.band[BandWhite] = white
	s.band[BandBlue] = blue
	return s, nil
}

func writeDistribution(f *excelize.File, rows []DistributionRow) error {
	const sheet = SheetDistribution

	for _, w := range columnWidths {
		if err := f.SetColWidth(sheet, w.from, w.to, w.width); err != nil {
			return fmt.Errorf("failed to set column width %s:%s: %w", w.from, w.to, err)
		}
	}

	styles, err := newDistributionStyles(f)
	if err != nil {
		return err
	}
	layout := PlanDistributionLayout(StoreNames(rows))

	if err := setRow(f, sheet, 1, strings2any(DistributionColumns)); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "N1", styles.header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "O1", "P1", styles.headerOrange); err != nil {
		return err
	}
	if err := f.SetCellFormula(sheet, "L1", fmt.Sprintf("SUM(L2:L%d)", layout.LastRow)); err != nil {
		return err
	}

	for i, r := range rows {
		row := i + 2
		values := []any{
			numeric(r.ItemCost), r.Market, r.StoreName, r.ItemNumber, r.ItemDescription,
			numeric(r.OnHand), numeric(r.OnPO), numeric(r.SevenDays), numeric(r.TotalQty), numeric(r.Suggested),
			r.Qty, r.Zero,
		}
		if err := setRow(f, sheet, row, values); err != nil {
			return err
		}
		if err := f.SetCellFormula(sheet, cell("L", row), fmt.Sprintf("K%d*A%d", row, row)); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell("A", row), cell("N", row), styles.band[layout.Bands[i]]); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell("O", row), cell("O", row), styles.orange); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell("P", row), cell("P", row), styles.difference); err != nil {
			return err
		}
	}

	for _, g := range layout.Groups {
		if g.Merged() {
			for _, col := range []string{"N", "O", "P"} {
				if err := f.MergeCell(sheet, cell(col, g.Start), cell(col, g.End)); err != nil {
					return fmt.Errorf("failed to merge %s%d:%s%d: %w", col, g.Start, col, g.End, err)
				}
			}
		}
		if err := f.SetCellFormula(sheet, cell("N", g.Start), fmt.Sprintf("SUM(L%d:L%d)", g.Start, g.End)); err != nil {
			return err
		}
		if err := f.SetCellFormula(sheet, cell("P", g.Start), fmt.Sprintf("O%d-N%d", g.Start, g.Start)); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	if err := f.SetSheetRow(sheet, cell("A", row), &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func cell(col string, row int) string {
	return col + strconv.Itoa(row)
}

// numeric stores numbers as numbers so formulas can use them. Blank stays
// blank and anything else is kept as text.
func numeric(s string) any {
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}

func strings2any(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
