package rtpos

import (
	"time"

	"idoosync/internal/browser"
)

const (
	menuText   = "Inventory Report"
	reorderTxt = "Re-Order Report By Store"
)

var (
	selUserID      = browser.CSS(`input[name="secUserID"]`)
	selPassword    = browser.CSS(`input[name="secPassword"]`)
	selLoginButton = browser.CSS(`input[value="Login"]`)

	// most specific first
	menuSelectors = []browser.Selector{
		browser.WithText(`span:has(> img[src*="cellularphone.png"])`, menuText),
		browser.WithText(`span`, menuText),
		browser.WithText(`:has(> span)`, menuText),
	}
	reorderSelectors = []browser.Selector{
		browser.WithOwnText(`b`, reorderTxt),
		browser.WithText(`a:has(> b)`, reorderTxt),
		browser.WithText(`a, span`, reorderTxt),
	}

	selDays     = browser.CSS(`input[name="frmDays"]`)
	selGenerate = browser.WithOwnText(`span`, "Generate")
	selExport   = browser.CSS(`div > i.dx-icon.dx-icon-export-excel-button`)
	selError    = browser.WithOwnText(`*`, "Error", "error", "failed")
)

const (
	loginPause    = 5 * time.Second
	postLogin     = 3 * time.Second
	menuWait      = 30 * time.Second
	menuPause     = 3 * time.Second
	linkPause     = 5 * time.Second
	formPause     = 5 * time.Second
	daysClick     = 500 * time.Millisecond
	daysPause     = time.Second
	generatePause = 5 * time.Second
)
