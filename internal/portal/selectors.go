// Package portal drives the dealer-ordering portal: login, the frame and
// menu stages that expose the catalog, and stock extraction from it.
package portal

import (
	"time"

	"idoosync/internal/browser"
)

// Frame names of the portal's frameset
const (
	FrameTop    = "isaTop"
	FrameHeader = "header"
	FrameForm   = "form_input"
)

// Screenshot names written to the download directory
const (
	PhoneScreenshot = "phone_screenshot.png"
	CPOScreenshot   = "cpo_screenshot.png"
)

var (
	selUserID      = browser.CSS(`input#userid`)
	selPassword    = browser.CSS(`input#password`)
	selAgreeTerms  = browser.CSS(`input[name="AgreeTerms"]`)
	selLoginButton = browser.CSS(`a[name="login"]`)
	selLoginMarker = browser.CSS(`frameset#isaTopFS`)
	selCatalogView = browser.CSS(`a[onclick="show_catalog_view()"]`)
	selFilterAlloc = browser.CSS(`input#filterAllocBtn`)
	selCPOLink     = browser.WithOwnText(`div.cat-secnav-areaname > a > span`, "CPO")
)

// pauses between form interactions
const (
	fieldPause     = 500 * time.Millisecond
	agreePause     = time.Second
	submitPause    = 5 * time.Second
	markerInterval = time.Second
	retryPause     = 5 * time.Second
	framePause     = time.Second
	refreshPause   = 5 * time.Second
	reloadPause    = 10 * time.Second
	reclickPause   = 5 * time.Second
	shotPause      = 3 * time.Second
)
