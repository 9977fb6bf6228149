package config

import (
	"time"

	"idoosync/pkg/contracts"
)

// Application constants for the IDOO inventory sync
const (
	AppName    = "IDOO Inventory Sync"
	AppVersion = contracts.Version

	// Dealer-ordering portal
	PortalEntryURL       = "https://www.t-mobiledealerordering.com/b2b_tmo/init.do"
	PortalLoginAttempts  = 1
	PortalLoginSettle    = 3 * time.Second
	PortalMarkerPolls    = 15
	PortalStageAttempts  = 3
	PortalCatalogSettle  = 10 * time.Second
	PortalFilterSettle   = 10 * time.Second
	PortalCPOSettle      = 8 * time.Second
	DefaultElementWait   = 10 * time.Second
	DefaultUserFieldWait = 15 * time.Second

	// Report portal
	ReportLoginURL        = "https://www.myrtpos.com/newbdi/index.fwx"
	ReportReorderURL      = "https://www.myrtpos.com/newbdi/Reorder_Custom.fwx"
	ReportLoginAttempts   = 3
	ReportDaysValue       = "7"
	ReportPollInterval    = 5 * time.Second
	ReportPollCeiling     = 300 * time.Second
	ReportProgressEvery   = 30 * time.Second
	ReportExportSettle    = 5 * time.Second
	ReportPageLoadTimeout = 300 * time.Second

	// Download watcher
	DownloadPollInterval = 1 * time.Second
	DownloadCeiling      = 180 * time.Second
	DownloadTargetName   = "ReOrder Custom Report.xlsx"
	PartialDownloadGlob  = "*.crdownload"

	// Browser engines
	EngineChromedp = "chromedp"
	EngineRod      = "rod"

	// File Paths (relative to the base directory)
	DefaultDownloadDir     = "download_files"
	DefaultLogsDir         = "logs"
	DefaultDataDir         = "data"
	DefaultCredentialsFile = "cred.txt"
	DefaultHistoryDB       = "history.db"
	DefaultLogFile         = "idoo-sync.log"

	// Output naming
	OutputFilePrefix = "IDOO"
	OutputDateLayout = "01-02-2006"

	// Alerts
	DefaultServiceName = "T Mobile Scraper"
	AlertTimeout       = 5 * time.Second
)
