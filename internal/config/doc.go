// Package config provides configuration for the inventory sync.
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables with the IDOO_ prefix (highest priority)
//	2. A YAML file (config.yaml or configs/config.yaml)
//	3. Default values (lowest priority)
//
// Environment variables follow the section layout of Config:
//
//	IDOO_LOGGING_LEVEL=debug
//	IDOO_BROWSER_ENGINE=rod
//	IDOO_REPORT_POLL_CEILING=300s
//	IDOO_ALERTS_WEBHOOK_URL=https://discord.com/api/webhooks/...
//
// Most keys also fall back to their unprefixed name, so WEBHOOK_URL and
// SENDGRID_API_KEY are honoured as well.
//
// Headless mode is never configured explicitly; DetectHeadless infers it
// from CI signals and the presence of a display.
//
// All file system locations are resolved through Paths, relative to the
// base directory (the working directory unless IDOO_PATHS_BASE_DIR is set).
package config
