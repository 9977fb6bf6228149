// Package operations runs the inventory pipeline for a batch of accounts.
//
// The Orchestrator sequences one account at a time through named steps:
//
//   - browser: launch (once per batch) the session shared by every account
//   - login, stages, extract: the dealer-ordering portal, producing the SKU set
//   - acquire: the re-order report, in its own browser session
//   - transform: the formatted output workbook
//   - deliver: optional e-mail of the workbook
//
// Each step records an AccountState entry, a span and a duration metric.
// Failures are classified into OperationError values; a failed or panicking
// account is logged, captured in a screenshot where a browser is open, and
// the batch moves on. The shared browser is closed once when the batch ends.
package operations
