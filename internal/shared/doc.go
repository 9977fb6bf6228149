// Package shared holds helpers used across idoo-sync packages that do not
// belong to any one of them. The testutil subpackage provides the fake
// browser driver, a sleeper that records instead of sleeping and a log
// handler tests can assert against.
package shared
