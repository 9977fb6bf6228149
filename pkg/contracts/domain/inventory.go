// Package domain holds the inventory and run-history types shared by the
// pipeline stages.
package domain

import "strings"

// SentinelSKU is always force-included in every account's SKU set.
const SentinelSKU = "NC128TRIPLESIM"

// Account represents one credential record: a dealer-portal login paired
// with a report-portal login.
type Account struct {
	PortalUserID   string `json:"portal_user_id" validate:"required"`
	PortalPassword string `json:"-" validate:"required"`
	ReportUserID   string `json:"report_user_id" validate:"required"`
	ReportPassword string `json:"-" validate:"required"`
	Line           int    `json:"line"`
}

// Label returns the account label used in output file names and mail
// subjects. IoT accounts are upper-cased.
func (a Account) Label() string {
	if strings.HasPrefix(strings.ToLower(a.PortalUserID), "iot") {
		return strings.ToUpper(a.PortalUserID)
	}
	return a.PortalUserID
}

// StockEntry is one in-stock catalog item
type StockEntry struct {
	SKU          string `json:"sku"`
	AvailableQty int    `json:"available_qty"`
}

// SkuSet is an insertion-ordered set of distinct SKUs.
type SkuSet struct {
	order []string
	index map[string]struct{}
}

// NewSkuSet creates a set seeded with the given SKUs in order.
func NewSkuSet(skus ...string) *SkuSet {
	s := &SkuSet{index: make(map[string]struct{})}
	for _, sku := range skus {
		s.Add(sku)
	}
	return s
}

// Add inserts sku if absent and reports whether it was inserted.
func (s *SkuSet) Add(sku string) bool {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[sku]; ok {
		return false
	}
	s.index[sku] = struct{}{}
	s.order = append(s.order, sku)
	return true
}

// AddEntries inserts the SKU of every entry.
func (s *SkuSet) AddEntries(entries []StockEntry) {
	for _, e := range entries {
		s.Add(e.SKU)
	}
}

// Contains reports whether sku is a member.
func (s *SkuSet) Contains(sku string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[sku]
	return ok
}

// Len returns the number of members.
func (s *SkuSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Items returns the members in order of first appearance.
func (s *SkuSet) Items() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// EnsureSentinel appends SentinelSKU when it is not already a member.
func (s *SkuSet) EnsureSentinel() {
	s.Add(SentinelSKU)
}
