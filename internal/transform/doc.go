// Package transform turns the acquired re-order report into the per-account
// output workbook.
//
// The pipeline has four steps, each usable on its own:
//
//   - Parse reads the first sheet of the acquired workbook into rows keyed
//     by header name.
//   - Reconcile walks the rows, tracks the Market / StoreID / Store Name
//     section headers and keeps the items whose number is in the SKU set.
//   - BuildDistribution and PlanDistributionLayout reshape the retained rows
//     into the distribution view and work out its banding and store groups.
//   - Render writes the raw rows, the formatted distribution sheet and the
//     stock quantities into one workbook with excelize.
//
// Transformer.Transform runs all four and removes the acquired file.
package transform
