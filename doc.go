// Package fsa analyzes two-year financial statements. It is designed to be a
// small, stateless engine that turns a three-column table (line item, prior
// year, current year) into the figures an analyst reads first.
//
// The core functionalities include:
//   - Statement Model: an ordered list of line items, normalized from a
//     spreadsheet by ReadWorkbook or built directly by the caller.
//   - Ratio Engine: DeriveMetrics computes the year-over-year growth and the
//     share of total assets of every line item, LiquidityRatio computes the
//     current ratio of both years.
//   - Label Matching: line items are located by case-insensitive markers, see
//     Matcher and DuplicatePolicy.
//   - Reports: an Analyzer bundles both computations into a Report, the unit
//     handed to renderers, to the AI assistant and to the HTTP dashboard.
//
// Zero denominators never fail a computation: they are replaced by Epsilon.
// Missing rows in the liquidity computation yield "N/A" ratios instead of an
// error, so that a report can always be displayed.
//
// This package serves as the foundational logic for the `fsa` command-line
// tool.
package fsa
