// Package table provides the column-oriented result container shared by the
// single-run driver and the ensemble driver.
//
// A [Table] is a set of named float64 columns of equal length. The operations
// are deliberately small: append rows, concatenate a same-schema table, and
// set a constant-valued column (used for the ensemble member tag). Schema
// mismatches surface as errors at append time rather than being repaired.
package table
