// Package pivot rebuilds the category/subcategory hierarchy of spreadsheet
// pivot dumps, where the hierarchy is only encoded by row order and running
// sums, and checks the exclusion filter the dump was exported with.
//
// Nothing in this package performs I/O or logs: degradations are returned to
// the caller as core.Advisory values.
package pivot
