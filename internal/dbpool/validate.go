package dbpool

import (
	"reflect"

	"github.com/geoplaque/satellite/internal/logger"
)

// Any validation failure surfaces as a boolean-false return; the caller
// is expected to poke the handle (implicit rollback) and propagate a
// task-level status. Every validator logs the caller's name on failure
// so a rejected paquet can be traced back to the query that failed its
// shape check.

// TuplesOK reports whether result carries at least one row.
func TuplesOK(caller string, result *Result) bool {
	if result == nil || len(result.Rows) == 0 {
		logger.Warn("dbpool validation failed: no tuples returned", "caller", caller)
		return false
	}
	return true
}

// CommandOK reports whether result's command tag indicates a row was
// affected (insert/update/delete semantics, as opposed to a select).
func CommandOK(caller string, result *Result) bool {
	if result == nil || result.Command.RowsAffected() == 0 {
		logger.Warn("dbpool validation failed: command affected no rows", "caller", caller)
		return false
	}
	return true
}

// CorrectNumberOfColumns reports whether result has exactly want columns.
func CorrectNumberOfColumns(caller string, result *Result, want int) bool {
	if result == nil || len(result.Columns) != want {
		logger.Warn("dbpool validation failed: wrong column count", "caller", caller, "want", want)
		return false
	}
	return true
}

// CorrectNumberOfRows reports whether result has exactly want rows.
func CorrectNumberOfRows(caller string, result *Result, want int) bool {
	if result == nil || len(result.Rows) != want {
		logger.Warn("dbpool validation failed: wrong row count", "caller", caller, "want", want)
		return false
	}
	return true
}

// CorrectColumnType reports whether the value at (row, col) in result
// has the given reflect.Kind. A nil (SQL NULL) value never matches.
func CorrectColumnType(caller string, result *Result, row, col int, want reflect.Kind) bool {
	if result == nil || row >= len(result.Rows) || col >= len(result.Columns) {
		logger.Warn("dbpool validation failed: row/column out of range", "caller", caller, "row", row, "col", col)
		return false
	}
	v := result.Rows[row][col]
	if v == nil {
		logger.Warn("dbpool validation failed: unexpected null", "caller", caller, "row", row, "col", col)
		return false
	}
	if reflect.TypeOf(v).Kind() != want {
		logger.Warn("dbpool validation failed: wrong column type", "caller", caller, "row", row, "col", col, "want", want.String(), "got", reflect.TypeOf(v).Kind().String())
		return false
	}
	return true
}
