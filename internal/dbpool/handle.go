package dbpool

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/geoplaque/satellite/internal/status"
)

// Handle is a connection plus a slot for accumulating bound arguments
// (up to a fixed bound) and the current result. A handle's connection is
// established once at chain init; an acquire (PeekHandle) opens a
// transaction, a release (PokeHandle) commits it, a failure
// (ResetHandle) rolls it back and reopens the connection.
type Handle struct {
	id    uint32
	chain *Chain

	conn *pgx.Conn
	tx   pgx.Tx

	params []any
	result *Result
}

// maxBoundParams bounds the accumulated parameter vector; pushing past
// it is a caller bug (a query with more placeholders than this has bigger
// problems) and panics rather than silently truncating the query.
const maxBoundParams = 64

// ID returns the handle's position within its chain.
func (h *Handle) ID() uint32 {
	return h.id
}

func (h *Handle) push(v any) {
	if len(h.params) >= maxBoundParams {
		panic(fmt.Sprintf("dbpool: handle %d: parameter vector exceeds %d entries", h.id, maxBoundParams))
	}
	h.params = append(h.params, v)
}

// PushBigint pushes a nullable 64-bit integer parameter.
func (h *Handle) PushBigint(v *int64) {
	if v == nil {
		h.push(nil)
		return
	}
	h.push(*v)
}

// PushInteger pushes a nullable 32-bit integer parameter.
func (h *Handle) PushInteger(v *int32) {
	if v == nil {
		h.push(nil)
		return
	}
	h.push(*v)
}

// PushDouble pushes a nullable double-precision float parameter.
func (h *Handle) PushDouble(v *float64) {
	if v == nil {
		h.push(nil)
		return
	}
	h.push(*v)
}

// PushReal pushes a nullable single-precision float parameter.
func (h *Handle) PushReal(v *float32) {
	if v == nil {
		h.push(nil)
		return
	}
	h.push(*v)
}

// PushChar pushes a nullable fixed-width character parameter.
func (h *Handle) PushChar(v *string) {
	if v == nil {
		h.push(nil)
		return
	}
	h.push(*v)
}

// PushVarchar pushes a nullable variable-length character parameter.
func (h *Handle) PushVarchar(v *string) {
	if v == nil {
		h.push(nil)
		return
	}
	h.push(*v)
}

// PushBytea pushes a nullable binary-blob parameter. A non-nil, zero
// length slice still pushes an empty (not null) value.
func (h *Handle) PushBytea(v []byte) {
	if v == nil {
		h.push(nil)
		return
	}
	h.push(v)
}

// PushUUID pushes a nullable UUID parameter.
func (h *Handle) PushUUID(v *uuid.UUID) {
	if v == nil {
		h.push(nil)
		return
	}
	h.push(*v)
}

// PushBigintArray pushes a 64-bit integer array parameter, for queries
// matching against a set with ANY($n).
func (h *Handle) PushBigintArray(v []int64) {
	h.push(v)
}

// Result captures everything the post-execution validators inspect:
// the rows read back (if any), their column descriptions, and the
// command tag pgx reports for the statement.
type Result struct {
	Columns []string
	Rows    [][]any
	Command pgx.CommandTag
}

// Execute runs sql within the handle's current transaction using the
// accumulated parameter vector, then clears the vector regardless of
// outcome. On success the result is cached on the handle for the
// validators and also returned directly.
func (h *Handle) Execute(ctx context.Context, sql string) (*Result, error) {
	params := h.params
	h.params = h.params[:0]

	rows, err := h.tx.Query(ctx, sql, params...)
	if err != nil {
		return nil, status.Wrap(fmt.Sprintf("dbpool.execute(handle=%d)", h.id), status.ErrUnexpectedResult, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = string(f.Name)
	}

	var data [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, status.Wrap(fmt.Sprintf("dbpool.execute(handle=%d)", h.id), status.ErrUnexpectedResult, err)
		}
		data = append(data, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, status.Wrap(fmt.Sprintf("dbpool.execute(handle=%d)", h.id), status.ErrUnexpectedResult, err)
	}

	result := &Result{
		Columns: cols,
		Rows:    data,
		Command: rows.CommandTag(),
	}
	h.result = result
	return result, nil
}

// LastResult returns the Result of the most recent Execute call on this
// handle, or nil if none has run since the last peek/poke/reset.
func (h *Handle) LastResult() *Result {
	return h.result
}
