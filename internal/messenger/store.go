package messenger

import (
	"context"

	"github.com/geoplaque/satellite/internal/dbpool"
	"github.com/geoplaque/satellite/internal/status"
)

// pendingRow is one notification row as read off the database, before
// its payload has been rendered into an MMPS buffer.
type pendingRow struct {
	id          int64
	deviceToken string // hex-encoded, per spec.md's "hex device token"
	messageKey  string
	args        string
}

// Store resolves the three database operations the pipeline thread
// needs: how many rows are outstanding, fetching (and marking
// in-flight) up to a batch cap of them, and the two after-the-fact flag
// updates (sent, then in_messanger cleared).
type Store struct {
	db *dbpool.Chain
}

// NewStore wraps chain as a Store.
func NewStore(chain *dbpool.Chain) *Store {
	return &Store{db: chain}
}

// CountOutstanding reports how many notification rows have not yet
// entered the Messenger pipeline.
func (s *Store) CountOutstanding(ctx context.Context) (int, error) {
	h, err := s.db.PeekHandle(ctx)
	if err != nil {
		return 0, err
	}
	defer s.db.PokeHandle(ctx, h)

	result, err := h.Execute(ctx, `SELECT count(*) FROM journal.notifications WHERE in_messanger = FALSE`)
	if err != nil {
		return 0, err
	}
	if !dbpool.TuplesOK("messenger.store.count_outstanding", result) {
		return 0, status.New("messenger.store.count_outstanding", status.ErrUnexpectedResult)
	}
	return int(result.Rows[0][0].(int64)), nil
}

// FetchBatch marks up to cap outstanding rows as in_messanger = TRUE and
// returns them for the caller to render into buffers and enqueue.
func (s *Store) FetchBatch(ctx context.Context, cap int) ([]pendingRow, error) {
	h, err := s.db.PeekHandle(ctx)
	if err != nil {
		return nil, err
	}
	defer s.db.PokeHandle(ctx, h)

	limit := int32(cap)
	h.PushInteger(&limit)
	result, err := h.Execute(ctx, `
		WITH picked AS (
			UPDATE journal.notifications
			SET in_messanger = TRUE
			WHERE id IN (
				SELECT id FROM journal.notifications
				WHERE in_messanger = FALSE
				ORDER BY id
				LIMIT $1
				FOR UPDATE SKIP LOCKED
			)
			RETURNING id, device_token, message_key, args
		)
		SELECT id, device_token, message_key, args FROM picked`)
	if err != nil {
		return nil, err
	}

	rows := make([]pendingRow, 0, len(result.Rows))
	for _, row := range result.Rows {
		rows = append(rows, pendingRow{
			id:          row[0].(int64),
			deviceToken: row[1].(string),
			messageKey:  row[2].(string),
			args:        row[3].(string),
		})
	}
	return rows, nil
}

// MarkSent sets sent = TRUE for every id in ids.
func (s *Store) MarkSent(ctx context.Context, ids []int64) error {
	return s.setFlag(ctx, "messenger.store.mark_sent", `UPDATE journal.notifications SET sent = TRUE WHERE id = ANY($1)`, ids)
}

// MarkProcessed clears in_messanger for every id in ids, the final step
// before the pipeline returns their buffers to the pool.
func (s *Store) MarkProcessed(ctx context.Context, ids []int64) error {
	return s.setFlag(ctx, "messenger.store.mark_processed", `UPDATE journal.notifications SET in_messanger = FALSE WHERE id = ANY($1)`, ids)
}

func (s *Store) setFlag(ctx context.Context, op, sql string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	h, err := s.db.PeekHandle(ctx)
	if err != nil {
		return err
	}
	defer s.db.PokeHandle(ctx, h)

	h.PushBigintArray(ids)
	result, err := h.Execute(ctx, sql)
	if err != nil {
		return err
	}
	if !dbpool.CommandOK(op, result) {
		return status.New(op, status.ErrUnexpectedResult)
	}
	return nil
}

// Recover resets any row left with in_messanger = TRUE from a previous
// process that crashed mid-pipeline, per §4.E's startup recovery
// invariant: a row's in_messanger flag must not outlive the process that
// set it.
func (s *Store) Recover(ctx context.Context) (int, error) {
	h, err := s.db.PeekHandle(ctx)
	if err != nil {
		return 0, err
	}
	defer s.db.PokeHandle(ctx, h)

	result, err := h.Execute(ctx, `UPDATE journal.notifications SET in_messanger = FALSE WHERE in_messanger = TRUE`)
	if err != nil {
		return 0, err
	}
	// A zero-row update is the common case (clean shutdown last time),
	// not a failure, so the CommandOK affected-rows check doesn't apply
	// here the way it does for MarkSent/MarkProcessed.
	return int(result.Command.RowsAffected()), nil
}
