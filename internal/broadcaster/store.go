// Package broadcaster implements the §4.D fan-out producer/listener
// pair: a database-polled producer that detects session revisions and a
// listener thread that ships them to a single connected Satellite
// consumer over a loopback socket, with per-message receipt
// confirmation.
package broadcaster

import (
	"context"

	"github.com/geoplaque/satellite/internal/dbpool"
	"github.com/geoplaque/satellite/internal/status"
)

// RevisedSession is one row the producer picked out of the revised-set
// and is about to ship to Satellite.
type RevisedSession struct {
	SessionID       int64
	SatelliteTaskID uint32
	OnRadarRevision uint32
	InSightRevision uint32
	OnMapRevision   uint32
}

// Store resolves the producer's two database operations: how many
// sessions are waiting, and pulling (deleting) up to a batch cap of
// them atomically.
type Store struct {
	db *dbpool.Chain
}

// NewStore wraps chain as a Store.
func NewStore(chain *dbpool.Chain) *Store {
	return &Store{db: chain}
}

// CountRevised reports how many rows are in the revised-sessions set.
func (s *Store) CountRevised(ctx context.Context) (int, error) {
	h, err := s.db.PeekHandle(ctx)
	if err != nil {
		return 0, err
	}
	defer s.db.PokeHandle(ctx, h)

	result, err := h.Execute(ctx, `SELECT count(*) FROM journal.revised_sessions`)
	if err != nil {
		return 0, err
	}
	if !dbpool.TuplesOK("broadcaster.store.count_revised", result) {
		return 0, status.New("broadcaster.store.count_revised", status.ErrUnexpectedResult)
	}
	return int(result.Rows[0][0].(int64)), nil
}

// FillBatch deletes up to cap rows from the revised-sessions set and
// returns, for each, the satellite task id and current revision triple
// the consumer needs. The delete and the read happen as a single
// statement inside the handle's current transaction, so the rows this
// call returns are exactly the rows it removed: a session cannot be
// picked twice even if FillBatch runs concurrently from two producers.
func (s *Store) FillBatch(ctx context.Context, cap int) ([]RevisedSession, error) {
	h, err := s.db.PeekHandle(ctx)
	if err != nil {
		return nil, err
	}
	defer s.db.PokeHandle(ctx, h)

	limit := int32(cap)
	h.PushInteger(&limit)
	result, err := h.Execute(ctx, `
		WITH picked AS (
			DELETE FROM journal.revised_sessions
			WHERE session_id IN (
				SELECT session_id FROM journal.revised_sessions
				ORDER BY session_id
				LIMIT $1
				FOR UPDATE SKIP LOCKED
			)
			RETURNING session_id
		)
		SELECT s.id, s.satellite_task_id, s.on_radar_revision, s.in_sight_revision, s.on_map_revision
		FROM sessions s
		JOIN picked p ON p.session_id = s.id`)
	if err != nil {
		return nil, err
	}

	batch := make([]RevisedSession, 0, len(result.Rows))
	for _, row := range result.Rows {
		batch = append(batch, RevisedSession{
			SessionID:       row[0].(int64),
			SatelliteTaskID: uint32(row[1].(int32)),
			OnRadarRevision: uint32(row[2].(int32)),
			InSightRevision: uint32(row[3].(int32)),
			OnMapRevision:   uint32(row[4].(int32)),
		})
	}
	return batch, nil
}
