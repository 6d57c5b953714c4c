// Package scheduler runs the two stored-procedure polling jobs that keep
// journal.revised_sessions fed: one for plaque content revisions, one for
// device displacement. main.c ran both from a single background worker
// loop on a shared adaptive timeout; this implementation keeps them as
// two independently configured Jobs instead (§ SPEC_FULL supplemented
// features), each free to run on its own interval.
package scheduler

import (
	"context"

	"github.com/geoplaque/satellite/internal/dbpool"
	"github.com/geoplaque/satellite/internal/status"
)

// Store wraps the two stored procedures kernel.c calls via SPI.
type Store struct {
	db *dbpool.Chain
}

// NewStore wraps chain as a Store.
func NewStore(chain *dbpool.Chain) *Store {
	return &Store{db: chain}
}

// RevisionSessionsForModifiedPlaques runs
// journal.revision_sessions_for_modified_plaques() and reports how many
// sessions it marked revised.
func (s *Store) RevisionSessionsForModifiedPlaques(ctx context.Context) (int, error) {
	return s.callCountingProcedure(ctx, "scheduler.store.modified_plaques",
		`SELECT journal.revision_sessions_for_modified_plaques()`)
}

// RevisionSessionsForDeviceDisplacement runs
// journal.revision_sessions_for_device_displacement() and reports how
// many sessions it marked revised.
func (s *Store) RevisionSessionsForDeviceDisplacement(ctx context.Context) (int, error) {
	return s.callCountingProcedure(ctx, "scheduler.store.device_displacement",
		`SELECT journal.revision_sessions_for_device_displacement()`)
}

func (s *Store) callCountingProcedure(ctx context.Context, caller, sql string) (int, error) {
	h, err := s.db.PeekHandle(ctx)
	if err != nil {
		return 0, err
	}
	defer s.db.PokeHandle(ctx, h)

	result, err := h.Execute(ctx, sql)
	if err != nil {
		return 0, err
	}
	if !dbpool.TuplesOK(caller, result) {
		return 0, status.New(caller, status.ErrUnexpectedResult)
	}
	return int(result.Rows[0][0].(int64)), nil
}
