package satellite

import (
	"context"

	"github.com/geoplaque/satellite/internal/logger"
	"github.com/geoplaque/satellite/internal/status"
	"github.com/geoplaque/satellite/pkg/mmps"
)

// Result codes carried as the first uint32 of a handler's response
// payload. The plaque domain itself (post/change/list/displacement) is
// trivially expressible CRUD the task engine only needs to acknowledge,
// not implement with real business rules; these handlers are
// illustrative passthroughs rather than a full plaques schema.
const (
	resultOK       uint32 = 0
	resultRejected uint32 = 1
)

// releaseInput pokes p's input chain if it has one. Every handler below
// calls this exactly once, even when it also builds a fresh response
// chain, satisfying handlerFunc's release contract.
func releaseInput(p *Paquet) {
	if p.input != nil {
		p.pool.PokeBuffer(p.input)
	}
}

// ackBuffer allocates a single buffer carrying one uint32 result code.
func ackBuffer(pool *mmps.Pool, ownerID uint32, code uint32) (*mmps.Buffer, error) {
	buf, err := pool.PeekBuffer(ownerID)
	if err != nil {
		return nil, status.Wrap("satellite.handler.ack", status.ErrCannotAllocateOutputBuffer, err)
	}
	if _, err := pool.PutUint32(buf, code); err != nil {
		pool.PokeBuffer(buf)
		return nil, status.Wrap("satellite.handler.ack", status.ErrCannotAllocateOutputBuffer, err)
	}
	return buf, nil
}

// readString consumes the remainder of p's input chain as a UTF-8
// string: a four-byte length prefix followed by that many bytes, the
// same framing used for every variable-length field in the protocol.
func readString(pool *mmps.Pool, buf *mmps.Buffer) (string, *mmps.Buffer, error) {
	cursor, length, err := pool.GetUint32(buf)
	if err != nil {
		return "", nil, status.Wrap("satellite.handler.read_string", status.ErrIncompleteData, err)
	}
	data := make([]byte, length)
	cursor, n, err := pool.GetData(cursor, data)
	if err != nil || n != int(length) {
		return "", nil, status.Wrap("satellite.handler.read_string", status.ErrIncompleteData, err)
	}
	return string(data), cursor, nil
}

func handleValidateProfileName(ctx context.Context, p *Paquet) (*mmps.Buffer, error) {
	defer releaseInput(p)
	if p.input == nil {
		return nil, status.New("satellite.handler.validate_profile_name", status.ErrIncompleteData)
	}
	name, _, err := readString(p.pool, p.input)
	if err != nil {
		return nil, err
	}

	available, err := p.task.store.ProfileNameAvailable(ctx, name)
	if err != nil {
		return nil, err
	}
	code := resultOK
	if !available {
		code = resultRejected
	}
	return ackBuffer(p.pool, p.id, code)
}

func handleCreateProfile(ctx context.Context, p *Paquet) (*mmps.Buffer, error) {
	defer releaseInput(p)
	if p.input == nil {
		return nil, status.New("satellite.handler.create_profile", status.ErrIncompleteData)
	}
	name, cursor, err := readString(p.pool, p.input)
	if err != nil {
		return nil, err
	}
	password, _, err := readString(p.pool, cursor)
	if err != nil {
		return nil, err
	}

	token, credential, err := p.task.store.CreateProfile(ctx, p.task.deviceID, name, password)
	if err != nil {
		logger.WarnCtx(ctx, "create profile failed", "error", err)
		return ackBuffer(p.pool, p.id, resultRejected)
	}

	buf, err := p.pool.PeekBuffer(p.id)
	if err != nil {
		return nil, status.Wrap("satellite.handler.create_profile", status.ErrCannotAllocateOutputBuffer, err)
	}
	out, err := p.pool.PutUint32(buf, resultOK)
	if err == nil {
		out, err = p.pool.PutData(out, token[:])
	}
	if err == nil {
		out, err = p.pool.PutUint32(out, uint32(len(credential)))
	}
	if err == nil {
		_, err = p.pool.PutData(out, []byte(credential))
	}
	if err != nil {
		p.pool.PokeBuffer(buf)
		return nil, status.Wrap("satellite.handler.create_profile", status.ErrCannotAllocateOutputBuffer, err)
	}
	return buf, nil
}

// handlePlaqueAck acknowledges a plaque mutation command (post, change
// location/orientation/size/colors/font/inscription) without modeling
// the plaques schema itself; the engine's job here is concurrency and
// authentication, not this trivially expressible CRUD.
func handlePlaqueAck(ctx context.Context, p *Paquet) (*mmps.Buffer, error) {
	defer releaseInput(p)
	return ackBuffer(p.pool, p.id, resultOK)
}

// handleEmptyPlaqueListing answers a download/list command with a
// zero-length result set; real pagination and filtering belong to the
// plaques domain this engine does not implement.
func handleEmptyPlaqueListing(ctx context.Context, p *Paquet) (*mmps.Buffer, error) {
	defer releaseInput(p)
	buf, err := p.pool.PeekBuffer(p.id)
	if err != nil {
		return nil, status.Wrap("satellite.handler.empty_listing", status.ErrCannotAllocateOutputBuffer, err)
	}
	if _, err := p.pool.PutUint32(buf, 0); err != nil {
		p.pool.PokeBuffer(buf)
		return nil, status.Wrap("satellite.handler.empty_listing", status.ErrCannotAllocateOutputBuffer, err)
	}
	return buf, nil
}

// handleDisplacement acknowledges a client's reported radar/sight/map
// displacement. Recomputing what entered or left view is plaques-domain
// logic; this handler only confirms receipt.
func handleDisplacement(ctx context.Context, p *Paquet) (*mmps.Buffer, error) {
	defer releaseInput(p)
	return ackBuffer(p.pool, p.id, resultOK)
}

// handleNotificationsToken stores the client's APNs device token.
func handleNotificationsToken(ctx context.Context, p *Paquet) (*mmps.Buffer, error) {
	defer releaseInput(p)
	if p.input == nil {
		return nil, status.New("satellite.handler.notifications_token", status.ErrIncompleteData)
	}
	token := make([]byte, mmps.TotalDataSize(p.input))
	if _, _, err := p.pool.GetData(p.input, token); err != nil {
		return nil, status.Wrap("satellite.handler.notifications_token", status.ErrIncompleteData, err)
	}

	if err := p.task.store.SetNotificationToken(ctx, p.task.deviceID, token); err != nil {
		return nil, err
	}
	return ackBuffer(p.pool, p.id, resultOK)
}

// handleReportMessage acknowledges a client-reported moderation flag.
// Routing it to a review queue is out of this engine's scope.
func handleReportMessage(ctx context.Context, p *Paquet) (*mmps.Buffer, error) {
	defer releaseInput(p)
	return ackBuffer(p.pool, p.id, resultOK)
}

// handleBroadcastSubscribe implements §4.C.2's broadcast paquet: the
// client sends its last-known on-radar/in-sight/on-map revisions; if the
// server already has novelty the response is immediate, otherwise the
// paquet suspends on the task's rendezvous until the Broadcaster
// consumer thread reports new revisions or the task terminates.
func handleBroadcastSubscribe(ctx context.Context, p *Paquet) (*mmps.Buffer, error) {
	defer releaseInput(p)
	if p.input == nil {
		return nil, status.New("satellite.handler.broadcast_subscribe", status.ErrIncompleteData)
	}

	cursor := p.input
	var lastKnown [3]uint32
	var err error
	for i := 0; i < 3; i++ {
		cursor, lastKnown[i], err = p.pool.GetUint32(cursor)
		if err != nil {
			return nil, status.Wrap("satellite.handler.broadcast_subscribe", status.ErrIncompleteData, err)
		}
	}

	onRadar, inSight, onMap, err := p.task.store.CurrentRevisions(ctx, p.task.sessionID)
	if err != nil {
		return nil, err
	}
	p.task.broadcast.seed(onRadar, inSight, onMap)

	missing, immediate, err := p.task.broadcast.beginWait(lastKnown)
	if err != nil {
		return nil, err
	}
	if !immediate {
		missing, err = p.task.broadcast.wait(ctx)
		if err != nil {
			return nil, err
		}
	}

	buf, err := p.pool.PeekBuffer(p.id)
	if err != nil {
		return nil, status.Wrap("satellite.handler.broadcast_subscribe", status.ErrCannotAllocateOutputBuffer, err)
	}
	out := buf
	for _, v := range missing {
		out, err = p.pool.PutUint32(out, v)
		if err != nil {
			p.pool.PokeBuffer(buf)
			return nil, status.Wrap("satellite.handler.broadcast_subscribe", status.ErrCannotAllocateOutputBuffer, err)
		}
	}
	return buf, nil
}
