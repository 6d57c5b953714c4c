package satellite

import (
	"context"
	"crypto/rand"

	"github.com/google/uuid"

	"github.com/geoplaque/satellite/internal/dbpool"
	"github.com/geoplaque/satellite/internal/status"
	"github.com/geoplaque/satellite/internal/wire"
)

// Store resolves the authentication-path database operations named in
// §4.C.1: device registration, device/profile lookup by token, and
// session granting. Plaque CRUD itself is out of this engine's scope;
// Store only covers what the task state machine needs to move through
// Accepted -> Authenticated.
type Store struct {
	db        *dbpool.Chain
	jwtSecret []byte
}

// NewStore wraps chain as a Store. jwtSecret signs the profile JWTs
// CreateProfile hands back as a secondary credential.
func NewStore(chain *dbpool.Chain, jwtSecret []byte) *Store {
	return &Store{db: chain, jwtSecret: jwtSecret}
}

// RegisterDevice mints a fresh 16-byte device token, inserts a new
// device row keyed by it, and returns it to the client (the spec's
// anticipant device token is a fresh credential, not an echo of whatever
// the client presented).
func (s *Store) RegisterDevice(ctx context.Context, demande wire.DialogueDemande) (wire.Token, error) {
	var token wire.Token
	if _, err := rand.Read(token[:]); err != nil {
		return wire.Token{}, status.Wrap("satellite.store.register_device", status.ErrDeviceAuthFailed, err)
	}

	h, err := s.db.PeekHandle(ctx)
	if err != nil {
		return wire.Token{}, err
	}
	defer s.db.PokeHandle(ctx, h)

	deviceID := uuid.New()
	idValue := deviceID
	tokenValue := token[:]
	h.PushUUID(&idValue)
	h.PushBytea(tokenValue)
	h.PushInteger(int32Ptr(int32(demande.DeviceType)))

	result, err := h.Execute(ctx, `INSERT INTO devices (id, device_token, device_type) VALUES ($1, $2, $3)`)
	if err != nil {
		return wire.Token{}, err
	}
	if !dbpool.CommandOK("satellite.store.register_device", result) {
		return wire.Token{}, status.New("satellite.store.register_device", status.ErrDeviceAuthFailed)
	}
	return token, nil
}

// ResolveDevice looks up a device by its token.
func (s *Store) ResolveDevice(ctx context.Context, deviceToken wire.Token) (string, bool, error) {
	h, err := s.db.PeekHandle(ctx)
	if err != nil {
		return "", false, err
	}
	defer s.db.PokeHandle(ctx, h)

	h.PushBytea(deviceToken[:])
	result, err := h.Execute(ctx, `SELECT id FROM devices WHERE device_token = $1`)
	if err != nil {
		return "", false, err
	}
	if !dbpool.TuplesOK("satellite.store.resolve_device", result) {
		return "", false, nil
	}
	return result.Rows[0][0].(string), true, nil
}

// ResolveProfile looks up a profile by its token.
func (s *Store) ResolveProfile(ctx context.Context, profileToken wire.Token) (string, bool, error) {
	h, err := s.db.PeekHandle(ctx)
	if err != nil {
		return "", false, err
	}
	defer s.db.PokeHandle(ctx, h)

	h.PushBytea(profileToken[:])
	result, err := h.Execute(ctx, `SELECT id FROM profiles WHERE profile_token = $1`)
	if err != nil {
		return "", false, err
	}
	if !dbpool.TuplesOK("satellite.store.resolve_profile", result) {
		return "", false, nil
	}
	return result.Rows[0][0].(string), true, nil
}

// GrantOrMintSession grants the session matching knownSessionToken if
// one exists for deviceID, else mints a new session row bound to
// satelliteTaskID (so the Broadcaster and the consumer thread can find
// it later). Returns the verdict code the caller sends back.
func (s *Store) GrantOrMintSession(ctx context.Context, deviceID, profileID string, knownSessionToken wire.Token, satelliteTaskID uint64) (uint32, wire.Token, uint64, error) {
	h, err := s.db.PeekHandle(ctx)
	if err != nil {
		return 0, wire.Token{}, 0, err
	}
	defer s.db.PokeHandle(ctx, h)

	if !knownSessionToken.IsZero() {
		h.PushBytea(knownSessionToken[:])
		deviceIDValue := deviceID
		h.PushVarchar(&deviceIDValue)
		grantTaskID := int64(satelliteTaskID)
		h.PushBigint(&grantTaskID)
		result, err := h.Execute(ctx, `UPDATE sessions SET satellite_task_id = $3 WHERE session_token = $1 AND device_id = $2 RETURNING id`)
		if err == nil && dbpool.TuplesOK("satellite.store.grant_session", result) {
			sessionID := result.Rows[0][0].(int64)
			return wire.VerdictWelcome, knownSessionToken, uint64(sessionID), nil
		}
	}

	var sessionToken wire.Token
	if _, err := rand.Read(sessionToken[:]); err != nil {
		return 0, wire.Token{}, 0, status.Wrap("satellite.store.grant_session", status.ErrCannotGetSession, err)
	}

	deviceIDValue := deviceID
	h.PushVarchar(&deviceIDValue)
	if profileID != "" {
		profileIDValue := profileID
		h.PushVarchar(&profileIDValue)
	} else {
		h.PushVarchar(nil)
	}
	h.PushBytea(sessionToken[:])
	taskIDValue := int64(satelliteTaskID)
	h.PushBigint(&taskIDValue)

	result, err := h.Execute(ctx, `INSERT INTO sessions (device_id, profile_id, session_token, satellite_task_id, on_radar_revision, in_sight_revision, on_map_revision)
		VALUES ($1, $2, $3, $4, 0, 0, 0) RETURNING id`)
	if err != nil {
		return 0, wire.Token{}, 0, err
	}
	if !dbpool.TuplesOK("satellite.store.grant_session", result) {
		return 0, wire.Token{}, 0, status.New("satellite.store.grant_session", status.ErrCannotGetSession)
	}
	sessionID := result.Rows[0][0].(int64)
	return wire.VerdictNewSession, sessionToken, uint64(sessionID), nil
}

// CurrentRevisions reads a session's server-known revision triple, used
// by the broadcast handler to compare against the client's last-known
// values.
func (s *Store) CurrentRevisions(ctx context.Context, sessionID uint64) (onRadar, inSight, onMap uint32, err error) {
	h, err := s.db.PeekHandle(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	defer s.db.PokeHandle(ctx, h)

	idValue := int64(sessionID)
	h.PushBigint(&idValue)
	result, err := h.Execute(ctx, `SELECT on_radar_revision, in_sight_revision, on_map_revision FROM sessions WHERE id = $1`)
	if err != nil {
		return 0, 0, 0, err
	}
	if !dbpool.TuplesOK("satellite.store.current_revisions", result) {
		return 0, 0, 0, status.New("satellite.store.current_revisions", status.ErrCannotGetSession)
	}
	row := result.Rows[0]
	return uint32(row[0].(int32)), uint32(row[1].(int32)), uint32(row[2].(int32)), nil
}

// ProfileNameAvailable reports whether name is free to claim.
func (s *Store) ProfileNameAvailable(ctx context.Context, name string) (bool, error) {
	h, err := s.db.PeekHandle(ctx)
	if err != nil {
		return false, err
	}
	defer s.db.PokeHandle(ctx, h)

	nameValue := name
	h.PushVarchar(&nameValue)
	result, err := h.Execute(ctx, `SELECT id FROM profiles WHERE profile_name = $1`)
	if err != nil {
		return false, err
	}
	return !dbpool.TuplesOK("satellite.store.profile_name_available", result), nil
}

// CreateProfile inserts a new profile bound to deviceID and mints the
// profile token the client uses to authenticate as that profile going
// forward.
// CreateProfile inserts a new profile bound to deviceID, returning the
// 16-byte wire token used for dialogue-level resolution and a signed JWT
// (subject: the new profile id) handed to the client as a secondary,
// longer-lived credential for companion tooling outside the dialogue
// protocol. password is optional; when non-empty it is bcrypt-hashed and
// stored alongside the profile.
func (s *Store) CreateProfile(ctx context.Context, deviceID, name, password string) (wire.Token, string, error) {
	var token wire.Token
	if _, err := rand.Read(token[:]); err != nil {
		return wire.Token{}, "", status.Wrap("satellite.store.create_profile", status.ErrProfileAuthFailed, err)
	}

	var passwordHash *string
	if password != "" {
		hash, err := HashPassword(password)
		if err != nil {
			return wire.Token{}, "", err
		}
		passwordHash = &hash
	}

	h, err := s.db.PeekHandle(ctx)
	if err != nil {
		return wire.Token{}, "", err
	}
	defer s.db.PokeHandle(ctx, h)

	profileID := uuid.New()
	deviceIDValue := deviceID
	nameValue := name
	h.PushUUID(&profileID)
	h.PushVarchar(&deviceIDValue)
	h.PushVarchar(&nameValue)
	h.PushBytea(token[:])
	h.PushVarchar(passwordHash)

	result, err := h.Execute(ctx, `INSERT INTO profiles (id, device_id, profile_name, profile_token, password_hash) VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return wire.Token{}, "", err
	}
	if !dbpool.CommandOK("satellite.store.create_profile", result) {
		return wire.Token{}, "", status.New("satellite.store.create_profile", status.ErrProfileAuthFailed)
	}

	credential, err := IssueProfileJWT(s.jwtSecret, profileID.String())
	if err != nil {
		return wire.Token{}, "", err
	}
	return token, credential, nil
}

// SetNotificationToken records the APNs device token the Messenger uses
// to address this device.
func (s *Store) SetNotificationToken(ctx context.Context, deviceID string, apnsToken []byte) error {
	h, err := s.db.PeekHandle(ctx)
	if err != nil {
		return err
	}
	defer s.db.PokeHandle(ctx, h)

	h.PushBytea(apnsToken)
	deviceIDValue := deviceID
	h.PushVarchar(&deviceIDValue)
	result, err := h.Execute(ctx, `UPDATE devices SET apns_token = $1 WHERE id = $2`)
	if err != nil {
		return err
	}
	if !dbpool.CommandOK("satellite.store.set_notification_token", result) {
		return status.New("satellite.store.set_notification_token", status.ErrUnexpectedResult)
	}
	return nil
}

// SessionSummary is a read-only projection of a journal.sessions row for
// satellitectl's "sessions list" command.
type SessionSummary struct {
	ID              int64
	DeviceID        string
	SatelliteTaskID int64
	OnRadarRevision int32
	InSightRevision int32
	OnMapRevision   int32
}

// ListSessions returns the most recently created sessions, newest
// first, capped at limit. Read-only; used only by the admin CLI, never
// by the task engine itself.
func (s *Store) ListSessions(ctx context.Context, limit int32) ([]SessionSummary, error) {
	h, err := s.db.PeekHandle(ctx)
	if err != nil {
		return nil, err
	}
	defer s.db.PokeHandle(ctx, h)

	h.PushInteger(&limit)
	result, err := h.Execute(ctx, `SELECT id, device_id, satellite_task_id, on_radar_revision, in_sight_revision, on_map_revision
		FROM sessions ORDER BY id DESC LIMIT $1`)
	if err != nil {
		return nil, err
	}
	if !dbpool.CorrectNumberOfColumns("satellite.store.list_sessions", result, 6) {
		return nil, status.New("satellite.store.list_sessions", status.ErrUnexpectedResult)
	}

	summaries := make([]SessionSummary, 0, len(result.Rows))
	for _, row := range result.Rows {
		summaries = append(summaries, SessionSummary{
			ID:              row[0].(int64),
			DeviceID:        row[1].(string),
			SatelliteTaskID: row[2].(int64),
			OnRadarRevision: row[3].(int32),
			InSightRevision: row[4].(int32),
			OnMapRevision:   row[5].(int32),
		})
	}
	return summaries, nil
}

func int32Ptr(v int32) *int32 { return &v }
