package satellite

import (
	"context"
	"encoding/hex"

	"github.com/geoplaque/satellite/internal/logger"
	"github.com/geoplaque/satellite/internal/status"
	"github.com/geoplaque/satellite/internal/wire"
)

// receiveDialogueDemande reads the fixed-length DialogueDemande that must
// be the first thing a client sends. A signature mismatch or read
// failure terminates the dialogue before any state is established.
func (t *Task) receiveDialogueDemande(ctx context.Context) (wire.DialogueDemande, error) {
	buf := make([]byte, wire.DemandeSize)
	if err := readFull(t.conn, buf, pilotReadTimeout); err != nil {
		return wire.DialogueDemande{}, err
	}
	demande, err := wire.UnmarshalDemande(buf)
	if err != nil {
		return wire.DialogueDemande{}, status.Wrap("satellite.receive_dialogue_demande", status.ErrMissingDialogueDemande, err)
	}
	return demande, nil
}

// runAnticipant registers a new device from the anticipant demande and
// returns its freshly minted device token. The connection terminates
// after the response regardless of outcome.
func (t *Task) runAnticipant(ctx context.Context, demande wire.DialogueDemande) {
	token, err := t.store.RegisterDevice(ctx, demande)
	if err != nil {
		logger.WarnCtx(ctx, "device registration failed", "error", err)
		return
	}

	verdict := wire.DialogueVerdict{
		Signature:    wire.DialogueSignature,
		VerdictCode:  wire.VerdictWelcome,
		SessionToken: token,
	}
	if err := writeFull(t.conn, verdict.Marshal(), writeTimeout); err != nil {
		logger.WarnCtx(ctx, "failed to send anticipant verdict", "error", err)
	}
}

// runAuthentication resolves the device and optional profile by the
// tokens presented, grants an existing session or mints a new one, and
// sends the verdict. Returns the context enriched with session identity
// and whether the client was authenticated.
func (t *Task) runAuthentication(ctx context.Context, demande wire.DialogueDemande) (context.Context, bool) {
	deviceID, ok, err := t.store.ResolveDevice(ctx, demande.DeviceToken)
	if err != nil || !ok {
		t.sendVerdict(ctx, wire.VerdictInvalidDevice, wire.Token{})
		return ctx, false
	}

	var profileID string
	if !demande.ProfileToken.IsZero() {
		profileID, ok, err = t.store.ResolveProfile(ctx, demande.ProfileToken)
		if err != nil || !ok {
			t.sendVerdict(ctx, wire.VerdictInvalidProfile, wire.Token{})
			return ctx, false
		}
	}

	verdictCode, sessionToken, sessionID, err := t.store.GrantOrMintSession(ctx, deviceID, profileID, demande.KnownSessionToken, t.id)
	if err != nil {
		logger.WarnCtx(ctx, "session grant failed", "error", err)
		t.sendVerdict(ctx, wire.VerdictInvalidDevice, wire.Token{})
		return ctx, false
	}

	t.deviceID = deviceID
	t.profileID = profileID
	t.sessionID = sessionID

	if lc := logger.FromContext(ctx); lc != nil {
		ctx = logger.WithContext(ctx, lc.WithSession(deviceID, hex.EncodeToString(sessionToken[:])))
	}

	t.sendVerdict(ctx, verdictCode, sessionToken)
	return ctx, true
}

func (t *Task) sendVerdict(ctx context.Context, code uint32, token wire.Token) {
	verdict := wire.DialogueVerdict{
		Signature:    wire.DialogueSignature,
		VerdictCode:  code,
		SessionToken: token,
	}
	if err := writeFull(t.conn, verdict.Marshal(), writeTimeout); err != nil {
		logger.WarnCtx(ctx, "failed to send verdict", "error", err)
	}
}
