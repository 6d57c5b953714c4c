package messenger

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"time"

	"github.com/geoplaque/satellite/internal/logger"
	"github.com/geoplaque/satellite/internal/status"
	"github.com/geoplaque/satellite/internal/wire"
)

// APNs sender timing: the ready-to-go wait's timeout before the
// connection is dropped, the read timeout for a command-8 response, and
// the three backoff tiers per the busy/transmit-error/other
// classification in §4.E.
const (
	readyWaitTimeout = 30 * time.Second
	responseReadWait = 200 * time.Millisecond
	backoffBusy      = 50 * time.Millisecond
	backoffTransmit  = 1 * time.Second
	backoffOther     = 5 * time.Second
	connectRetryWait = 2 * time.Second
)

// BatchMode selects which of the two wire formats the sender uses for a
// single pass over in-the-air: one write per notification (legacy) or
// one framed write carrying the whole batch.
type BatchMode int

const (
	BatchModeLegacy BatchMode = iota
	BatchModeFrame
)

// SenderConfig names the APNs gateway and the TLS material to present.
type SenderConfig struct {
	Host      string
	Port      string
	TLSConfig *tls.Config
	Mode      BatchMode
}

// Sender is the APNs thread: a persistent TLS session, fed by the
// pipeline's in-the-air queue and reporting into the sent queue.
type Sender struct {
	cfg SenderConfig

	inTheAir *queue
	sent     *queue
	ready    chan struct{}

	// dial is overridden in tests to avoid a real TLS handshake.
	dial func() (net.Conn, error)

	conn net.Conn

	metrics Metrics
}

// NewSender builds a Sender from cfg. attach must be called (via
// NewPipeline) before Run.
func NewSender(cfg SenderConfig) *Sender {
	s := &Sender{cfg: cfg, ready: make(chan struct{}, 1)}
	s.dial = s.defaultDial
	return s
}

func (s *Sender) defaultDial() (net.Conn, error) {
	return tls.Dial("tcp", net.JoinHostPort(s.cfg.Host, s.cfg.Port), s.cfg.TLSConfig)
}

func (s *Sender) attach(inTheAir, sent *queue) {
	s.inTheAir = inTheAir
	s.sent = sent
}

// wake signals the sender that in-the-air has new work.
func (s *Sender) wake() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Run executes the APNs thread's loop until ctx is cancelled.
func (s *Sender) Run(ctx context.Context) {
	defer s.disconnect()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ready:
			s.deliverReady(ctx)
		case <-time.After(readyWaitTimeout):
			// Timed-wait elapsed with nothing signalled: drop the
			// connection and go back to an untimed wait.
			s.disconnect()
			select {
			case <-ctx.Done():
				return
			case <-s.ready:
				s.deliverReady(ctx)
			}
		}
	}
}

// deliverReady connects if needed and drains in-the-air, one batch
// (legacy: one notification, frame: the whole queue) at a time, until
// in-the-air is empty or a failure interrupts it.
func (s *Sender) deliverReady(ctx context.Context) {
	for {
		batch := s.inTheAir.drain()
		if len(batch) == 0 {
			return
		}
		if err := s.ensureConnected(ctx); err != nil {
			logger.WarnCtx(ctx, "messenger sender: connect failed", "error", err)
			// in-the-air already drained into our local batch; put it
			// back so the next ready signal retries it.
			s.inTheAir.pushAll(batch)
			return
		}
		if err := s.deliverBatch(ctx, batch); err != nil {
			s.classifyAndBackoff(ctx, err)
			return
		}
	}
}

func (s *Sender) ensureConnected(ctx context.Context) error {
	if s.conn != nil {
		return nil
	}
	conn, err := s.dial()
	if err != nil {
		time.Sleep(connectRetryWait)
		if s.metrics != nil {
			s.metrics.IncAPNsRetry("connect")
		}
		return status.Wrap("messenger.sender.connect", status.ErrAPNsConnectFailure, err)
	}
	s.conn = conn
	return nil
}

func (s *Sender) disconnect() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

// deliverBatch writes batch to the APNs connection in the sender's
// configured format, moves every successfully-written notification to
// sent, and checks for a command-8 error response.
func (s *Sender) deliverBatch(ctx context.Context, batch []*Notification) error {
	switch s.cfg.Mode {
	case BatchModeFrame:
		return s.deliverFrame(ctx, batch)
	default:
		return s.deliverLegacy(ctx, batch)
	}
}

func (s *Sender) deliverLegacy(ctx context.Context, batch []*Notification) error {
	for _, n := range batch {
		msg := wire.LegacyNotification{DeviceToken: n.DeviceToken, Payload: n.payloadBytes()}
		if err := s.write(msg.Marshal()); err != nil {
			return err
		}
		s.sent.push(n)
	}
	return s.checkResponse(ctx)
}

func (s *Sender) deliverFrame(ctx context.Context, batch []*Notification) error {
	frame := wire.Frame{Notifications: make([]wire.FrameNotification, len(batch))}
	for i, n := range batch {
		frame.Notifications[i] = wire.FrameNotification{
			DeviceToken:    n.DeviceToken,
			Payload:        n.payloadBytes(),
			NotificationID: uint32(n.ID),
		}
	}
	if err := s.write(frame.Marshal()); err != nil {
		return err
	}
	for _, n := range batch {
		s.sent.push(n)
	}
	return s.checkResponse(ctx)
}

func (s *Sender) write(buf []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(connectRetryWait)); err != nil {
		return status.Wrap("messenger.sender.write", status.ErrAPNsTransmitFailure, err)
	}
	if _, err := s.conn.Write(buf); err != nil {
		return status.Wrap("messenger.sender.write", status.ErrAPNsTransmitFailure, err)
	}
	return nil
}

// checkResponse does a short, non-blocking-ish read for a command-8
// error frame. Per §4.E, behaviour on a failed notification is
// connection-reset: the whole session is torn down and reconnected on
// the next signal rather than trying to resume mid-stream.
func (s *Sender) checkResponse(ctx context.Context) error {
	buf := make([]byte, wire.ResponseSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(responseReadWait)); err != nil {
		return status.Wrap("messenger.sender.read_response", status.ErrAPNsTransmitFailure, err)
	}
	n, err := s.conn.Read(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil // no error response within the window: treat as success
		}
		return status.Wrap("messenger.sender.read_response", status.ErrAPNsTransmitFailure, err)
	}
	if n < wire.ResponseSize {
		return nil
	}
	resp, err := wire.UnmarshalResponse(buf)
	if err != nil {
		return nil
	}
	logger.WarnCtx(ctx, "messenger sender: apns rejected notification", "status", resp.Status, "notification_id", resp.NotificationID)
	return status.New("messenger.sender.apns_rejected", status.ErrAPNsTransmitFailure)
}

// classifyAndBackoff maps err onto the busy/transmit-error/other tiers
// and applies the corresponding sleep before the connection is dropped
// (all three tiers disconnect; only the sleep duration differs, matching
// §4.E's stated policy that every class eventually resets the session).
func (s *Sender) classifyAndBackoff(ctx context.Context, err error) {
	s.disconnect()
	code, _ := status.CodeOf(err)
	var outcome string
	switch code {
	case status.ErrAPNsBusy:
		outcome = "busy"
		time.Sleep(backoffBusy)
	case status.ErrAPNsConnectFailure, status.ErrAPNsTransmitFailure:
		outcome = "transmit"
		time.Sleep(backoffTransmit)
	default:
		outcome = "other"
		time.Sleep(backoffOther)
	}
	if s.metrics != nil {
		s.metrics.IncAPNsRetry(outcome)
	}
	logger.WarnCtx(ctx, "messenger sender: batch delivery failed", "error", err)
}

