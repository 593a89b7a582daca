package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/geo-guardian/internal/domain/track"
	"github.com/oshokin/geo-guardian/internal/logger"
)

// Status is the lifecycle state of one alert session.
// Confirmed, Dismissed and TimedOut are terminal and never revisited.
type Status string

const (
	// StatusPending means the confirmation prompt was dispatched and no
	// reply has resolved it yet.
	StatusPending Status = "pending"
	// StatusConfirmed means the responder confirmed the alert.
	StatusConfirmed Status = "confirmed"
	// StatusDismissed means the responder dismissed the alert, or a newer
	// anomaly superseded it.
	StatusDismissed Status = "dismissed"
	// StatusTimedOut means no reply arrived within the configured window.
	StatusTimedOut Status = "timed_out"
)

// Notifier is the outbound messaging channel the workflow drives.
type Notifier interface {
	SendText(ctx context.Context, to, body string) error
	PlaceCall(ctx context.Context, to, script string) error
}

// Session tracks one anomaly notification from dispatch to resolution.
type Session struct {
	// ID uniquely identifies the session.
	ID string
	// Responder is the identity the prompt was sent to and whose replies
	// resolve the session.
	Responder string
	// Subject is the derived event that triggered the alert.
	Subject *track.DerivedEvent
	// Status is the current lifecycle state.
	Status Status
	// CreatedAt is when the session entered Pending.
	CreatedAt time.Time
}

// Clone returns a copy of the session to avoid leaking internal references.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	cloned := *s
	cloned.Subject = s.Subject.Clone()

	return &cloned
}

// ErrNoPendingSession is returned when a reply arrives with nothing to resolve.
var ErrNoPendingSession = errors.New("no pending session for responder")

// callScript is the fixed text spoken on the escalation call.
const callScript = "Alerta de seguridad confirmada. Se detectó actividad inusual del dispositivo monitoreado. Por favor verifique de inmediato."

// Workflow runs the alert confirmation state machine. Transitions are
// serialized per responder identity; replies are correlated to the most
// recent Pending session of the sender, no token travels in the message.
type Workflow struct {
	// notifier sends texts and places calls.
	notifier Notifier
	// voiceDestination receives the escalation call.
	voiceDestination string
	// timeout moves unanswered sessions to TimedOut; zero disables it.
	timeout time.Duration

	// mu protects pending and timers.
	mu sync.Mutex
	// pending holds at most one unresolved session per responder.
	pending map[string]*Session
	// timers tracks the timeout timer per session id.
	timers map[string]*time.Timer
}

// NewWorkflow creates the state machine. The voice destination receives the
// escalation call on confirmation or timeout.
func NewWorkflow(notifier Notifier, voiceDestination string, timeout time.Duration) *Workflow {
	return &Workflow{
		notifier:         notifier,
		voiceDestination: voiceDestination,
		timeout:          timeout,
		pending:          make(map[string]*Session),
		timers:           make(map[string]*time.Timer),
	}
}

// Trigger opens a Pending session for the responder and dispatches the
// confirmation prompt. A still-Pending older session for the same responder
// is dismissed as superseded first, keeping at most one Pending session per
// identity. A notifier failure leaves the session Pending and is returned
// for the caller to log; the timeout escalation still applies.
func (w *Workflow) Trigger(ctx context.Context, responder string, subject *track.DerivedEvent) (*Session, error) {
	w.mu.Lock()

	if stale, ok := w.pending[responder]; ok {
		stale.Status = StatusDismissed
		w.stopTimer(stale.ID)
		logger.WarnKV(ctx, "Pending alert superseded by newer anomaly",
			"session_id", stale.ID, "responder", responder)
	}

	session := &Session{
		ID:        uuid.NewString(),
		Responder: responder,
		Subject:   subject.Clone(),
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	w.pending[responder] = session

	if w.timeout > 0 {
		w.timers[session.ID] = time.AfterFunc(w.timeout, func() {
			w.expire(responder, session.ID)
		})
	}

	// Snapshot before releasing the lock: a concurrent reply or expiry may
	// resolve the live session while SendText blocks.
	snapshot := session.Clone()
	w.mu.Unlock()

	logger.InfoKV(ctx, "Alert session opened", "session_id", session.ID, "responder", responder)

	if err := w.notifier.SendText(ctx, responder, promptMessage(subject)); err != nil {
		return snapshot, fmt.Errorf("send confirmation prompt: %w", err)
	}

	return snapshot, nil
}

// HandleReply resolves the sender's Pending session according to the reply
// text. Affirmative replies confirm and escalate to a voice call, "no"
// dismisses, anything else keeps the session Pending and asks again.
func (w *Workflow) HandleReply(ctx context.Context, from, body string) (*Session, error) {
	w.mu.Lock()

	session, ok := w.pending[from]
	if !ok {
		w.mu.Unlock()

		return nil, ErrNoPendingSession
	}

	switch normalizeReply(body) {
	case replyAffirmative:
		session.Status = StatusConfirmed
		delete(w.pending, from)
		w.stopTimer(session.ID)
		w.mu.Unlock()

		return w.confirm(ctx, session)
	case replyNegative:
		session.Status = StatusDismissed
		delete(w.pending, from)
		w.stopTimer(session.ID)
		w.mu.Unlock()

		logger.InfoKV(ctx, "Alert dismissed by responder", "session_id", session.ID)

		if err := w.notifier.SendText(ctx, from, "Alerta descartada. Gracias por confirmar."); err != nil {
			return session.Clone(), fmt.Errorf("send dismissal acknowledgement: %w", err)
		}

		return session.Clone(), nil
	default:
		// Unrecognized reply: no transition, ask again.
		unresolved := session.Clone()
		w.mu.Unlock()

		if err := w.notifier.SendText(ctx, from, "No entendí la respuesta. Responda SI para confirmar la alerta o NO para descartarla."); err != nil {
			return unresolved, fmt.Errorf("send clarification prompt: %w", err)
		}

		return unresolved, nil
	}
}

// PendingFor returns the responder's unresolved session, if any.
func (w *Workflow) PendingFor(responder string) (*Session, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	session, ok := w.pending[responder]

	return session.Clone(), ok
}

// confirm performs the Confirmed side effects: the escalation call and the
// acknowledgement text.
func (w *Workflow) confirm(ctx context.Context, session *Session) (*Session, error) {
	logger.WarnKV(ctx, "Alert confirmed, escalating to voice call",
		"session_id", session.ID, "destination", w.voiceDestination)

	if err := w.notifier.PlaceCall(ctx, w.voiceDestination, callScript); err != nil {
		return session.Clone(), fmt.Errorf("place escalation call: %w", err)
	}

	if err := w.notifier.SendText(ctx, session.Responder, "Alerta confirmada. Se está realizando la llamada de verificación."); err != nil {
		return session.Clone(), fmt.Errorf("send confirmation acknowledgement: %w", err)
	}

	return session.Clone(), nil
}

// expire moves a still-Pending session to TimedOut and escalates with a
// call, since silence is the worst signal in a safety context.
func (w *Workflow) expire(responder, sessionID string) {
	w.mu.Lock()

	session, ok := w.pending[responder]
	if !ok || session.ID != sessionID {
		w.mu.Unlock()

		return
	}

	session.Status = StatusTimedOut
	delete(w.pending, responder)
	delete(w.timers, sessionID)
	w.mu.Unlock()

	ctx := logger.WithName(context.Background(), "alert-timeout")
	logger.WarnKV(ctx, "Alert timed out without reply, escalating", "session_id", sessionID)

	if err := w.notifier.PlaceCall(ctx, w.voiceDestination, callScript); err != nil {
		logger.Errorf(ctx, "Failed to place timeout escalation call: %v", err)
	}
}

// stopTimer cancels a session's timeout timer. Caller holds w.mu.
func (w *Workflow) stopTimer(sessionID string) {
	if timer, ok := w.timers[sessionID]; ok {
		timer.Stop()
		delete(w.timers, sessionID)
	}
}

// replyToken is a normalized inbound reply.
type replyToken int

const (
	replyUnrecognized replyToken = iota
	replyAffirmative
	replyNegative
)

// normalizeReply trims, case-folds, and maps the reply to a token.
// Both the accented and plain spellings of "sí" are affirmative.
func normalizeReply(body string) replyToken {
	switch strings.ToLower(strings.TrimSpace(body)) {
	case "si", "sí":
		return replyAffirmative
	case "no":
		return replyNegative
	default:
		return replyUnrecognized
	}
}

// promptMessage renders the confirmation prompt with time, map link and
// yes/no instructions.
func promptMessage(subject *track.DerivedEvent) string {
	where := fmt.Sprintf("https://maps.google.com/?q=%.6f,%.6f", subject.Lat, subject.Lon)

	detail := "actividad inusual"
	if subject.Zone != "" {
		detail = fmt.Sprintf("actividad inusual (%s: %s)", subject.Event, subject.Zone)
	}

	return fmt.Sprintf(
		"Se detectó %s a las %s. Ubicación: %s. ¿Confirma la alerta? Responda SI o NO.",
		detail,
		subject.Timestamp.Format("15:04"),
		where,
	)
}
