// Package notify renders and dispatches booking notifications. Dispatch is
// fire-and-forget: a failure to store or push a notification is logged and
// queued for retry, never returned to the caller, so a flaky notification
// path cannot fail a booking.
package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinio/clinio/internal/platform/websocket"
)

// Kind selects the message template for a notification.
type Kind string

const (
	// KindBookingRequested goes to the doctor when a patient books.
	KindBookingRequested Kind = "booking-requested"
	// KindBookingPlaced goes to the patient as a receipt for their booking.
	KindBookingPlaced Kind = "booking-placed"
	// KindBookingConfirmed goes to the patient when the doctor confirms.
	KindBookingConfirmed Kind = "booking-confirmed"
	// KindConfirmationRecorded goes to the doctor after they confirm.
	KindConfirmationRecorded Kind = "confirmation-recorded"
	// KindBookingCancelled goes to both parties on cancellation.
	KindBookingCancelled Kind = "booking-cancelled"
)

// Snapshot carries the appointment state a notification is rendered from.
// It is captured at emit time so later edits to the appointment do not
// change the message.
type Snapshot struct {
	AppointmentID uuid.UUID
	PatientName   string
	DoctorName    string
	Timeslot      time.Time
	Status        string
}

func (s Snapshot) data() map[string]string {
	return map[string]string{
		"patient": s.PatientName,
		"doctor":  s.DoctorName,
		"when":    s.Timeslot.Format("Mon, 02 Jan 2006 at 15:04"),
		"status":  s.Status,
	}
}

// TemplateEngine renders notification messages by {{key}} replacement.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[Kind]string
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates
// pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[Kind]string)}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := map[Kind]string{
		KindBookingRequested:     "New appointment request from {{patient}} on {{when}}.",
		KindBookingPlaced:        "Your appointment request with Dr. {{doctor}} on {{when}} has been placed and is awaiting confirmation.",
		KindBookingConfirmed:     "Your appointment with Dr. {{doctor}} on {{when}} has been confirmed.",
		KindConfirmationRecorded: "You confirmed the appointment with {{patient}} on {{when}}.",
		KindBookingCancelled:     "The appointment between {{patient}} and Dr. {{doctor}} on {{when}} has been cancelled.",
	}
	for k, body := range builtIn {
		e.templates[k] = body
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(kind Kind, body string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[kind] = body
}

// Render looks up a template by kind and performs {{key}} replacement using
// the snapshot's fields. Unknown kinds render to the empty string and false.
func (e *TemplateEngine) Render(kind Kind, snap Snapshot) (string, bool) {
	e.mu.RLock()
	body, ok := e.templates[kind]
	e.mu.RUnlock()
	if !ok {
		return "", false
	}

	for k, v := range snap.data() {
		body = strings.ReplaceAll(body, "{{"+k+"}}", v)
	}
	return body, true
}

// Store persists a rendered notification and returns its id.
type Store interface {
	Save(ctx context.Context, recipientID uuid.UUID, message string) (uuid.UUID, error)
}

// Pusher delivers a rendered notification to a user's live connections.
type Pusher interface {
	Push(ctx context.Context, userID uuid.UUID, event websocket.Event) error
}

// pendingEmit is a notification whose storage failed and is awaiting retry.
type pendingEmit struct {
	recipientID uuid.UUID
	message     string
	attempts    int
}

// Dispatcher renders, stores, and pushes notifications.
type Dispatcher struct {
	templates *TemplateEngine
	store     Store
	pusher    Pusher
	logger    zerolog.Logger
	now       func() time.Time

	mu      sync.Mutex
	pending []pendingEmit
}

const maxRetryAttempts = 5

// NewDispatcher constructs a Dispatcher. The pusher may be nil, in which case
// notifications are stored but not pushed.
func NewDispatcher(store Store, pusher Pusher, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		templates: NewTemplateEngine(),
		store:     store,
		pusher:    pusher,
		logger:    logger,
		now:       time.Now,
	}
}

// Emit renders the template for kind and delivers it to the recipient.
// Errors are logged and retried in the background, never returned.
func (d *Dispatcher) Emit(ctx context.Context, recipientID uuid.UUID, kind Kind, snap Snapshot) {
	message, ok := d.templates.Render(kind, snap)
	if !ok {
		d.logger.Error().
			Str("kind", string(kind)).
			Str("recipient", recipientID.String()).
			Msg("no template registered for notification kind")
		return
	}

	d.deliver(ctx, recipientID, message)
}

func (d *Dispatcher) deliver(ctx context.Context, recipientID uuid.UUID, message string) {
	id, err := d.store.Save(ctx, recipientID, message)
	if err != nil {
		d.logger.Error().
			Err(err).
			Str("recipient", recipientID.String()).
			Msg("store notification failed, queued for retry")
		d.enqueue(recipientID, message)
		return
	}

	if d.pusher == nil {
		return
	}
	event := websocket.Event{
		Type:           "notification",
		NotificationID: id.String(),
		Message:        message,
		Timestamp:      d.now().UTC(),
	}
	if err := d.pusher.Push(ctx, recipientID, event); err != nil {
		// Push is best-effort: the stored notification is still visible on
		// the recipient's next fetch.
		d.logger.Warn().
			Err(err).
			Str("recipient", recipientID.String()).
			Msg("push notification failed")
	}
}

func (d *Dispatcher) enqueue(recipientID uuid.UUID, message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, pendingEmit{recipientID: recipientID, message: message})
}

// PendingCount returns the number of notifications awaiting retry.
func (d *Dispatcher) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// RetryPending re-attempts storage of queued notifications. Entries that
// exceed the attempt limit are dropped with a log line.
func (d *Dispatcher) RetryPending(ctx context.Context) {
	d.mu.Lock()
	queued := d.pending
	d.pending = nil
	d.mu.Unlock()

	for _, p := range queued {
		id, err := d.store.Save(ctx, p.recipientID, p.message)
		if err != nil {
			p.attempts++
			if p.attempts >= maxRetryAttempts {
				d.logger.Error().
					Err(err).
					Str("recipient", p.recipientID.String()).
					Int("attempts", p.attempts).
					Msg("dropping notification after repeated storage failures")
				continue
			}
			d.mu.Lock()
			d.pending = append(d.pending, p)
			d.mu.Unlock()
			continue
		}

		if d.pusher != nil {
			event := websocket.Event{
				Type:           "notification",
				NotificationID: id.String(),
				Message:        p.message,
				Timestamp:      d.now().UTC(),
			}
			if err := d.pusher.Push(ctx, p.recipientID, event); err != nil {
				d.logger.Warn().
					Err(err).
					Str("recipient", p.recipientID.String()).
					Msg("push notification failed")
			}
		}
	}
}

// Start runs a background retry loop until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.RetryPending(ctx)
		}
	}
}
