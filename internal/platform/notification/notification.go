// Package notification delivers booking lifecycle events to patients.
// Delivery is fire-and-forget: a failed or dropped notification never fails
// the booking operation that produced it.
package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event kinds emitted by the booking engine.
const (
	EventBooked     = "appointment.booked"
	EventWaitlisted = "appointment.waitlisted"
	EventPromoted   = "appointment.promoted"
	EventCancelled  = "appointment.cancelled"
	EventUpdated    = "appointment.updated"
)

// Event describes a booking lifecycle change for one patient.
type Event struct {
	Kind      string            `json:"kind"`
	PatientID uuid.UUID         `json:"patient_id"`
	DoctorID  uuid.UUID         `json:"doctor_id"`
	Data      map[string]string `json:"data,omitempty"`
	At        time.Time         `json:"at"`
}

// Sink receives events. Implementations must not block the caller for long
// and must swallow their own delivery errors.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// Template is a reusable message template rendered with {{key}} substitution.
type Template struct {
	ID      string
	Subject string
	Body    string
}

// Engine renders event templates.
type Engine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewEngine creates an Engine with the booking templates pre-registered.
func NewEngine() *Engine {
	e := &Engine{templates: make(map[string]*Template)}
	for _, t := range []Template{
		{
			ID:      EventBooked,
			Subject: "Appointment confirmed",
			Body:    "Your appointment on {{date}} at {{time}} has been booked.",
		},
		{
			ID:      EventWaitlisted,
			Subject: "Added to waiting list",
			Body:    "The slot on {{date}} at {{time}} is full. You are on the waiting list and will be booked automatically if it frees up.",
		},
		{
			ID:      EventPromoted,
			Subject: "Waiting list slot assigned",
			Body:    "A slot opened up: your appointment on {{date}} at {{time}} is now booked.",
		},
		{
			ID:      EventCancelled,
			Subject: "Appointment cancelled",
			Body:    "Your appointment on {{date}} at {{time}} has been cancelled.",
		},
		{
			ID:      EventUpdated,
			Subject: "Appointment rescheduled",
			Body:    "Your appointment has been moved to {{date}} at {{time}}.",
		},
	} {
		tpl := t
		e.templates[tpl.ID] = &tpl
	}
	return e
}

// Register adds or replaces a template.
func (e *Engine) Register(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up the template for the event kind and substitutes {{key}}
// placeholders from data. Unknown placeholders are left as-is.
func (e *Engine) Render(kind string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[kind]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("no template for event kind %q", kind)
	}
	subject, body = t.Subject, t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// LogSink renders events and writes them to the application log. It stands in
// for an email/SMS gateway and doubles as the default sink in development.
type LogSink struct {
	engine *Engine
	logger zerolog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(engine *Engine, logger zerolog.Logger) *LogSink {
	return &LogSink{engine: engine, logger: logger}
}

// Emit implements Sink.
func (s *LogSink) Emit(_ context.Context, ev Event) {
	subject, body, err := s.engine.Render(ev.Kind, ev.Data)
	if err != nil {
		s.logger.Warn().Err(err).Str("kind", ev.Kind).Msg("notification dropped")
		return
	}
	s.logger.Info().
		Str("kind", ev.Kind).
		Str("patient_id", ev.PatientID.String()).
		Str("doctor_id", ev.DoctorID.String()).
		Str("subject", subject).
		Str("body", body).
		Msg("notification")
}

// Discard ignores every event. Used in tests.
type Discard struct{}

// Emit implements Sink.
func (Discard) Emit(context.Context, Event) {}
