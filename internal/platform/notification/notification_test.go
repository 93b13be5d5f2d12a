package notification

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestEngine_RenderSubstitutesData(t *testing.T) {
	e := NewEngine()

	subject, body, err := e.Render(EventBooked, map[string]string{
		"date": "2025-07-04",
		"time": "10:30",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if subject != "Appointment confirmed" {
		t.Errorf("unexpected subject %q", subject)
	}
	if !strings.Contains(body, "2025-07-04") || !strings.Contains(body, "10:30") {
		t.Errorf("expected placeholders substituted, got %q", body)
	}
	if strings.Contains(body, "{{") {
		t.Errorf("unreplaced placeholder in %q", body)
	}
}

func TestEngine_RenderUnknownKind(t *testing.T) {
	e := NewEngine()
	if _, _, err := e.Render("appointment.revoked", nil); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestEngine_RenderKeepsUnknownPlaceholders(t *testing.T) {
	e := NewEngine()
	e.Register(Template{ID: "custom", Subject: "s", Body: "hello {{name}}"})

	_, body, err := e.Render("custom", map[string]string{"date": "x"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if body != "hello {{name}}" {
		t.Errorf("expected untouched placeholder, got %q", body)
	}
}

func TestEngine_RegisterOverrides(t *testing.T) {
	e := NewEngine()
	e.Register(Template{ID: EventCancelled, Subject: "Visit cancelled", Body: "b"})

	subject, _, err := e.Render(EventCancelled, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if subject != "Visit cancelled" {
		t.Errorf("expected override, got %q", subject)
	}
}

func TestEngine_AllEventKindsHaveTemplates(t *testing.T) {
	e := NewEngine()
	for _, kind := range []string{EventBooked, EventWaitlisted, EventPromoted, EventCancelled, EventUpdated} {
		if _, _, err := e.Render(kind, nil); err != nil {
			t.Errorf("kind %s: %v", kind, err)
		}
	}
}

func TestLogSink_EmitDoesNotPanic(t *testing.T) {
	sink := NewLogSink(NewEngine(), zerolog.Nop())

	sink.Emit(context.Background(), Event{
		Kind:      EventBooked,
		PatientID: uuid.New(),
		DoctorID:  uuid.New(),
		Data:      map[string]string{"date": "2025-07-04", "time": "10:30"},
	})
	// Unknown kinds are dropped, not propagated.
	sink.Emit(context.Background(), Event{Kind: "bogus"})
}
