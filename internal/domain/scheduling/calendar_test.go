package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCalendar_IsFree(t *testing.T) {
	appts := newMockAppointmentRepo()
	cal := NewCalendar(appts)
	ctx := context.Background()

	doctorID := uuid.New()
	date := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)
	seedBooked(t, appts, doctorID, date, TimeOfDay{10, 30})

	free, err := cal.IsFree(ctx, doctorID, date, TimeOfDay{10, 30})
	if err != nil {
		t.Fatalf("isFree: %v", err)
	}
	if free {
		t.Error("expected occupied slot")
	}

	// Back-to-back slots do not conflict.
	for _, start := range []TimeOfDay{{10, 0}, {11, 0}} {
		free, err := cal.IsFree(ctx, doctorID, date, start)
		if err != nil {
			t.Fatalf("isFree(%v): %v", start, err)
		}
		if !free {
			t.Errorf("expected %v free next to a 10:30 booking", start)
		}
	}

	// Other doctors and other dates are unaffected.
	if free, _ := cal.IsFree(ctx, uuid.New(), date, TimeOfDay{10, 30}); !free {
		t.Error("expected other doctor's calendar to be free")
	}
	if free, _ := cal.IsFree(ctx, doctorID, date.AddDate(0, 0, 1), TimeOfDay{10, 30}); !free {
		t.Error("expected other date to be free")
	}
}

func TestCalendar_CancelledSlotIsFree(t *testing.T) {
	appts := newMockAppointmentRepo()
	cal := NewCalendar(appts)
	ctx := context.Background()

	doctorID := uuid.New()
	date := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)
	a := seedBooked(t, appts, doctorID, date, TimeOfDay{10, 30})

	a.Status = StatusCancelled
	if err := appts.Update(ctx, a); err != nil {
		t.Fatalf("update: %v", err)
	}

	free, err := cal.IsFree(ctx, doctorID, date, TimeOfDay{10, 30})
	if err != nil {
		t.Fatalf("isFree: %v", err)
	}
	if !free {
		t.Error("cancelled appointment must not occupy the slot")
	}
}

func TestCalendar_Available(t *testing.T) {
	appts := newMockAppointmentRepo()
	cal := NewCalendar(appts)
	ctx := context.Background()

	doctorID := uuid.New()
	date := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)
	seedBooked(t, appts, doctorID, date, TimeOfDay{9, 30})
	seedBooked(t, appts, doctorID, date, TimeOfDay{14, 30})

	free, err := cal.Available(ctx, doctorID, date)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(free) != len(Slots())-2 {
		t.Fatalf("expected %d free slots, got %d", len(Slots())-2, len(free))
	}
	for _, s := range free {
		if s == (TimeOfDay{9, 30}) || s == (TimeOfDay{14, 30}) {
			t.Errorf("booked slot %v reported free", s)
		}
	}
	// Schedule order is preserved.
	for i := 1; i < len(free); i++ {
		if !free[i-1].Before(free[i]) {
			t.Errorf("slots out of order: %v then %v", free[i-1], free[i])
		}
	}
}
