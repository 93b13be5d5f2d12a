package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/clock"
)

func newSweeperFixture(t *testing.T, now time.Time) (*Sweeper, *mockAppointmentRepo, *mockWaitingRepo, *clock.Frozen) {
	t.Helper()
	appts := newMockAppointmentRepo()
	waiting := newMockWaitingRepo()
	clk := clock.NewFrozen(now)
	s := NewSweeper(appts, waiting, passthroughTx{}, clk, zerolog.Nop())
	return s, appts, waiting, clk
}

func seedBooked(t *testing.T, appts *mockAppointmentRepo, doctorID uuid.UUID, date time.Time, start TimeOfDay) *Appointment {
	t.Helper()
	a := &Appointment{
		DoctorID:  doctorID,
		PatientID: uuid.New(),
		Date:      date,
		StartTime: start,
		Status:    StatusBooked,
	}
	if err := appts.Create(context.Background(), a); err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	return a
}

func TestSweepOverdue_CancelsPastAppointments(t *testing.T) {
	endOfDay := time.Date(2025, 7, 4, 18, 0, 0, 0, time.UTC)
	s, appts, _, _ := newSweeperFixture(t, endOfDay)

	doctorID := uuid.New()
	today := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	morning := seedBooked(t, appts, doctorID, today, TimeOfDay{10, 30})
	afternoon := seedBooked(t, appts, doctorID, today, TimeOfDay{15, 0})
	future := seedBooked(t, appts, doctorID, tomorrow, TimeOfDay{10, 30})

	swept, err := s.SweepOverdue(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 2 {
		t.Fatalf("expected 2 swept, got %d", swept)
	}

	for _, id := range []uuid.UUID{morning.ID, afternoon.ID} {
		a, err := appts.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if a.Status != StatusCancelled {
			t.Errorf("appointment %s: expected cancelled, got %s", id, a.Status)
		}
	}

	a, err := appts.GetByID(context.Background(), future.ID)
	if err != nil {
		t.Fatalf("get future: %v", err)
	}
	if a.Status != StatusBooked {
		t.Errorf("future appointment must stay booked, got %s", a.Status)
	}
}

func TestSweepOverdue_PurgesWaitingWithoutPromoting(t *testing.T) {
	endOfDay := time.Date(2025, 7, 4, 18, 0, 0, 0, time.UTC)
	s, appts, waiting, _ := newSweeperFixture(t, endOfDay)

	doctorID := uuid.New()
	today := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)
	overdue := seedBooked(t, appts, doctorID, today, TimeOfDay{10, 30})

	// Entry within the window around the overdue slot: purged, not promoted.
	waitingPatient := uuid.New()
	if err := waiting.Create(context.Background(), &WaitingEntry{
		DoctorID:    doctorID,
		PatientID:   waitingPatient,
		PreferredAt: time.Date(2025, 7, 4, 10, 30, 0, 0, time.UTC),
		RequestedAt: endOfDay.Add(-8 * time.Hour),
	}); err != nil {
		t.Fatalf("seed waiting: %v", err)
	}

	// Entry for a far-away slot stays.
	if err := waiting.Create(context.Background(), &WaitingEntry{
		DoctorID:    doctorID,
		PatientID:   uuid.New(),
		PreferredAt: time.Date(2025, 7, 5, 10, 30, 0, 0, time.UTC),
		RequestedAt: endOfDay,
	}); err != nil {
		t.Fatalf("seed distant waiting: %v", err)
	}

	if _, err := s.SweepOverdue(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if waiting.count() != 1 {
		t.Fatalf("expected 1 remaining waiting entry, got %d", waiting.count())
	}

	// The purged patient did not inherit the slot.
	a, err := appts.GetByID(context.Background(), overdue.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if a.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", a.Status)
	}
	if a.PatientID == waitingPatient {
		t.Error("waiting entry must not be promoted into a past slot")
	}
}

func TestSweepOverdue_NothingToDo(t *testing.T) {
	s, _, _, _ := newSweeperFixture(t, time.Date(2025, 7, 4, 18, 0, 0, 0, time.UTC))
	swept, err := s.SweepOverdue(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 0 {
		t.Errorf("expected 0 swept, got %d", swept)
	}
}

func TestSweeper_UntilNext(t *testing.T) {
	morning := time.Date(2025, 7, 4, 9, 0, 0, 0, time.UTC)
	s, _, _, clk := newSweeperFixture(t, morning)
	s.SetSweepAt(TimeOfDay{18, 0})

	if got := s.untilNext(); got != 9*time.Hour {
		t.Errorf("expected 9h until sweep, got %v", got)
	}

	// After the trigger time, the next run is tomorrow.
	clk.Set(time.Date(2025, 7, 4, 18, 30, 0, 0, time.UTC))
	if got := s.untilNext(); got != 23*time.Hour+30*time.Minute {
		t.Errorf("expected 23h30m until sweep, got %v", got)
	}
}

func TestSweeper_SingleRun(t *testing.T) {
	s, _, _, _ := newSweeperFixture(t, time.Date(2025, 7, 4, 18, 0, 0, 0, time.UTC))

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	if _, err := s.SweepOverdue(context.Background()); err != ErrSweepInProgress {
		t.Fatalf("expected ErrSweepInProgress, got %v", err)
	}
}
