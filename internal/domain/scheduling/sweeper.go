package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/clock"
	"github.com/clinic/clinic/internal/platform/notification"
)

// DefaultSweepAt is the daily trigger time for the overdue sweep, matching
// the end of working hours.
var DefaultSweepAt = TimeOfDay{Hour: 18, Minute: 0}

// Sweeper cancels booked appointments whose slot has already passed and
// purges waiting entries around those slots. It never promotes: the slot is
// in the past, there is nothing left to hand out.
type Sweeper struct {
	appointments AppointmentRepository
	waiting      WaitingListRepository
	tx           TxRunner
	clock        clock.Clock
	logger       zerolog.Logger
	notify       notification.Sink
	at           TimeOfDay
	window       time.Duration

	mu      sync.Mutex
	running bool
}

func NewSweeper(
	appointments AppointmentRepository,
	waiting WaitingListRepository,
	tx TxRunner,
	clk clock.Clock,
	logger zerolog.Logger,
) *Sweeper {
	return &Sweeper{
		appointments: appointments,
		waiting:      waiting,
		tx:           tx,
		clock:        clk,
		logger:       logger,
		at:           DefaultSweepAt,
		window:       DefaultReassignWindow,
	}
}

// SetSweepAt overrides the daily trigger time.
func (s *Sweeper) SetSweepAt(at TimeOfDay) { s.at = at }

// SetReassignWindow overrides the waiting-entry purge window. Zero or
// negative values are ignored.
func (s *Sweeper) SetReassignWindow(d time.Duration) {
	if d > 0 {
		s.window = d
	}
}

// ErrSweepInProgress is returned when a sweep is triggered while a previous
// run has not finished.
var ErrSweepInProgress = errors.New("sweep already in progress")

// SweepOverdue cancels every booked appointment whose start time is before
// now and returns how many were swept. Each appointment is handled in its
// own transaction; one failure does not stop the rest.
func (s *Sweeper) SweepOverdue(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return 0, ErrSweepInProgress
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	now := s.clock.Now()
	overdue, err := s.appointments.ListOverdueBooked(ctx, dateOf(now), TimeOfDayFrom(now))
	if err != nil {
		return 0, fmt.Errorf("list overdue: %w", err)
	}

	swept := 0
	for _, appt := range overdue {
		if err := s.sweepOne(ctx, appt); err != nil {
			s.logger.Error().Err(err).
				Str("appointment_id", appt.ID.String()).
				Msg("sweep failed for appointment")
			continue
		}
		swept++
	}
	if swept > 0 {
		s.logger.Info().Int("swept", swept).Msg("overdue sweep complete")
	}
	return swept, nil
}

func (s *Sweeper) sweepOne(ctx context.Context, appt *Appointment) error {
	at := appt.StartsAt()
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		appt.Status = StatusCancelled
		if err := s.appointments.Update(ctx, appt); err != nil {
			return err
		}
		entries, err := s.waiting.ListWindow(ctx, appt.DoctorID, at.Add(-s.window), at.Add(s.window))
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, len(entries))
		for i, e := range entries {
			ids[i] = e.ID
		}
		return s.waiting.DeleteBatch(ctx, ids)
	})
	if err != nil {
		return err
	}
	s.emit(ctx, appt)
	return nil
}

func (s *Sweeper) emit(ctx context.Context, appt *Appointment) {
	s.sink(ctx, notification.Event{
		Kind:      notification.EventCancelled,
		PatientID: appt.PatientID,
		DoctorID:  appt.DoctorID,
		Data:      slotData(appt.Date, appt.StartTime),
		At:        s.clock.Now(),
	})
}

// sink is split out so the sweeper works without a notification engine.
func (s *Sweeper) sink(ctx context.Context, ev notification.Event) {
	if s.notify != nil {
		s.notify.Emit(ctx, ev)
	}
}

// SetSink attaches a notification sink for swept appointments.
func (s *Sweeper) SetSink(sink notification.Sink) { s.notify = sink }

// Run triggers SweepOverdue every day at the configured time until the
// context is cancelled. Intended to run in its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	for {
		wait := s.untilNext()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if _, err := s.SweepOverdue(ctx); err != nil && !errors.Is(err, ErrSweepInProgress) {
			s.logger.Error().Err(err).Msg("scheduled sweep failed")
		}
	}
}

func (s *Sweeper) untilNext() time.Duration {
	now := s.clock.Now()
	next := s.at.At(dateOf(now))
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
