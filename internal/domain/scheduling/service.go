package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/domain/directory"
	"github.com/clinic/clinic/internal/platform/clock"
	"github.com/clinic/clinic/internal/platform/notification"
)

// DefaultReassignWindow bounds how far a waiting request's preferred time may
// sit from a vacated slot and still be promoted into it.
const DefaultReassignWindow = 15 * time.Minute

// doctorLocks serializes the read-check-write booking sequence per doctor.
// The partial unique index on the appointment table backs this up across
// processes.
type doctorLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newDoctorLocks() *doctorLocks {
	return &doctorLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (d *doctorLocks) lock(id uuid.UUID) func() {
	d.mu.Lock()
	l, ok := d.locks[id]
	if !ok {
		l = &sync.Mutex{}
		d.locks[id] = l
	}
	d.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Service is the booking engine: it validates timing, detects conflicts,
// books, cancels, reschedules, and promotes waiting-list entries into
// vacated slots.
type Service struct {
	appointments AppointmentRepository
	waiting      WaitingListRepository
	calendar     *Calendar
	patients     directory.PatientResolver
	doctors      directory.DoctorResolver
	tx           TxRunner
	clock        clock.Clock
	sink         notification.Sink
	logger       zerolog.Logger
	locks        *doctorLocks
	window       time.Duration
}

func NewService(
	appointments AppointmentRepository,
	waiting WaitingListRepository,
	patients directory.PatientResolver,
	doctors directory.DoctorResolver,
	tx TxRunner,
	clk clock.Clock,
	sink notification.Sink,
	logger zerolog.Logger,
) *Service {
	return &Service{
		appointments: appointments,
		waiting:      waiting,
		calendar:     NewCalendar(appointments),
		patients:     patients,
		doctors:      doctors,
		tx:           tx,
		clock:        clk,
		sink:         sink,
		logger:       logger,
		locks:        newDoctorLocks(),
		window:       DefaultReassignWindow,
	}
}

// SetReassignWindow overrides the promotion window. Zero or negative values
// are ignored.
func (s *Service) SetReassignWindow(d time.Duration) {
	if d > 0 {
		s.window = d
	}
}

// dateOf strips the clock time, keeping the civil date at midnight.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func slotData(date time.Time, start TimeOfDay) map[string]string {
	return map[string]string{
		"date": date.Format("2006-01-02"),
		"time": start.String(),
	}
}

func (s *Service) emit(ctx context.Context, kind string, patientID, doctorID uuid.UUID, date time.Time, start TimeOfDay) {
	s.sink.Emit(ctx, notification.Event{
		Kind:      kind,
		PatientID: patientID,
		DoctorID:  doctorID,
		Data:      slotData(date, start),
		At:        s.clock.Now(),
	})
}

// BookOrWait books the requested slot for the patient, or, when the slot is
// occupied, adds the request to the doctor's waiting list. A successful
// booking purges every waiting entry the patient holds for that doctor.
func (s *Service) BookOrWait(ctx context.Context, patientID, doctorID uuid.UUID, at time.Time, followUp bool) (*BookingOutcome, error) {
	if !at.After(s.clock.Now()) {
		return nil, ErrPastDateTime
	}

	patient, err := s.patients.ResolvePatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	doctor, err := s.doctors.ResolveDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	date := dateOf(at)
	start := TimeOfDayFrom(at)

	unlock := s.locks.lock(doctor.ID)
	defer unlock()

	dup, err := s.appointments.FindBooked(ctx, doctor.ID, patient.ID, date, start)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if dup != nil {
		return nil, ErrDuplicateBooking
	}

	waitingDup, err := s.waiting.Exists(ctx, doctor.ID, patient.ID, start.At(date))
	if err != nil {
		return nil, fmt.Errorf("waiting duplicate check: %w", err)
	}
	if waitingDup {
		return nil, ErrDuplicateWaiting
	}

	if err := ValidateSlotTime(start, followUp); err != nil {
		return nil, err
	}

	free, err := s.calendar.IsFree(ctx, doctor.ID, date, start)
	if err != nil {
		return nil, fmt.Errorf("occupancy check: %w", err)
	}
	if free {
		appt := &Appointment{
			DoctorID:  doctor.ID,
			PatientID: patient.ID,
			Date:      date,
			StartTime: start,
			Status:    StatusBooked,
			FollowUp:  followUp,
		}
		err := s.tx.InTx(ctx, func(ctx context.Context) error {
			if err := s.appointments.Create(ctx, appt); err != nil {
				return err
			}
			return s.waiting.DeleteByDoctorPatient(ctx, doctor.ID, patient.ID)
		})
		if err == nil {
			s.logger.Info().
				Str("appointment_id", appt.ID.String()).
				Str("doctor_id", doctor.ID.String()).
				Str("patient_id", patient.ID.String()).
				Msg("appointment booked")
			s.emit(ctx, notification.EventBooked, patient.ID, doctor.ID, date, start)
			return &BookingOutcome{
				Booked:      true,
				Appointment: appt,
				Message:     "Appointment booked successfully.",
			}, nil
		}
		if !errors.Is(err, ErrSlotTaken) {
			return nil, fmt.Errorf("book slot: %w", err)
		}
		// Lost the race to another process; fall through to the waiting list.
	}

	entry := &WaitingEntry{
		DoctorID:    doctor.ID,
		PatientID:   patient.ID,
		PreferredAt: start.At(date),
		RequestedAt: s.clock.Now(),
	}
	if err := s.waiting.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("add to waiting list: %w", err)
	}
	s.logger.Info().
		Str("waiting_id", entry.ID.String()).
		Str("doctor_id", doctor.ID.String()).
		Str("patient_id", patient.ID.String()).
		Msg("request waitlisted")
	s.emit(ctx, notification.EventWaitlisted, patient.ID, doctor.ID, date, start)
	return &BookingOutcome{
		Booked:  false,
		Waiting: entry,
		Message: "Requested slot is full. You have been added to the waiting list automatically.",
	}, nil
}

// UpdateRequest carries partial changes for Update; nil fields keep the
// appointment's current value.
type UpdateRequest struct {
	Date     *time.Time
	Time     *TimeOfDay
	FollowUp *bool
}

// Update applies a partial reschedule. When the slot actually moves, the old
// slot is treated as vacated: a waiting entry whose preferred time matches it
// exactly is promoted into it. Promotion failures never fail the update.
func (s *Service) Update(ctx context.Context, appointmentID uuid.UUID, req UpdateRequest) (*Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	oldDate, oldTime := appt.Date, appt.StartTime

	newDate := oldDate
	if req.Date != nil {
		newDate = dateOf(*req.Date)
	}
	newTime := oldTime
	if req.Time != nil {
		newTime = *req.Time
	}
	followUp := appt.FollowUp
	if req.FollowUp != nil {
		followUp = *req.FollowUp
	}

	if !newTime.At(newDate).After(s.clock.Now()) {
		return nil, ErrPastDateTime
	}
	if err := ValidateSlotTime(newTime, followUp); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(appt.DoctorID)
	defer unlock()

	appt.Date = newDate
	appt.StartTime = newTime
	appt.FollowUp = followUp
	if err := s.appointments.Update(ctx, appt); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return nil, ErrDuplicateBooking
		}
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	s.emit(ctx, notification.EventUpdated, appt.PatientID, appt.DoctorID, newDate, newTime)

	if !oldDate.Equal(newDate) || oldTime != newTime {
		s.promoteExact(ctx, appt.DoctorID, oldDate, oldTime)
	}
	return appt, nil
}

// promoteExact books the vacated slot for the oldest waiting entry whose
// preferred time matches it exactly. Failures are logged and swallowed.
func (s *Service) promoteExact(ctx context.Context, doctorID uuid.UUID, date time.Time, start TimeOfDay) {
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		entry, err := s.waiting.FindExact(ctx, doctorID, start.At(date))
		if err != nil {
			return err
		}
		if entry == nil {
			return nil
		}
		promoted := &Appointment{
			DoctorID:  doctorID,
			PatientID: entry.PatientID,
			Date:      date,
			StartTime: start,
			Status:    StatusBooked,
		}
		if err := s.appointments.Create(ctx, promoted); err != nil {
			return err
		}
		if err := s.waiting.Delete(ctx, entry.ID); err != nil {
			return err
		}
		s.emit(ctx, notification.EventPromoted, entry.PatientID, doctorID, date, start)
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).
			Str("doctor_id", doctorID.String()).
			Str("slot", start.String()).
			Msg("waiting-list promotion failed")
	}
}

// Cancel cancels the appointment. When waiting entries exist within the
// reassignment window around the slot, the oldest request takes over the
// appointment (patient swap, status stays booked) and every matched entry is
// removed; otherwise the appointment is marked cancelled.
func (s *Service) Cancel(ctx context.Context, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(appt.DoctorID)
	defer unlock()

	at := appt.StartsAt()
	from, to := at.Add(-s.window), at.Add(s.window)

	previousPatient := appt.PatientID
	var promotedTo *WaitingEntry

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		entries, err := s.waiting.ListWindow(ctx, appt.DoctorID, from, to)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			// Oldest request wins; the whole window is consumed.
			promotedTo = entries[0]
			appt.PatientID = promotedTo.PatientID
			appt.Status = StatusBooked
		} else {
			appt.Status = StatusCancelled
		}
		if err := s.appointments.Update(ctx, appt); err != nil {
			return err
		}
		if len(entries) > 0 {
			ids := make([]uuid.UUID, len(entries))
			for i, e := range entries {
				ids[i] = e.ID
			}
			return s.waiting.DeleteBatch(ctx, ids)
		}
		return nil
	})
	if err != nil {
		appt.PatientID = previousPatient
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.emit(ctx, notification.EventCancelled, previousPatient, appt.DoctorID, appt.Date, appt.StartTime)
	if promotedTo != nil {
		s.logger.Info().
			Str("appointment_id", appt.ID.String()).
			Str("patient_id", promotedTo.PatientID.String()).
			Msg("appointment reassigned from waiting list")
		s.emit(ctx, notification.EventPromoted, promotedTo.PatientID, appt.DoctorID, appt.Date, appt.StartTime)
	}
	return appt, nil
}

// ListByPatient returns the patient's appointments, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	return s.appointments.ListByPatient(ctx, patientID)
}

// ListByDoctor returns the doctor's appointments, newest first.
func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Appointment, error) {
	return s.appointments.ListByDoctor(ctx, doctorID)
}

// Availability returns the doctor's free slots on the date, in schedule
// order.
func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID, date time.Time) (*Availability, error) {
	if _, err := s.doctors.ResolveDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	date = dateOf(date)
	free, err := s.calendar.Available(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	return &Availability{
		DoctorID:       doctorID,
		Date:           date.Format("2006-01-02"),
		AvailableSlots: free,
	}, nil
}
