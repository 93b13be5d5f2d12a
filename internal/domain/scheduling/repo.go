package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Appointment, error)
	// ListBookedByDoctorDate returns the booked appointments for a doctor on
	// a date, in start-time order.
	ListBookedByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error)
	// FindBooked locates the booked appointment for an exact
	// (doctor, patient, date, start time) tuple, or nil when absent.
	FindBooked(ctx context.Context, doctorID, patientID uuid.UUID, date time.Time, start TimeOfDay) (*Appointment, error)
	// ListOverdueBooked returns booked appointments before date, plus those
	// on date whose start time is strictly before the cutoff.
	ListOverdueBooked(ctx context.Context, date time.Time, before TimeOfDay) ([]*Appointment, error)
}

type WaitingListRepository interface {
	Create(ctx context.Context, w *WaitingEntry) error
	// Exists reports whether an entry for the exact
	// (doctor, patient, preferred time) tuple is present.
	Exists(ctx context.Context, doctorID, patientID uuid.UUID, preferredAt time.Time) (bool, error)
	// FindExact locates the oldest entry whose preferred time equals
	// preferredAt for the doctor, or nil when absent.
	FindExact(ctx context.Context, doctorID uuid.UUID, preferredAt time.Time) (*WaitingEntry, error)
	// ListWindow returns the doctor's entries with preferred time in
	// [from, to], oldest request first.
	ListWindow(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*WaitingEntry, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteBatch(ctx context.Context, ids []uuid.UUID) error
	// DeleteByDoctorPatient purges every entry the patient holds for the
	// doctor, regardless of preferred time.
	DeleteByDoctorPatient(ctx context.Context, doctorID, patientID uuid.UUID) error
}

// TxRunner executes fn atomically. The Postgres implementation runs fn inside
// a transaction carried through ctx; repositories pick it up transparently.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
