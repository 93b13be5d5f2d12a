package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. Cancelled is terminal; a cancellation-triggered
// reassignment swaps the patient while the status stays booked.
const (
	StatusBooked    = "booked"
	StatusCancelled = "cancelled"
)

// Appointment maps to the appointment table. For a given doctor, date and
// start time at most one row is booked at any instant (enforced by a partial
// unique index).
type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Date      time.Time `db:"appointment_date" json:"date"`
	StartTime TimeOfDay `db:"start_time" json:"start_time"`
	Status    string    `db:"status" json:"status"`
	FollowUp  bool      `db:"follow_up" json:"follow_up"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StartsAt combines the appointment's date and start time.
func (a *Appointment) StartsAt() time.Time {
	return a.StartTime.At(a.Date)
}

// WaitingEntry maps to the waiting_list table: a pending request for a
// doctor and preferred time that could not be booked immediately. No two
// entries share (doctor, patient, preferred_at).
type WaitingEntry struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctor_id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	PreferredAt time.Time `db:"preferred_at" json:"preferred_at"`
	RequestedAt time.Time `db:"requested_at" json:"requested_at"`
}

// BookingOutcome is the result of a booking request: either a booked
// appointment or an automatically created waiting-list entry.
type BookingOutcome struct {
	Booked      bool          `json:"booked"`
	Appointment *Appointment  `json:"appointment,omitempty"`
	Waiting     *WaitingEntry `json:"waiting,omitempty"`
	Message     string        `json:"message"`
}

// Availability lists a doctor's free slot start times on a date, in schedule
// order.
type Availability struct {
	DoctorID       uuid.UUID   `json:"doctor_id"`
	Date           string      `json:"date"`
	AvailableSlots []TimeOfDay `json:"available_slots"`
}
