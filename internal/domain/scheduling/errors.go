package scheduling

import "errors"

// Validation and lookup failures surfaced by the booking engine. Handlers map
// these onto HTTP statuses; none are recovered silently.
var (
	ErrPastDateTime        = errors.New("appointment time is in the past")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrDuplicateBooking    = errors.New("an appointment for this slot already exists")
	ErrDuplicateWaiting    = errors.New("already on the waiting list for this slot")
	ErrOutsideHours        = errors.New("appointment must start at 09:30 or later and finish by 18:00")
	ErrLunchConflict       = errors.New("regular appointments cannot overlap the lunch break (13:00 to 14:30)")
	ErrFollowUpWindowOnly  = errors.New("the 16:00 to 18:00 window is reserved for follow-up appointments")
	ErrNotFollowUpWindow   = errors.New("follow-up appointments must be scheduled between 16:00 and 18:00")

	// ErrSlotTaken is returned by the appointment store when an insert loses
	// the race for a slot despite the engine's occupancy check. The engine
	// converts it into a waiting-list entry.
	ErrSlotTaken = errors.New("slot was taken by a concurrent booking")
)
