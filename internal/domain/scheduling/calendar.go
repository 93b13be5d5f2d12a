package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Calendar reports slot occupancy for a doctor and date on top of the
// appointment store. It holds no state of its own.
type Calendar struct {
	appointments AppointmentRepository
}

// NewCalendar wraps the appointment repository.
func NewCalendar(appointments AppointmentRepository) *Calendar {
	return &Calendar{appointments: appointments}
}

// Occupied returns the start times of every booked appointment for the
// doctor on the date.
func (c *Calendar) Occupied(ctx context.Context, doctorID uuid.UUID, date time.Time) (map[TimeOfDay]bool, error) {
	booked, err := c.appointments.ListBookedByDoctorDate(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	occupied := make(map[TimeOfDay]bool, len(booked))
	for _, a := range booked {
		occupied[a.StartTime] = true
	}
	return occupied, nil
}

// IsFree reports whether no booked appointment's slot overlaps the
// half-open interval [start, start+SlotMinutes). Back-to-back slots do not
// conflict.
func (c *Calendar) IsFree(ctx context.Context, doctorID uuid.UUID, date time.Time, start TimeOfDay) (bool, error) {
	booked, err := c.appointments.ListBookedByDoctorDate(ctx, doctorID, date)
	if err != nil {
		return false, err
	}
	end := start.Add(SlotMinutes)
	for _, a := range booked {
		if overlaps(start, end, a.StartTime, a.StartTime.Add(SlotMinutes)) {
			return false, nil
		}
	}
	return true, nil
}

// Available returns the canonical slots with no booked appointment, in
// schedule order.
func (c *Calendar) Available(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]TimeOfDay, error) {
	occupied, err := c.Occupied(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	var free []TimeOfDay
	for _, slot := range Slots() {
		if !occupied[slot] {
			free = append(free, slot)
		}
	}
	return free, nil
}
