package directory

import (
	"time"

	"github.com/google/uuid"
)

// Account roles. Appointments may only pair a patient-role record with a
// doctor-role record.
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

// Patient maps to the patient table.
type Patient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Role      string    `db:"role" json:"role"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Doctor maps to the doctor table.
type Doctor struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Role           string    `db:"role" json:"role"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	Specialization *string   `db:"specialization" json:"specialization,omitempty"`
	Email          *string   `db:"email" json:"email,omitempty"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
