package models

import (
	"database/sql"
	"time"
)

// Persona is a reusable model reference. A persona without owner belongs to the system catalog.
type Persona struct {
	ID                  string
	Name                string
	ReferenceImageURL   string
	StyleTag            string
	PhysicalDescription string
	OwnerID             sql.NullString
	CreatedAt           time.Time
}

// IsSystem reports whether the persona is shared by every operator.
func (p Persona) IsSystem() bool {
	return !p.OwnerID.Valid || p.OwnerID.String == ""
}
