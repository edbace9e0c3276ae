package models

import (
	"strings"
	"time"
)

// Institution is an external body that files requests.
type Institution struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Unit is an organizational unit of an institution.
type Unit struct {
	ID            string    `db:"id" json:"id"`
	InstitutionID string    `db:"institution_id" json:"institutionId"`
	Name          string    `db:"name" json:"name"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// Position is a rank or post held by an agent.
type Position struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	HierarchyLevel int       `db:"hierarchy_level" json:"hierarchyLevel"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// Agent is the officer who signs an incoming request.
type Agent struct {
	ID         string    `db:"id" json:"id"`
	FirstName  string    `db:"first_name" json:"firstName"`
	LastName   string    `db:"last_name" json:"lastName"`
	PositionID string    `db:"position_id" json:"positionId"`
	UnitID     string    `db:"unit_id" json:"unitId"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// FullName joins first and last name.
func (a Agent) FullName() string {
	return joinName(a.FirstName, a.LastName)
}

// AgentWithPosition is an agent row joined with its position name.
type AgentWithPosition struct {
	Agent
	PositionName string `db:"position_name" json:"positionName"`
}

// CrimeType classifies the offense a request relates to.
type CrimeType struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// FlaggedPerson is an entry of the internal registry of persons of interest.
type FlaggedPerson struct {
	ID                string     `db:"id" json:"id"`
	FirstName         string     `db:"first_name" json:"firstName"`
	LastName          string     `db:"last_name" json:"lastName"`
	NationalID        string     `db:"national_id" json:"nationalId"`
	BirthDate         *time.Time `db:"birth_date" json:"birthDate,omitempty"`
	CriminalGroup     *string    `db:"criminal_group" json:"criminalGroup,omitempty"`
	CriminalStructure *string    `db:"criminal_structure" json:"criminalStructure,omitempty"`
	Observations      *string    `db:"observations" json:"observations,omitempty"`
	PhotoRef          *string    `db:"photo_ref" json:"photoRef,omitempty"`
	Active            bool       `db:"active" json:"active"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updatedAt"`
}

// User is an operator of the unit (analyst or reviewing officer).
type User struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
