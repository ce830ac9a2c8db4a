package models

import "fmt"

// EntityType tags which side of the user/team variant an entity-keyed row is.
type EntityType string

const (
	EntityUser EntityType = "USER"
	EntityTeam EntityType = "TEAM"
)

// EntityRef is the tagged variant keying scores, attendance, submissions,
// assignments and badges: either a user id or a team id, never both.
type EntityRef struct {
	Type EntityType `json:"entity_type"`
	ID   int64      `json:"entity_id"`
}

// UserEntity builds a USER reference.
func UserEntity(id int64) EntityRef { return EntityRef{Type: EntityUser, ID: id} }

// TeamEntity builds a TEAM reference.
func TeamEntity(id int64) EntityRef { return EntityRef{Type: EntityTeam, ID: id} }

// EntityFor picks the entity type matching an event's participant mode.
func EntityFor(mode ParticipantMode, id int64) EntityRef {
	if mode == ModeTeam {
		return TeamEntity(id)
	}
	return UserEntity(id)
}

// EntityTypeFor maps a participant mode to the entity type its rows carry.
func EntityTypeFor(mode ParticipantMode) EntityType {
	if mode == ModeTeam {
		return EntityTeam
	}
	return EntityUser
}

// IsZero reports whether the reference points at nothing.
func (e EntityRef) IsZero() bool { return e.ID == 0 }

// UserID returns the user id column value (nil for team entities).
func (e EntityRef) UserID() *int64 {
	if e.Type == EntityUser && e.ID != 0 {
		id := e.ID
		return &id
	}
	return nil
}

// TeamID returns the team id column value (nil for user entities).
func (e EntityRef) TeamID() *int64 {
	if e.Type == EntityTeam && e.ID != 0 {
		id := e.ID
		return &id
	}
	return nil
}

func (e EntityRef) String() string {
	return fmt.Sprintf("%s:%d", e.Type, e.ID)
}

// EntityFromColumns rebuilds a reference from the nullable DB column pair.
func EntityFromColumns(entityType EntityType, userID, teamID *int64) EntityRef {
	switch entityType {
	case EntityTeam:
		if teamID != nil {
			return TeamEntity(*teamID)
		}
	case EntityUser:
		if userID != nil {
			return UserEntity(*userID)
		}
	}
	return EntityRef{Type: entityType}
}
