package types

import "github.com/google/uuid"

// EntityKind selects which catalog shape and completion threshold the
// eligibility/issuance engine runs against. Courses require full completion;
// live events certify attendance at 70% of sessions.
const (
	EntityKindCourse = "course"
	EntityKindEvent  = "event"
)

// EntityRef identifies one certifiable entity (a course or a live event).
type EntityRef struct {
	Kind string    `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

func CourseRef(id uuid.UUID) EntityRef { return EntityRef{Kind: EntityKindCourse, ID: id} }
func EventRef(id uuid.UUID) EntityRef  { return EntityRef{Kind: EntityKindEvent, ID: id} }
