package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Certificate is the primary certificate record. Name/title/duration fields are
// snapshots taken at issuance time so later renames do not rewrite history.
//
// ActiveKey is "<user_id>:<kind>:<entity_id>" while the certificate is active
// and NULL once revoked; the unique index on it is what enforces at most one
// active certificate per (user, entity) even when two writers race.
type Certificate struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CertificateNumber string         `gorm:"column:certificate_number;uniqueIndex;not null" json:"certificate_number"`
	UserID            uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User              *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	EntityKind        string         `gorm:"column:entity_kind;not null" json:"entity_kind"`
	EntityID          uuid.UUID      `gorm:"type:uuid;column:entity_id;not null;index" json:"entity_id"`
	StudentName       string         `gorm:"column:student_name;not null" json:"student_name"`
	EntityTitle       string         `gorm:"column:entity_title;not null" json:"entity_title"`
	InstructorName    string         `gorm:"column:instructor_name" json:"instructor_name"`
	DurationMinutes   int            `gorm:"column:duration_minutes;not null;default:0" json:"duration_minutes"`
	IssuedAt          time.Time      `gorm:"column:issued_at;not null" json:"issued_at"`
	IsActive          bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	ActiveKey         *string        `gorm:"column:active_key;uniqueIndex" json:"-"`
	Metadata          datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Certificate) TableName() string { return "certificate" }

// ActiveKeyFor builds the uniqueness key guarding one active certificate per
// (user, entity).
func ActiveKeyFor(userID uuid.UUID, ref EntityRef) string {
	return userID.String() + ":" + ref.Kind + ":" + ref.ID.String()
}

func (c *Certificate) EntityRef() EntityRef {
	return EntityRef{Kind: c.EntityKind, ID: c.EntityID}
}
