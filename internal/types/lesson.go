package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Lesson kinds. A "mixed" lesson carries both a video and notes body and is
// completed the same way a video lesson is.
const (
	LessonKindVideo = "video"
	LessonKindNotes = "notes"
	LessonKindQuiz  = "quiz"
	LessonKindMixed = "mixed"
)

type Lesson struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SectionID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"section_id"`
	Section         *CourseSection `gorm:"constraint:OnDelete:CASCADE;foreignKey:SectionID;references:ID" json:"section,omitempty"`
	Index           int            `gorm:"column:index;not null" json:"index"`
	Title           string         `gorm:"column:title;not null" json:"title"`
	Kind            string         `gorm:"column:kind;not null;default:'notes'" json:"kind"`
	DurationSeconds int            `gorm:"column:duration_seconds;not null;default:0" json:"duration_seconds"`
	IsActive        bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	Metadata        datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Lesson) TableName() string { return "lesson" }
