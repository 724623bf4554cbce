package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LessonProgress struct {
	ID                  uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID              uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_lesson,unique" json:"user_id"`
	User                *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	LessonID            uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_lesson,unique" json:"lesson_id"`
	Lesson              *Lesson        `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"lesson,omitempty"`
	WatchTimeSeconds    int            `gorm:"column:watch_time_seconds;not null;default:0" json:"watch_time_seconds"`
	LastPositionSeconds int            `gorm:"column:last_position_seconds;not null;default:0" json:"last_position_seconds"`
	IsCompleted         bool           `gorm:"column:is_completed;not null;default:false" json:"is_completed"`
	CompletedAt         *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	QuizScore           *int           `gorm:"column:quiz_score" json:"quiz_score,omitempty"`
	QuizAttempts        int            `gorm:"column:quiz_attempts;not null;default:0" json:"quiz_attempts"`
	Metadata            datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`
	CreatedAt           time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LessonProgress) TableName() string { return "lesson_progress" }
