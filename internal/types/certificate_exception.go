package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CertificateException is an administrative grant of eligibility for one
// (user, entity) pair, bypassing the computed progress check. Rows are
// administered outside this engine; the engine only reads them.
type CertificateException struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_exception_user_entity" json:"user_id"`
	EntityKind string         `gorm:"column:entity_kind;not null;index:idx_exception_user_entity" json:"entity_kind"`
	EntityID   uuid.UUID      `gorm:"type:uuid;column:entity_id;not null;index:idx_exception_user_entity" json:"entity_id"`
	Reason     string         `gorm:"column:reason" json:"reason"`
	IsActive   bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CertificateException) TableName() string { return "certificate_exception" }
