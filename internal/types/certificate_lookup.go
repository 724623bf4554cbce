package types

import (
	"time"
)

// CertificateLookup is the secondary, public certificate record backing the
// anonymous verification page. It is keyed by the same certificate number as
// the primary record and carries only fields safe to show an unauthenticated
// caller.
type CertificateLookup struct {
	CertificateNumber string    `gorm:"column:certificate_number;primaryKey" json:"certificate_number"`
	StudentName       string    `gorm:"column:student_name;not null" json:"student_name"`
	EntityTitle       string    `gorm:"column:entity_title;not null" json:"entity_title"`
	EntityKind        string    `gorm:"column:entity_kind;not null" json:"entity_kind"`
	IssuedAt          time.Time `gorm:"column:issued_at;not null" json:"issued_at"`
	IsValid           bool      `gorm:"column:is_valid;not null;default:true" json:"is_valid"`
	CreatedAt         time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (CertificateLookup) TableName() string { return "certificate_lookup" }
