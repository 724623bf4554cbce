package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlearn/lumenlearn-backend/internal/logger"
	"github.com/lumenlearn/lumenlearn-backend/internal/types"
)

type CertificateExceptionRepo interface {
	HasActive(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ref types.EntityRef) (bool, error)
}

type certificateExceptionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCertificateExceptionRepo(db *gorm.DB, baseLog *logger.Logger) CertificateExceptionRepo {
	repoLog := baseLog.With("repo", "CertificateExceptionRepo")
	return &certificateExceptionRepo{db: db, log: repoLog}
}

func (r *certificateExceptionRepo) HasActive(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ref types.EntityRef) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil || ref.ID == uuid.Nil {
		return false, nil
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.CertificateException{}).
		Where("user_id = ? AND entity_kind = ? AND entity_id = ? AND is_active = ?",
			userID, ref.Kind, ref.ID, true).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
