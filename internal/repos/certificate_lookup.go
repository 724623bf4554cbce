package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/lumenlearn/lumenlearn-backend/internal/logger"
	"github.com/lumenlearn/lumenlearn-backend/internal/types"
)

type CertificateLookupRepo interface {
	GetByNumber(ctx context.Context, tx *gorm.DB, number string) (*types.CertificateLookup, error)
	NumberExists(ctx context.Context, tx *gorm.DB, number string) (bool, error)
	Insert(ctx context.Context, tx *gorm.DB, row *types.CertificateLookup) error
	DeleteByNumber(ctx context.Context, tx *gorm.DB, number string) error
	Invalidate(ctx context.Context, tx *gorm.DB, number string) error
}

type certificateLookupRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCertificateLookupRepo(db *gorm.DB, baseLog *logger.Logger) CertificateLookupRepo {
	repoLog := baseLog.With("repo", "CertificateLookupRepo")
	return &certificateLookupRepo{db: db, log: repoLog}
}

func (r *certificateLookupRepo) GetByNumber(ctx context.Context, tx *gorm.DB, number string) (*types.CertificateLookup, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if number == "" {
		return nil, nil
	}

	var results []*types.CertificateLookup
	if err := transaction.WithContext(ctx).
		Where("certificate_number = ?", number).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *certificateLookupRepo) NumberExists(ctx context.Context, tx *gorm.DB, number string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if number == "" {
		return false, nil
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.CertificateLookup{}).
		Where("certificate_number = ?", number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *certificateLookupRepo) Insert(ctx context.Context, tx *gorm.DB, row *types.CertificateLookup) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}

	err := transaction.WithContext(ctx).Create(row).Error
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateNumber
	}
	return err
}

func (r *certificateLookupRepo) DeleteByNumber(ctx context.Context, tx *gorm.DB, number string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if number == "" {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("certificate_number = ?", number).
		Delete(&types.CertificateLookup{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *certificateLookupRepo) Invalidate(ctx context.Context, tx *gorm.DB, number string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if number == "" {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.CertificateLookup{}).
		Where("certificate_number = ?", number).
		Updates(map[string]interface{}{
			"is_valid":   false,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
		return err
	}
	return nil
}
