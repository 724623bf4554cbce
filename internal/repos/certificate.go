package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlearn/lumenlearn-backend/internal/logger"
	"github.com/lumenlearn/lumenlearn-backend/internal/types"
)

type CertificateRepo interface {
	GetActiveByUserAndEntity(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ref types.EntityRef) (*types.Certificate, error)
	GetByNumber(ctx context.Context, tx *gorm.DB, number string) (*types.Certificate, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Certificate, error)
	NumberExists(ctx context.Context, tx *gorm.DB, number string) (bool, error)
	// Insert commits a new primary record. The unique indexes on
	// certificate_number and active_key are the authority here: a losing
	// concurrent writer gets ErrDuplicateActiveCertificate or
	// ErrDuplicateNumber instead of a raw driver error.
	Insert(ctx context.Context, tx *gorm.DB, cert *types.Certificate) error
	// HardDeleteByNumber exists solely for the compensating rollback after a
	// failed lookup-record write. Revocation goes through Revoke.
	HardDeleteByNumber(ctx context.Context, tx *gorm.DB, number string) error
	Revoke(ctx context.Context, tx *gorm.DB, number string) error
}

type certificateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCertificateRepo(db *gorm.DB, baseLog *logger.Logger) CertificateRepo {
	repoLog := baseLog.With("repo", "CertificateRepo")
	return &certificateRepo{db: db, log: repoLog}
}

func (r *certificateRepo) GetActiveByUserAndEntity(ctx context.Context, tx *gorm.DB, userID uuid.UUID, ref types.EntityRef) (*types.Certificate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if userID == uuid.Nil || ref.ID == uuid.Nil {
		return nil, nil
	}

	var results []*types.Certificate
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND entity_kind = ? AND entity_id = ? AND is_active = ?",
			userID, ref.Kind, ref.ID, true).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *certificateRepo) GetByNumber(ctx context.Context, tx *gorm.DB, number string) (*types.Certificate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if number == "" {
		return nil, nil
	}

	var results []*types.Certificate
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

func (r *certificateRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Certificate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Certificate
	if userID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("issued_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *certificateRepo) NumberExists(ctx context.Context, tx *gorm.DB, number string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if number == "" {
		return false, nil
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Certificate{}).
		Where("certificate_number = ?", number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *certificateRepo) Insert(ctx context.Context, tx *gorm.DB, cert *types.Certificate) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if cert == nil {
		return nil
	}

	err := transaction.WithContext(ctx).Create(cert).Error
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		// Disambiguate which index fired: a duplicate number is retryable with
		// a fresh number, a duplicate active_key means the race was lost.
		exists, checkErr := r.NumberExists(ctx, transaction, cert.CertificateNumber)
		if checkErr == nil && exists {
			return ErrDuplicateNumber
		}
		return ErrDuplicateActiveCertificate
	}
	return err
}

func (r *certificateRepo) HardDeleteByNumber(ctx context.Context, tx *gorm.DB, number string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if number == "" {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Unscoped().
		Where("certificate_number = ?", number).
		Delete(&types.Certificate{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *certificateRepo) Revoke(ctx context.Context, tx *gorm.DB, number string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if number == "" {
		return nil
	}

	// Clearing active_key frees the (user, entity) slot for a future reissue
	// while the revoked row stays behind for audit.
	res := transaction.WithContext(ctx).
		Model(&types.Certificate{}).
		Where("certificate_number = ? AND is_active = ?", number, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"active_key": nil,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
