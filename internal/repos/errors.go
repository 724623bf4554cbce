package repos

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrDuplicateActiveCertificate means the active_key unique index rejected
	// an insert: some other writer already committed an active certificate for
	// the same (user, entity).
	ErrDuplicateActiveCertificate = errors.New("active certificate already exists for user and entity")

	// ErrDuplicateNumber means the certificate number itself collided.
	ErrDuplicateNumber = errors.New("certificate number already exists")

	// ErrStaleWrite means a compare-and-swap update matched no row because the
	// row changed (or disappeared) since it was read.
	ErrStaleWrite = errors.New("row changed since read")
)

// isUniqueViolation reports whether err is a unique-constraint failure.
// Requires TranslateError on the gorm config so driver errors arrive as
// gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
