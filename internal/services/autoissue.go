package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/lumenlearn/lumenlearn-backend/internal/logger"
	"github.com/lumenlearn/lumenlearn-backend/internal/types"
)

// AutoIssueTrigger fires the certificate issuer when a progress write first
// moves an entity to its completion threshold, without explicit user action.
//
// It never retries on its own: if issuance fails transiently, no certificate
// was committed, so the next eligibility check naturally re-attempts.
type AutoIssueTrigger interface {
	// HandleTransition returns the issued (or already-committed) certificate,
	// or nil when the attempt was skipped because another worker holds the
	// lease for this (user, entity).
	HandleTransition(ctx context.Context, userID uuid.UUID, ref types.EntityRef) (*types.Certificate, error)
}

type autoIssueTrigger struct {
	log      *logger.Logger
	certs    CertificateService
	guard    IssueGuard
	inflight singleflight.Group
}

func NewAutoIssueTrigger(baseLog *logger.Logger, certs CertificateService, guard IssueGuard) AutoIssueTrigger {
	triggerLog := baseLog.With("service", "AutoIssueTrigger")
	return &autoIssueTrigger{log: triggerLog, certs: certs, guard: guard}
}

func (t *autoIssueTrigger) HandleTransition(ctx context.Context, userID uuid.UUID, ref types.EntityRef) (*types.Certificate, error) {
	key := types.ActiveKeyFor(userID, ref)

	// Collapse concurrent in-process triggers (two lesson players finishing
	// within milliseconds) into one issuance attempt.
	v, err, _ := t.inflight.Do(key, func() (interface{}, error) {
		if !t.guard.TryAcquire(ctx, key) {
			t.log.Debug("issuance lease held elsewhere, skipping", "key", key)
			return (*types.Certificate)(nil), nil
		}

		cert, err := t.certs.Request(ctx, userID, ref)
		if err != nil {
			var notEligible *NotEligibleError
			if errors.As(err, &notEligible) {
				// The completion signal raced a catalog change; nothing to do.
				t.log.Debug("auto-issue trigger fired but user no longer eligible", "key", key)
				return (*types.Certificate)(nil), nil
			}
			var partial *PartialWriteError
			if errors.As(err, &partial) {
				t.log.Warn("auto-issue attempt hit partial write, surfacing as recoverable",
					"key", key, "number", partial.Number, "rolled_back", partial.RolledBack)
			}
			return (*types.Certificate)(nil), err
		}
		return cert, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.Certificate), nil
}
