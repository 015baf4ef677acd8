package service

import (
	"context"
	"errors"
	"time"

	"referrals/internal/referral/models"
	id "referrals/pkg/domain"
	dErrors "referrals/pkg/domain-errors"
	"referrals/pkg/platform/sentinel"
	"referrals/pkg/requestcontext"
)

// CreateCode issues a referral code for ownerID.
//
// Without a custom code, candidates are generated and inserted until one is
// unique, up to maxGenerationAttempts; persistent collisions surface as
// CodeGenerationExhausted. A custom code is tried exactly once and reports
// CodeTaken on collision.
func (s *Service) CreateCode(ctx context.Context, ownerID id.UserID, req *models.CreateCodeRequest) (*models.ReferralCode, error) {
	start := time.Now()
	defer s.observeDuration("create_code", start)

	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "owner is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	attempts := s.maxGenerationAttempts
	if req.CustomCode != "" {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		value := req.CustomCode
		if value == "" {
			generated, err := s.generate()
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate referral code")
			}
			value = generated
		}

		code, err := models.NewReferralCode(id.NewCodeID(), ownerID, value, req.PointsPerReferral, req.MaxUses, req.ExpiresAt, now)
		if err != nil {
			return nil, asValidation(err)
		}

		err = s.runInTx(ctx, "create_code", func(st Store) error {
			if err := st.CreateCode(ctx, code); err != nil {
				return err
			}
			return s.emit(ctx, st, models.EventCodeCreated, code.ID.String(), code, now)
		})
		if err == nil {
			s.logAudit(ctx, models.EventCodeCreated,
				"code_id", code.ID,
				"owner_id", ownerID,
			)
			s.incCodesCreated()
			return code, nil
		}
		if !errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, wrapStoreErr(err, "failed to create referral code")
		}
		if req.CustomCode != "" {
			return nil, dErrors.New(dErrors.CodeCodeTaken, "referral code is already taken")
		}
		if s.logger != nil {
			s.logger.WarnContext(ctx, "referral code collision, regenerating",
				"attempt", attempt+1,
			)
		}
	}

	return nil, dErrors.New(dErrors.CodeCodeGenerationExhausted, "could not allocate a unique referral code")
}

// UpdateCode applies an owner's partial policy update.
// A code owned by someone else is reported as NotFound.
func (s *Service) UpdateCode(ctx context.Context, ownerID id.UserID, codeID id.CodeID, patch models.CodePatch) (*models.ReferralCode, error) {
	if patch.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one field must be provided")
	}
	now := requestcontext.Now(ctx)

	var updated *models.ReferralCode
	err := s.runInTx(ctx, "update_code", func(st Store) error {
		code, err := s.lockOwnedCode(ctx, st, ownerID, codeID)
		if err != nil {
			return err
		}
		if err := code.CanApply(patch); err != nil {
			return asValidation(err)
		}
		code.ApplyPatch(patch, now)
		if err := st.UpdateCode(ctx, code); err != nil {
			return wrapStoreErr(err, "failed to update referral code")
		}
		if err := s.emit(ctx, st, models.EventCodeUpdated, code.ID.String(), code, now); err != nil {
			return err
		}
		updated = code
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, models.EventCodeUpdated,
		"code_id", codeID,
		"owner_id", ownerID,
	)
	return updated, nil
}

// DeleteCode removes a code without history. A code that has tracking rows is
// only retired through archival, which keeps the rows for analytics and is
// refused while any of them is still pending.
func (s *Service) DeleteCode(ctx context.Context, ownerID id.UserID, codeID id.CodeID, archive bool) error {
	now := requestcontext.Now(ctx)

	var event models.EventType
	err := s.runInTx(ctx, "delete_code", func(st Store) error {
		code, err := s.lockOwnedCode(ctx, st, ownerID, codeID)
		if err != nil {
			return err
		}
		total, pending, err := st.CountTrackingsByCode(ctx, codeID)
		if err != nil {
			return wrapStoreErr(err, "failed to inspect referral history")
		}

		if total == 0 {
			if err := st.DeleteCode(ctx, codeID); err != nil {
				return wrapStoreErr(err, "failed to delete referral code")
			}
			event = models.EventCodeDeleted
			return s.emit(ctx, st, event, codeID.String(), code, now)
		}
		if !archive {
			return dErrors.New(dErrors.CodeHasReferralHistory, "referral code has history; request archival instead")
		}
		if pending > 0 {
			return dErrors.New(dErrors.CodeHasPendingReferrals, "referral code has pending referrals; finalize or cancel them first")
		}
		if code.IsArchived() {
			event = models.EventCodeArchived
			return nil
		}
		code.ApplyArchival(now)
		if err := st.UpdateCode(ctx, code); err != nil {
			return wrapStoreErr(err, "failed to archive referral code")
		}
		event = models.EventCodeArchived
		return s.emit(ctx, st, event, codeID.String(), code, now)
	})
	if err != nil {
		return err
	}

	s.logAudit(ctx, event,
		"code_id", codeID,
		"owner_id", ownerID,
	)
	return nil
}

// ResolveForRedemption looks a code up case-insensitively.
// Archived codes are invisible to redemption.
func (s *Service) ResolveForRedemption(ctx context.Context, value string) (*models.ReferralCode, error) {
	value = models.NormalizeCode(value)
	if value == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "code is required")
	}
	code, err := s.store.FindCodeByValue(ctx, value)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeCodeNotFound, "referral code not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve referral code")
	}
	if code.IsArchived() {
		return nil, dErrors.New(dErrors.CodeCodeNotFound, "referral code not found")
	}
	return code, nil
}

// GetCode returns one of ownerID's codes.
func (s *Service) GetCode(ctx context.Context, ownerID id.UserID, codeID id.CodeID) (*models.ReferralCode, error) {
	code, err := s.store.FindCodeByID(ctx, codeID)
	if err != nil {
		return nil, wrapCodeErr(err)
	}
	if !code.IsOwnedBy(ownerID) {
		return nil, dErrors.New(dErrors.CodeNotFound, "referral code not found")
	}
	return code, nil
}

// ListCodes returns ownerID's codes, newest first.
func (s *Service) ListCodes(ctx context.Context, ownerID id.UserID, includeArchived bool) ([]*models.ReferralCode, error) {
	codes, err := s.store.ListCodesByOwner(ctx, ownerID, includeArchived)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list referral codes")
	}
	return codes, nil
}

func (s *Service) lockOwnedCode(ctx context.Context, st Store, ownerID id.UserID, codeID id.CodeID) (*models.ReferralCode, error) {
	code, err := st.LockCode(ctx, codeID)
	if err != nil {
		return nil, wrapCodeErr(err)
	}
	if !code.IsOwnedBy(ownerID) {
		return nil, dErrors.New(dErrors.CodeNotFound, "referral code not found")
	}
	return code, nil
}
