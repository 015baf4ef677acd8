package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"referrals/internal/referral/models"
	"referrals/internal/referral/policy"
	id "referrals/pkg/domain"
	dErrors "referrals/pkg/domain-errors"
	"referrals/pkg/platform/sentinel"
	"referrals/pkg/requestcontext"
)

// Redeem records that referredUserID signed up through code.
//
// Rejections are evaluated in a fixed order: self-referral, an existing
// redemption of this code by the same user, then the code's own policy
// (inactive, expired, usage limit). The checks run once against a plain read
// and again on the locked row inside the transaction; only the locked pass is
// authoritative. The usage counter is bumped with a conditional update, so
// concurrent callers can never push it past maxUses.
func (s *Service) Redeem(ctx context.Context, value string, referredUserID id.UserID) (*models.ReferralTracking, error) {
	ctx, span := s.tracer.Start(ctx, "referral.redeem")
	defer span.End()
	start := time.Now()
	defer s.observeDuration("redeem", start)

	tracking, err := s.redeem(ctx, value, referredUserID)
	s.observeRedemption(err)
	if err != nil {
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}
	span.SetAttributes(
		attribute.String("referral.tracking_id", tracking.ID.String()),
		attribute.String("referral.code_id", tracking.ReferralCodeID.String()),
	)
	return tracking, nil
}

func (s *Service) redeem(ctx context.Context, value string, referredUserID id.UserID) (*models.ReferralTracking, error) {
	if referredUserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "referred_user_id is required")
	}
	code, err := s.ResolveForRedemption(ctx, value)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if err := s.checkRedemption(ctx, s.store, code, referredUserID, now); err != nil {
		return nil, err
	}

	var tracking *models.ReferralTracking
	err = s.runInTx(ctx, "redeem", func(st Store) error {
		locked, err := st.LockCode(ctx, code.ID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeCodeNotFound, "referral code not found")
			}
			return wrapStoreErr(err, "failed to lock referral code")
		}
		if locked.IsArchived() {
			return dErrors.New(dErrors.CodeCodeNotFound, "referral code not found")
		}
		if err := s.checkRedemption(ctx, st, locked, referredUserID, now); err != nil {
			return err
		}

		if err := st.IncrementUsesIfAvailable(ctx, locked.ID); err != nil {
			if errors.Is(err, sentinel.ErrExhausted) {
				return dErrors.New(dErrors.CodeUsageLimitReached, "referral code has reached its usage limit")
			}
			return wrapStoreErr(err, "failed to reserve referral code use")
		}

		pending := models.NewPendingTracking(id.NewTrackingID(), locked, referredUserID, now)
		if err := st.CreateTracking(ctx, pending); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeAlreadyReferred, "user has already redeemed this referral code")
			}
			return wrapStoreErr(err, "failed to record referral")
		}
		if err := s.emit(ctx, st, models.EventReferralRedeemed, pending.ID.String(), pending, now); err != nil {
			return err
		}
		tracking = pending
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, models.EventReferralRedeemed,
		"tracking_id", tracking.ID,
		"code_id", tracking.ReferralCodeID,
		"referrer_id", tracking.ReferrerID,
		"referred_user_id", referredUserID,
	)
	return tracking, nil
}

func (s *Service) checkRedemption(ctx context.Context, st Store, code *models.ReferralCode, referredUserID id.UserID, now time.Time) error {
	if code.IsOwnedBy(referredUserID) {
		return dErrors.New(dErrors.CodeSelfReferral, "users cannot redeem their own referral code")
	}
	_, err := st.FindTrackingByPair(ctx, code.ID, referredUserID)
	switch {
	case err == nil:
		return dErrors.New(dErrors.CodeAlreadyReferred, "user has already redeemed this referral code")
	case !errors.Is(err, sentinel.ErrNotFound):
		return wrapStoreErr(err, "failed to check existing referral")
	}
	return policy.Check(code, now)
}

// Finalize completes a pending referral and awards the points captured at
// redemption. Any other state is NotPending; a second finalize of the same
// referral never awards twice.
func (s *Service) Finalize(ctx context.Context, trackingID id.TrackingID) (*models.ReferralTracking, error) {
	ctx, span := s.tracer.Start(ctx, "referral.finalize",
		traceAttr("referral.tracking_id", trackingID.String()))
	defer span.End()
	start := time.Now()
	defer s.observeDuration("finalize", start)

	now := requestcontext.Now(ctx)
	var completed *models.ReferralTracking
	err := s.runInTx(ctx, "finalize", func(st Store) error {
		t, err := st.CompleteIfPending(ctx, trackingID, now)
		if err != nil {
			return wrapTrackingErr(err)
		}
		if err := s.emit(ctx, st, models.EventReferralCompleted, t.ID.String(), t, now); err != nil {
			return err
		}
		completed = t
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}

	s.incFinalized(completed.PointsAwarded)
	s.logAudit(ctx, models.EventReferralCompleted,
		"tracking_id", trackingID,
		"referrer_id", completed.ReferrerID,
		"points_awarded", completed.PointsAwarded,
	)
	return completed, nil
}

// Cancel voids a pending referral and returns its use to the code, in one
// transaction. Terminal referrals are NotPending.
func (s *Service) Cancel(ctx context.Context, trackingID id.TrackingID, reason string) (*models.ReferralTracking, error) {
	ctx, span := s.tracer.Start(ctx, "referral.cancel",
		traceAttr("referral.tracking_id", trackingID.String()))
	defer span.End()
	start := time.Now()
	defer s.observeDuration("cancel", start)

	req := models.CancelRequest{Reason: reason}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var cancelled *models.ReferralTracking
	err := s.runInTx(ctx, "cancel", func(st Store) error {
		t, err := st.CancelIfPending(ctx, trackingID, req.Reason, now)
		if err != nil {
			return wrapTrackingErr(err)
		}
		if err := st.DecrementUses(ctx, t.ReferralCodeID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return wrapStoreErr(err, "failed to release referral code use")
		}
		if err := s.emit(ctx, st, models.EventReferralCancelled, t.ID.String(), t, now); err != nil {
			return err
		}
		cancelled = t
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}

	s.incCancelled()
	s.logAudit(ctx, models.EventReferralCancelled,
		"tracking_id", trackingID,
		"referrer_id", cancelled.ReferrerID,
		"reason", cancelled.CancelReason,
	)
	return cancelled, nil
}

// GetTracking returns one tracking row.
func (s *Service) GetTracking(ctx context.Context, trackingID id.TrackingID) (*models.ReferralTracking, error) {
	t, err := s.store.FindTracking(ctx, trackingID)
	if err != nil {
		return nil, wrapTrackingErr(err)
	}
	return t, nil
}

// ListReferrals returns the tracking rows where referrerID is the code owner,
// newest first.
func (s *Service) ListReferrals(ctx context.Context, referrerID id.UserID) ([]*models.ReferralTracking, error) {
	rows, err := s.store.ListTrackings(ctx, models.TrackingFilter{ReferrerID: &referrerID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list referrals")
	}
	return rows, nil
}
