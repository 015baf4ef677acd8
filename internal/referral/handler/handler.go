package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"referrals/internal/referral/models"
	id "referrals/pkg/domain"
	dErrors "referrals/pkg/domain-errors"
	"referrals/pkg/platform/httputil"
	"referrals/pkg/requestcontext"
)

// Service defines the referral engine operations exposed over HTTP.
type Service interface {
	CreateCode(ctx context.Context, ownerID id.UserID, req *models.CreateCodeRequest) (*models.ReferralCode, error)
	UpdateCode(ctx context.Context, ownerID id.UserID, codeID id.CodeID, patch models.CodePatch) (*models.ReferralCode, error)
	DeleteCode(ctx context.Context, ownerID id.UserID, codeID id.CodeID, archive bool) error
	GetCode(ctx context.Context, ownerID id.UserID, codeID id.CodeID) (*models.ReferralCode, error)
	ListCodes(ctx context.Context, ownerID id.UserID, includeArchived bool) ([]*models.ReferralCode, error)

	Redeem(ctx context.Context, value string, referredUserID id.UserID) (*models.ReferralTracking, error)
	Finalize(ctx context.Context, trackingID id.TrackingID) (*models.ReferralTracking, error)
	Cancel(ctx context.Context, trackingID id.TrackingID, reason string) (*models.ReferralTracking, error)
	GetTracking(ctx context.Context, trackingID id.TrackingID) (*models.ReferralTracking, error)
	ListReferrals(ctx context.Context, referrerID id.UserID) ([]*models.ReferralTracking, error)

	OwnerSummary(ctx context.Context, ownerID id.UserID, since *time.Time) (*models.OwnerSummary, error)
	TopPerformers(ctx context.Context, limit int, since *time.Time) ([]models.OwnerSummary, error)
	PointsBalance(ctx context.Context, userID id.UserID) (*models.PointsAccount, error)
}

const qrSize = 256

// Handler wires referral endpoints to the referral service.
type Handler struct {
	service     Service
	logger      *slog.Logger
	linkBaseURL string
	limitWrites func(http.Handler) http.Handler
	limitRedeem func(http.Handler) http.Handler
}

// Option configures a Handler.
type Option func(*Handler)

// WithWriteLimit throttles code creation, update and deletion.
func WithWriteLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		if mw != nil {
			h.limitWrites = mw
		}
	}
}

// WithRedeemLimit throttles redemption attempts.
func WithRedeemLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		if mw != nil {
			h.limitRedeem = mw
		}
	}
}

// New constructs a referral handler. linkBaseURL is the signup page that
// shareable links and QR codes point at; the code is appended as ?ref=.
func New(service Service, logger *slog.Logger, linkBaseURL string, opts ...Option) *Handler {
	h := &Handler{
		service:     service,
		logger:      logger,
		linkBaseURL: linkBaseURL,
		limitWrites: passthrough,
		limitRedeem: passthrough,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func passthrough(next http.Handler) http.Handler { return next }

// Register mounts referral endpoints. requireUser authenticates end users;
// requireService authenticates trusted collaborators (signup, billing).
func (h *Handler) Register(r chi.Router, requireUser, requireService func(http.Handler) http.Handler) {
	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.With(h.limitWrites).Post("/referral-codes", h.HandleCreateCode)
			r.Get("/referral-codes", h.HandleListCodes)
			r.Get("/referral-codes/{id}", h.HandleGetCode)
			r.Get("/referral-codes/{id}/qr", h.HandleCodeQR)
			r.With(h.limitWrites).Patch("/referral-codes/{id}", h.HandleUpdateCode)
			r.With(h.limitWrites).Delete("/referral-codes/{id}", h.HandleDeleteCode)
			r.Get("/referrals", h.HandleListReferrals)
			r.Get("/analytics/owners/{ownerId}", h.HandleOwnerSummary)
			r.Get("/analytics/top", h.HandleTopPerformers)
			r.Get("/points/me", h.HandlePointsBalance)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireService)
			r.With(h.limitRedeem).Post("/referrals/redeem", h.HandleRedeem)
			r.Get("/referrals/{id}", h.HandleGetTracking)
			r.Post("/referrals/{id}/finalize", h.HandleFinalize)
			r.Post("/referrals/{id}/cancel", h.HandleCancel)
		})
	})
}

// ReferralLink builds the shareable signup link for a code.
func (h *Handler) ReferralLink(code string) string {
	u, err := url.Parse(h.linkBaseURL)
	if err != nil {
		return h.linkBaseURL + "?ref=" + url.QueryEscape(code)
	}
	q := u.Query()
	q.Set("ref", code)
	u.RawQuery = q.Encode()
	return u.String()
}

// HandleCreateCode handles POST /v1/referral-codes.
func (h *Handler) HandleCreateCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	ownerID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.CreateCodeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	code, err := h.service.CreateCode(ctx, ownerID, req)
	if err != nil {
		h.logFailure(ctx, "create referral code failed", err, "owner_id", ownerID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, h.toCodeResponse(code))
}

// HandleListCodes handles GET /v1/referral-codes?include_archived=true.
func (h *Handler) HandleListCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	includeArchived, err := parseBoolQuery(r, "include_archived")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	codes, err := h.service.ListCodes(ctx, ownerID, includeArchived)
	if err != nil {
		h.logFailure(ctx, "list referral codes failed", err, "owner_id", ownerID)
		httputil.WriteError(w, err)
		return
	}

	resp := CodeListResponse{Codes: make([]CodeResponse, 0, len(codes))}
	for _, c := range codes {
		resp.Codes = append(resp.Codes, h.toCodeResponse(c))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleGetCode handles GET /v1/referral-codes/{id}.
func (h *Handler) HandleGetCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, codeID, ok := h.ownedCodeParams(w, r)
	if !ok {
		return
	}

	code, err := h.service.GetCode(ctx, ownerID, codeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.toCodeResponse(code))
}

// HandleCodeQR handles GET /v1/referral-codes/{id}/qr and returns a PNG of the referral link.
func (h *Handler) HandleCodeQR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, codeID, ok := h.ownedCodeParams(w, r)
	if !ok {
		return
	}

	code, err := h.service.GetCode(ctx, ownerID, codeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	png, err := qrcode.Encode(h.ReferralLink(code.Value), qrcode.Medium, qrSize)
	if err != nil {
		h.logFailure(ctx, "render referral qr failed", err, "code_id", codeID)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render qr code"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// HandleUpdateCode handles PATCH /v1/referral-codes/{id}.
func (h *Handler) HandleUpdateCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	ownerID, codeID, ok := h.ownedCodeParams(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.UpdateCodeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	code, err := h.service.UpdateCode(ctx, ownerID, codeID, req.ToPatch())
	if err != nil {
		h.logFailure(ctx, "update referral code failed", err, "code_id", codeID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.toCodeResponse(code))
}

// HandleDeleteCode handles DELETE /v1/referral-codes/{id}?archive=true.
func (h *Handler) HandleDeleteCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, codeID, ok := h.ownedCodeParams(w, r)
	if !ok {
		return
	}

	archive, err := parseBoolQuery(r, "archive")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.DeleteCode(ctx, ownerID, codeID, archive); err != nil {
		h.logFailure(ctx, "delete referral code failed", err, "code_id", codeID, "archive", archive)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListReferrals handles GET /v1/referrals: the caller's referrals as referrer.
func (h *Handler) HandleListReferrals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	referrerID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	rows, err := h.service.ListReferrals(ctx, referrerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if rows == nil {
		rows = []*models.ReferralTracking{}
	}
	httputil.WriteJSON(w, http.StatusOK, TrackingListResponse{Referrals: rows})
}

// HandleRedeem handles POST /v1/referrals/redeem.
func (h *Handler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RedeemRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	referredUserID, err := id.ParseUserID(req.ReferredUserID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "referred_user_id must be a UUID"))
		return
	}

	tracking, err := h.service.Redeem(ctx, req.Code, referredUserID)
	if err != nil {
		// Rejections are expected business outcomes; only log unexpected failures loudly.
		if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
			h.logFailure(ctx, "redeem referral code failed", err, "referred_user_id", referredUserID)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tracking)
}

// HandleGetTracking handles GET /v1/referrals/{id}.
func (h *Handler) HandleGetTracking(w http.ResponseWriter, r *http.Request) {
	trackingID, ok := trackingParam(w, r)
	if !ok {
		return
	}
	tracking, err := h.service.GetTracking(r.Context(), trackingID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tracking)
}

// HandleFinalize handles POST /v1/referrals/{id}/finalize.
func (h *Handler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trackingID, ok := trackingParam(w, r)
	if !ok {
		return
	}

	tracking, err := h.service.Finalize(ctx, trackingID)
	if err != nil {
		h.logFailure(ctx, "finalize referral failed", err, "tracking_id", trackingID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tracking)
}

// HandleCancel handles POST /v1/referrals/{id}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	trackingID, ok := trackingParam(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.CancelRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tracking, err := h.service.Cancel(ctx, trackingID, req.Reason)
	if err != nil {
		h.logFailure(ctx, "cancel referral failed", err, "tracking_id", trackingID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tracking)
}

// HandleOwnerSummary handles GET /v1/analytics/owners/{ownerId}?since=RFC3339.
// Owners may only read their own summary.
func (h *Handler) HandleOwnerSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	ownerID, err := id.ParseUserID(chi.URLParam(r, "ownerId"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "owner id must be a UUID"))
		return
	}
	if ownerID != callerID {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "cannot read another owner's analytics"))
		return
	}

	since, err := parseSince(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	summary, err := h.service.OwnerSummary(ctx, ownerID, since)
	if err != nil {
		h.logFailure(ctx, "owner summary failed", err, "owner_id", ownerID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

// HandleTopPerformers handles GET /v1/analytics/top?limit=N&since=RFC3339.
func (h *Handler) HandleTopPerformers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be an integer"))
			return
		}
		limit = n
	}
	since, err := parseSince(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	top, err := h.service.TopPerformers(ctx, limit, since)
	if err != nil {
		h.logFailure(ctx, "top performers failed", err)
		httputil.WriteError(w, err)
		return
	}
	if top == nil {
		top = []models.OwnerSummary{}
	}
	httputil.WriteJSON(w, http.StatusOK, TopPerformersResponse{Performers: top})
}

// HandlePointsBalance handles GET /v1/points/me.
func (h *Handler) HandlePointsBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	account, err := h.service.PointsBalance(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, account)
}

func (h *Handler) requireUserID(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		// RequireAuth should have rejected the request already.
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

func (h *Handler) ownedCodeParams(w http.ResponseWriter, r *http.Request) (id.UserID, id.CodeID, bool) {
	ownerID, ok := h.requireUserID(w, r)
	if !ok {
		return id.UserID{}, id.CodeID{}, false
	}
	codeID, err := id.ParseCodeID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "code id must be a UUID"))
		return id.UserID{}, id.CodeID{}, false
	}
	return ownerID, codeID, true
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error, attrs ...any) {
	args := append([]any{"error", err, "request_id", requestcontext.RequestID(ctx)}, attrs...)
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, args...)
		return
	}
	h.logger.WarnContext(ctx, msg, args...)
}

func trackingParam(w http.ResponseWriter, r *http.Request) (id.TrackingID, bool) {
	trackingID, err := id.ParseTrackingID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "referral id must be a UUID"))
		return id.TrackingID{}, false
	}
	return trackingID, true
}

func parseSince(r *http.Request) (*time.Time, error) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "since must be an RFC3339 timestamp")
	}
	return &t, nil
}

func parseBoolQuery(r *http.Request, key string) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, dErrors.New(dErrors.CodeValidation, key+" must be true or false")
	}
	return v, nil
}
