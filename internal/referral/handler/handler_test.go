package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"referrals/internal/referral/handler/mocks"
	"referrals/internal/referral/models"
	id "referrals/pkg/domain"
	dErrors "referrals/pkg/domain-errors"
	"referrals/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

const (
	testUserHeader    = "X-Test-User"
	testServiceHeader = "X-Test-Service"
)

type ReferralHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  http.Handler
	owner   id.UserID
}

func TestReferralHandlerSuite(t *testing.T) {
	suite.Run(t, new(ReferralHandlerSuite))
}

func (s *ReferralHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.owner = id.UserID(uuid.New())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(s.service, logger, "https://app.example.com/signup")

	r := chi.NewRouter()
	h.Register(r, fakeUserAuth, fakeServiceAuth)
	s.router = r
}

// fakeUserAuth trusts a test header instead of a bearer token.
func fakeUserAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get(testUserHeader); raw != "" {
			r = testutil.AsUser(r, raw)
		}
		next.ServeHTTP(w, r)
	})
}

func fakeServiceAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(testServiceHeader) == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, testutil.AsTrustedService(r))
	})
}

func (s *ReferralHandlerSuite) do(method, path string, body any, asUser bool) *httptest.ResponseRecorder {
	req := testutil.NewRequest(s.T(), method, path, body)
	if asUser {
		req.Header.Set(testUserHeader, s.owner.String())
	} else {
		req.Header.Set(testServiceHeader, "yes")
	}
	return testutil.Serve(s.router, req)
}

func (s *ReferralHandlerSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v))
}

func (s *ReferralHandlerSuite) sampleCode() *models.ReferralCode {
	maxUses := 3
	return &models.ReferralCode{
		ID:                id.NewCodeID(),
		OwnerID:           s.owner,
		Value:             "ABCD2345",
		PointsPerReferral: 100,
		MaxUses:           &maxUses,
		CurrentUses:       1,
		IsActive:          true,
		CreatedAt:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func (s *ReferralHandlerSuite) TestCreateCode() {
	s.Run("returns 201 with link and remaining uses", func() {
		code := s.sampleCode()
		s.service.EXPECT().
			CreateCode(gomock.Any(), s.owner, &models.CreateCodeRequest{PointsPerReferral: 100, CustomCode: "spring-promo"}).
			Return(code, nil)

		rec := s.do(http.MethodPost, "/v1/referral-codes", map[string]any{
			"points_per_referral": 100,
			"custom_code":         "  spring-promo ",
		}, true)

		s.Equal(http.StatusCreated, rec.Code)
		var resp map[string]any
		s.decode(rec, &resp)
		s.Equal("ABCD2345", resp["code"])
		s.Equal("https://app.example.com/signup?ref=ABCD2345", resp["referral_link"])
		s.EqualValues(2, resp["remaining_uses"])
	})

	s.Run("validation failure never reaches the service", func() {
		rec := s.do(http.MethodPost, "/v1/referral-codes", map[string]any{"points_per_referral": 0}, true)
		testutil.AssertError(s.T(), rec, http.StatusBadRequest, "validation_error")
	})

	s.Run("malformed JSON", func() {
		rec := s.do(http.MethodPost, "/v1/referral-codes", `{"points_per_referral":`, true)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("missing user is unauthorized", func() {
		req := httptest.NewRequest(http.MethodPost, "/v1/referral-codes", strings.NewReader(`{"points_per_referral":1}`))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("taken custom code maps to 409", func() {
		s.service.EXPECT().CreateCode(gomock.Any(), s.owner, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeCodeTaken, "code already taken"))
		rec := s.do(http.MethodPost, "/v1/referral-codes", map[string]any{
			"points_per_referral": 5,
			"custom_code":         "TAKEN1",
		}, true)
		testutil.AssertError(s.T(), rec, http.StatusConflict, "code_taken")
	})

	s.Run("generation exhausted maps to 503", func() {
		s.service.EXPECT().CreateCode(gomock.Any(), s.owner, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeCodeGenerationExhausted, "no unique code"))
		rec := s.do(http.MethodPost, "/v1/referral-codes", map[string]any{"points_per_referral": 5}, true)
		s.Equal(http.StatusServiceUnavailable, rec.Code)
	})
}

func (s *ReferralHandlerSuite) TestListAndGetCodes() {
	code := s.sampleCode()

	s.Run("list passes include_archived", func() {
		s.service.EXPECT().ListCodes(gomock.Any(), s.owner, true).Return([]*models.ReferralCode{code}, nil)
		rec := s.do(http.MethodGet, "/v1/referral-codes?include_archived=true", nil, true)
		s.Equal(http.StatusOK, rec.Code)
		var resp CodeListResponse
		s.decode(rec, &resp)
		s.Len(resp.Codes, 1)
	})

	s.Run("bad include_archived", func() {
		rec := s.do(http.MethodGet, "/v1/referral-codes?include_archived=maybe", nil, true)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("get by id", func() {
		s.service.EXPECT().GetCode(gomock.Any(), s.owner, code.ID).Return(code, nil)
		rec := s.do(http.MethodGet, "/v1/referral-codes/"+code.ID.String(), nil, true)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("get of a foreign code is 404", func() {
		other := id.NewCodeID()
		s.service.EXPECT().GetCode(gomock.Any(), s.owner, other).
			Return(nil, dErrors.New(dErrors.CodeCodeNotFound, "referral code not found"))
		rec := s.do(http.MethodGet, "/v1/referral-codes/"+other.String(), nil, true)
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("malformed id is 400", func() {
		rec := s.do(http.MethodGet, "/v1/referral-codes/not-a-uuid", nil, true)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *ReferralHandlerSuite) TestCodeQR() {
	code := s.sampleCode()
	s.service.EXPECT().GetCode(gomock.Any(), s.owner, code.ID).Return(code, nil)

	rec := s.do(http.MethodGet, "/v1/referral-codes/"+code.ID.String()+"/qr", nil, true)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("image/png", rec.Header().Get("Content-Type"))
	s.True(bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func (s *ReferralHandlerSuite) TestUpdateCode() {
	code := s.sampleCode()

	s.Run("passes the patch through", func() {
		s.service.EXPECT().UpdateCode(gomock.Any(), s.owner, code.ID, gomock.Any()).
			DoAndReturn(func(_ any, _ id.UserID, _ id.CodeID, patch models.CodePatch) (*models.ReferralCode, error) {
				s.True(patch.ClearExpiresAt)
				s.Require().NotNil(patch.IsActive)
				s.False(*patch.IsActive)
				return code, nil
			})
		rec := s.do(http.MethodPatch, "/v1/referral-codes/"+code.ID.String(), map[string]any{
			"is_active":        false,
			"clear_expires_at": true,
		}, true)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("empty patch is rejected", func() {
		rec := s.do(http.MethodPatch, "/v1/referral-codes/"+code.ID.String(), map[string]any{}, true)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *ReferralHandlerSuite) TestDeleteCode() {
	codeID := id.NewCodeID()

	s.Run("archive flag", func() {
		s.service.EXPECT().DeleteCode(gomock.Any(), s.owner, codeID, true).Return(nil)
		rec := s.do(http.MethodDelete, "/v1/referral-codes/"+codeID.String()+"?archive=true", nil, true)
		s.Equal(http.StatusNoContent, rec.Code)
	})

	s.Run("history without archive is 409", func() {
		s.service.EXPECT().DeleteCode(gomock.Any(), s.owner, codeID, false).
			Return(dErrors.New(dErrors.CodeHasReferralHistory, "code has referral history"))
		rec := s.do(http.MethodDelete, "/v1/referral-codes/"+codeID.String(), nil, true)
		testutil.AssertError(s.T(), rec, http.StatusConflict, "has_referral_history")
	})
}

func (s *ReferralHandlerSuite) TestRedeem() {
	referred := id.UserID(uuid.New())

	s.Run("creates a pending referral", func() {
		tracking := &models.ReferralTracking{
			ID:             id.NewTrackingID(),
			ReferrerID:     s.owner,
			ReferredUserID: referred,
			Status:         models.TrackingStatusPending,
		}
		s.service.EXPECT().Redeem(gomock.Any(), "abcd2345", referred).Return(tracking, nil)

		rec := s.do(http.MethodPost, "/v1/referrals/redeem", map[string]any{
			"code":             " abcd2345 ",
			"referred_user_id": referred.String(),
		}, false)

		testutil.RequireStatus(s.T(), rec, http.StatusCreated)
		resp := testutil.DecodeJSON[models.ReferralTracking](s.T(), rec)
		s.Equal(models.TrackingStatusPending, resp.Status)
	})

	s.Run("rejection reasons map to statuses", func() {
		cases := map[dErrors.Code]int{
			dErrors.CodeCodeNotFound:      http.StatusNotFound,
			dErrors.CodeCodeInactive:      http.StatusConflict,
			dErrors.CodeCodeExpired:       http.StatusGone,
			dErrors.CodeUsageLimitReached: http.StatusConflict,
			dErrors.CodeAlreadyReferred:   http.StatusConflict,
			dErrors.CodeSelfReferral:      http.StatusUnprocessableEntity,
		}
		for code, status := range cases {
			s.service.EXPECT().Redeem(gomock.Any(), "X", referred).Return(nil, dErrors.New(code, "rejected"))
			rec := s.do(http.MethodPost, "/v1/referrals/redeem", map[string]any{
				"code":             "X",
				"referred_user_id": referred.String(),
			}, false)
			testutil.AssertError(s.T(), rec, status, string(code))
		}
	})

	s.Run("malformed referred user id", func() {
		rec := s.do(http.MethodPost, "/v1/referrals/redeem", map[string]any{
			"code":             "X",
			"referred_user_id": "bob",
		}, false)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("requires the service token", func() {
		req := httptest.NewRequest(http.MethodPost, "/v1/referrals/redeem", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}

func (s *ReferralHandlerSuite) TestFinalizeAndCancel() {
	trackingID := id.NewTrackingID()

	s.Run("finalize", func() {
		s.service.EXPECT().Finalize(gomock.Any(), trackingID).Return(&models.ReferralTracking{
			ID:            trackingID,
			Status:        models.TrackingStatusCompleted,
			PointsAwarded: 100,
		}, nil)
		rec := s.do(http.MethodPost, "/v1/referrals/"+trackingID.String()+"/finalize", nil, false)
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"points_awarded":100`)
	})

	s.Run("finalize twice is not pending", func() {
		s.service.EXPECT().Finalize(gomock.Any(), trackingID).
			Return(nil, dErrors.New(dErrors.CodeNotPending, "referral is not pending"))
		rec := s.do(http.MethodPost, "/v1/referrals/"+trackingID.String()+"/finalize", nil, false)
		s.Equal(http.StatusConflict, rec.Code)
	})

	s.Run("cancel requires a reason", func() {
		rec := s.do(http.MethodPost, "/v1/referrals/"+trackingID.String()+"/cancel", map[string]any{"reason": " "}, false)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("cancel", func() {
		s.service.EXPECT().Cancel(gomock.Any(), trackingID, "fraud").Return(&models.ReferralTracking{
			ID:     trackingID,
			Status: models.TrackingStatusCancelled,
		}, nil)
		rec := s.do(http.MethodPost, "/v1/referrals/"+trackingID.String()+"/cancel", map[string]any{"reason": "fraud"}, false)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("get tracking", func() {
		s.service.EXPECT().GetTracking(gomock.Any(), trackingID).Return(&models.ReferralTracking{ID: trackingID}, nil)
		rec := s.do(http.MethodGet, "/v1/referrals/"+trackingID.String(), nil, false)
		s.Equal(http.StatusOK, rec.Code)
	})
}

func (s *ReferralHandlerSuite) TestAnalytics() {
	s.Run("owner summary with since", func() {
		since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		s.service.EXPECT().OwnerSummary(gomock.Any(), s.owner, gomock.Any()).
			DoAndReturn(func(_ any, ownerID id.UserID, got *time.Time) (*models.OwnerSummary, error) {
				s.Require().NotNil(got)
				s.True(got.Equal(since))
				return &models.OwnerSummary{OwnerID: ownerID, TotalReferrals: 4, SuccessfulReferrals: 1, ConversionRate: 25}, nil
			})
		rec := s.do(http.MethodGet, "/v1/analytics/owners/"+s.owner.String()+"?since=2026-03-01T00:00:00Z", nil, true)
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"conversion_rate":25`)
	})

	s.Run("another owner's summary is forbidden", func() {
		rec := s.do(http.MethodGet, "/v1/analytics/owners/"+uuid.NewString(), nil, true)
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("bad since", func() {
		rec := s.do(http.MethodGet, "/v1/analytics/owners/"+s.owner.String()+"?since=yesterday", nil, true)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("top performers defaults limit to the service", func() {
		s.service.EXPECT().TopPerformers(gomock.Any(), 0, nil).Return(nil, nil)
		rec := s.do(http.MethodGet, "/v1/analytics/top", nil, true)
		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"performers":[]}`, rec.Body.String())
	})

	s.Run("top performers limit out of range", func() {
		s.service.EXPECT().TopPerformers(gomock.Any(), 500, nil).
			Return(nil, dErrors.New(dErrors.CodeValidation, "limit must be between 1 and 100"))
		rec := s.do(http.MethodGet, "/v1/analytics/top?limit=500", nil, true)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("non-numeric limit", func() {
		rec := s.do(http.MethodGet, "/v1/analytics/top?limit=ten", nil, true)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("points balance", func() {
		s.service.EXPECT().PointsBalance(gomock.Any(), s.owner).
			Return(&models.PointsAccount{UserID: s.owner, TotalPoints: 300}, nil)
		rec := s.do(http.MethodGet, "/v1/points/me", nil, true)
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"total_points":300`)
	})

	s.Run("list referrals", func() {
		s.service.EXPECT().ListReferrals(gomock.Any(), s.owner).Return(nil, nil)
		rec := s.do(http.MethodGet, "/v1/referrals", nil, true)
		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"referrals":[]}`, rec.Body.String())
	})
}

func TestReferralLink(t *testing.T) {
	h := New(nil, nil, "https://app.example.com/signup?utm_source=share")
	got := h.ReferralLink("AB CD")
	if got != "https://app.example.com/signup?ref=AB+CD&utm_source=share" {
		t.Fatalf("unexpected link %q", got)
	}
}

func TestRateLimitOptionsWrapRoutes(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)

	var limited []string
	deny := func(name string) func(http.Handler) http.Handler {
		return func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				limited = append(limited, name+" "+r.Method)
				w.WriteHeader(http.StatusTooManyRequests)
			})
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(svc, logger, "https://app.example.com/signup",
		WithWriteLimit(deny("writes")),
		WithRedeemLimit(deny("redeem")),
	)
	r := chi.NewRouter()
	h.Register(r, fakeUserAuth, fakeServiceAuth)

	owner := uuid.NewString()
	send := func(method, path string, service bool) int {
		req := httptest.NewRequest(method, path, strings.NewReader(`{}`))
		if service {
			req.Header.Set(testServiceHeader, "yes")
		} else {
			req.Header.Set(testUserHeader, owner)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	codeID := id.NewCodeID().String()
	if got := send(http.MethodPost, "/v1/referral-codes", false); got != http.StatusTooManyRequests {
		t.Fatalf("create: got %d", got)
	}
	if got := send(http.MethodPatch, "/v1/referral-codes/"+codeID, false); got != http.StatusTooManyRequests {
		t.Fatalf("update: got %d", got)
	}
	if got := send(http.MethodDelete, "/v1/referral-codes/"+codeID, false); got != http.StatusTooManyRequests {
		t.Fatalf("delete: got %d", got)
	}
	if got := send(http.MethodPost, "/v1/referrals/redeem", true); got != http.StatusTooManyRequests {
		t.Fatalf("redeem: got %d", got)
	}

	want := []string{"writes POST", "writes PATCH", "writes DELETE", "redeem POST"}
	if strings.Join(limited, ",") != strings.Join(want, ",") {
		t.Fatalf("limited routes = %v, want %v", limited, want)
	}
}
