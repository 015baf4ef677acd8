package handler

import "referrals/internal/referral/models"

// CodeResponse is a referral code plus its shareable link.
type CodeResponse struct {
	*models.ReferralCode
	RemainingUses *int   `json:"remaining_uses"`
	ReferralLink  string `json:"referral_link"`
}

type CodeListResponse struct {
	Codes []CodeResponse `json:"codes"`
}

type TrackingListResponse struct {
	Referrals []*models.ReferralTracking `json:"referrals"`
}

type TopPerformersResponse struct {
	Performers []models.OwnerSummary `json:"performers"`
}

func (h *Handler) toCodeResponse(c *models.ReferralCode) CodeResponse {
	return CodeResponse{
		ReferralCode:  c,
		RemainingUses: c.RemainingUses(),
		ReferralLink:  h.ReferralLink(c.Value),
	}
}
