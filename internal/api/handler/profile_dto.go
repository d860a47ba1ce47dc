package handler

import (
	"time"

	"github.com/yourvoice/identity/internal/identity"
)

const timestampLayout = "2006-01-02T15:04:05Z"

type profileResponse struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	DisplayName *string `json:"displayName,omitempty"`
	UniqueID    *string `json:"uniqueId,omitempty"`
	IsAnonymous bool    `json:"isAnonymous"`
	Role        string  `json:"role"`
	IsBlocked   bool    `json:"isBlocked"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

func toProfileResponse(p *identity.Profile) profileResponse {
	return profileResponse{
		ID:          p.ID.String(),
		Email:       p.Email,
		DisplayName: p.DisplayName,
		UniqueID:    p.UniqueID,
		IsAnonymous: p.IsAnonymous,
		Role:        p.Role,
		IsBlocked:   p.IsBlocked,
		AvatarURL:   p.AvatarURL,
		CreatedAt:   p.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt:   p.UpdatedAt.UTC().Format(timestampLayout),
	}
}

func formatExpiry(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timestampLayout)
	return &s
}
