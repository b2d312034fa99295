// internal/models/profile.go
package models

import "github.com/google/uuid"

// Profile is the public part of a user, stored in users_profile.
type Profile struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName *string   `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
	Bio         *string   `json:"bio"`
	Website     *string   `json:"website"`
	TotalXP     int       `json:"total_xp"`
}

// ProfileUpdate carries the editable fields of a profile. Nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=80"`
	AvatarURL   *string `json:"avatar_url" validate:"omitempty,url"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
	Website     *string `json:"website" validate:"omitempty,url"`
}

// Apply copies every non-nil field of u onto p.
func (u ProfileUpdate) Apply(p *Profile) {
	if u.DisplayName != nil {
		p.DisplayName = u.DisplayName
	}
	if u.AvatarURL != nil {
		p.AvatarURL = u.AvatarURL
	}
	if u.Bio != nil {
		p.Bio = u.Bio
	}
	if u.Website != nil {
		p.Website = u.Website
	}
}
