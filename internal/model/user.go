// Package model defines the data structures used throughout the application.
package model

import "strings"

// UserInfo is the profile an identity provider vouches for.
//
// It travels in two places: the signed session token (as the caller's claims)
// and the users table (upserted on Sub at every sign-in). Sub is the provider's
// stable subject identifier; everything else may change between sign-ins.
type UserInfo struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
	Locale     string `json:"locale"`
}

// Name returns the display name.
//
// Hungarian puts the family name first, everyone else gets "given family".
func (u UserInfo) Name() string {
	names := []string{u.GivenName, u.FamilyName}
	if u.Locale == "hu" {
		names[0], names[1] = names[1], names[0]
	}
	return strings.TrimSpace(strings.Join(names, " "))
}

// User is a row of the users table.
//
// WHY int64 IDs?
// Users, sections and links all use database-generated integer keys. The
// frontend addresses them as GraphQL Int values, and integer keys keep the
// ownership joins (sections.user_id, links.section_id) cheap.
type User struct {
	ID int64 `json:"id"`
	UserInfo
	Background BoardBackground `json:"background"`
}

// Profile is what whoAmI returns: the session claims plus the internal id.
type Profile struct {
	ID         int64  `json:"id"`
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	Picture    string `json:"picture"`
	Locale     string `json:"locale"`
	Name       string `json:"name"`
}

// NewProfile flattens an identity into the shape the API exposes.
func NewProfile(id int64, info UserInfo) Profile {
	return Profile{
		ID:         id,
		Sub:        info.Sub,
		Email:      info.Email,
		GivenName:  info.GivenName,
		FamilyName: info.FamilyName,
		Picture:    info.Picture,
		Locale:     info.Locale,
		Name:       info.Name(),
	}
}
