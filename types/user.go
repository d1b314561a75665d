package types

import "time"

// Oauth platforms. Platform 2 has no interactive login flow of its own,
// so it is the only platform the bot facade may register users for.
const (
	PlatformDiscord = 1
	PlatformLine    = 2
)

// User account status values.
const (
	UserActive = 0
	UserBanned = 1
)

// User privacy levels for profile reads.
const (
	PrivacyPublic    = 0
	PrivacyGuildOnly = 1
	PrivacyPrivate   = 2
)

// User represents an account in the system. Users are created on first
// successful oauth login and never hard-deleted, only status-flagged.
type User struct {
	// ID is the internal numeric identifier. It is never exposed in API
	// responses; see ExternalUser.
	ID int `json:"id" db:"id"`

	// Name is the display name, refreshed from the oauth provider on
	// every login.
	Name string `json:"name" db:"name"`

	// Avatar is the avatar image URL, refreshed on every login.
	Avatar string `json:"avatar" db:"avatar"`

	// UID is the optional in-game player id.
	UID *int64 `json:"uid" db:"uid"`

	// Status flags banned accounts (UserBanned). Banned users cannot
	// log in or act through the bot facade.
	Status int `json:"-" db:"status"`

	// Privacy controls who may read the full profile.
	Privacy int `json:"privacy" db:"privacy"`

	// GuildID is the optional guild affiliation.
	GuildID *int `json:"guild_id" db:"guild_id"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// OauthLink binds an external platform account to exactly one User.
// The (Platform, ExternalID) pair is unique; one user may hold links on
// several platforms.
type OauthLink struct {
	Platform   int    `json:"platform" db:"platform"`
	ExternalID string `json:"id" db:"external_id"`
	UserID     int    `json:"user_id" db:"user_id"`
}

// Guild is a named group of users.
type Guild struct {
	ID           int    `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Announcement string `json:"announcement" db:"announcement"`
	OwnerID      int    `json:"-" db:"owner_id"`
}

// ExternalUser is the public view of a user. ID carries the opaque
// reversible code, never the internal integer.
type ExternalUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	UID    *int64 `json:"uid,omitempty"`
}

// ExternalProfile extends ExternalUser with the fields visible on the
// profile endpoints.
type ExternalProfile struct {
	ExternalUser
	Privacy   int       `json:"privacy"`
	GuildID   *int      `json:"guild_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
