package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxNameLength caps display names, in runes.
	MaxNameLength = 30

	// AnonymousName replaces empty display names.
	AnonymousName = "Anonymous"
)

// Player represents an authenticated connection identity
type Player struct {
	// From JWT claims, or generated for guests
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Permissions int64  `json:"permissions"`
	Activated   int64  `json:"activated"`
	AuthMethod  string `json:"auth_method"` // "password", "oauth" or "guest"

	// Connection state
	Connected   bool      `json:"connected"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`

	// Room the player is bound to
	RoomID string `json:"room_id"`
}

// IsActive checks if the player account is activated and not banned
func (p *Player) IsActive() bool {
	// activated > 0 means activated
	// activated == 0 means not activated
	// activated == -1 means banned
	return p.Activated > 0
}

// IsBanned checks if the player is banned
func (p *Player) IsBanned() bool {
	return p.Activated == -1
}

// IsGuest reports whether the identity was not backed by a token
func (p *Player) IsGuest() bool {
	return p.AuthMethod == "guest"
}

// CleanName trims a display name and caps it at MaxNameLength runes.
// Empty names become AnonymousName.
func CleanName(raw string) string {
	name := strings.TrimSpace(raw)
	if utf8.RuneCountInString(name) > MaxNameLength {
		runes := []rune(name)
		name = strings.TrimSpace(string(runes[:MaxNameLength]))
	}
	if name == "" {
		return AnonymousName
	}
	return name
}
