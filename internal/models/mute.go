package models

import "time"

// Mute records a timed (or indefinite) mute applied to a user in a guild.
// ActiveKey is "<user>:<guild>" while the mute is active and NULL once it
// is lifted or expired; the unique index on it is what guarantees at most
// one active mute per user per guild even under concurrent imposition.
type Mute struct {
	ID          string `gorm:"primaryKey;size:36"`
	UserID      string `gorm:"index;not null;size:32"`
	GuildID     string `gorm:"index;not null;size:32"`
	MutedAt     time.Time
	ExpiresAt   *time.Time `gorm:"index"`
	Reason      string     `gorm:"type:text"`
	ModeratorID string     `gorm:"size:32"`
	IsActive    bool       `gorm:"default:true"`
	ActiveKey   *string    `gorm:"uniqueIndex;size:70"`
}

// Expired reports whether the mute has a deadline that has passed.
// Indefinite mutes never expire.
func (m *Mute) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && !now.Before(*m.ExpiresAt)
}

// MuteActiveKey builds the uniqueness key for an active mute.
func MuteActiveKey(userID, guildID string) string {
	return userID + ":" + guildID
}
