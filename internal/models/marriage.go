package models

import "time"

// Marriage is an exclusive pairing between two users. A user appears in
// at most one active marriage at a time.
type Marriage struct {
	ID        string `gorm:"primaryKey;size:36"`
	UserID1   string `gorm:"index;not null;size:32"`
	UserID2   string `gorm:"index;not null;size:32"`
	MarriedAt time.Time
	IsActive  bool `gorm:"default:true"`
}

// PartnerOf returns the other party of the marriage, or "" when userID
// is not part of it.
func (m *Marriage) PartnerOf(userID string) string {
	switch userID {
	case m.UserID1:
		return m.UserID2
	case m.UserID2:
		return m.UserID1
	}
	return ""
}

// Contains reports whether userID is one of the two parties.
func (m *Marriage) Contains(userID string) bool {
	return m.UserID1 == userID || m.UserID2 == userID
}

// MarriageHistory is one user's view of one marriage: two mirrored rows
// are written per marriage, one per participant. Rows are append-only
// once DivorcedAt is set.
type MarriageHistory struct {
	ID         string `gorm:"primaryKey;size:36"`
	UserID     string `gorm:"index;not null;size:32"`
	PartnerID  string `gorm:"not null;size:32"`
	MarriedAt  time.Time
	DivorcedAt *time.Time
}

func (MarriageHistory) TableName() string {
	return "marriage_history"
}
