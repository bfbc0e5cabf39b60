package models

import "time"

// User caches display fields for a Discord user the bot has seen.
// Created on first observation and never deleted.
type User struct {
	ID            string `gorm:"primaryKey;size:32"`
	Username      string `gorm:"not null"`
	Discriminator string `gorm:"default:''"`
	Avatar        string `gorm:"default:''"`
	JoinedAt      time.Time
}
