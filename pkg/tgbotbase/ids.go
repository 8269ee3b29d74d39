package tgbotbase

// UserID is a telegram user identifier. Zero means "any user".
type UserID int64

// ChatID is a telegram chat identifier. A private chat has the same ID as its user.
type ChatID int64
