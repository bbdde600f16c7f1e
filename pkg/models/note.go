// Package models contains domain models for moodlens.
package models

// DailyNote is the single free-text entry for a calendar date.
type DailyNote struct {
	ID        string `db:"id" json:"id"`
	Date      string `db:"date" json:"date"`
	Content   string `db:"content" json:"content"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
}
