// Package models contains domain models for moodlens.
package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Layouts for the date and time strings stored on schedules and notes.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var (
	// ErrInvalidDate is returned for a date that is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidTime is returned for a time slot that is not HH:mm.
	ErrInvalidTime = errors.New("invalid time")
	// ErrEmptyContent is returned when schedule content is blank.
	ErrEmptyContent = errors.New("content is empty")
)

// Schedule is a date-scoped to-do item with an optional time window.
type Schedule struct {
	ID        string `db:"id" json:"id"`
	Date      string `db:"date" json:"date"`
	Content   string `db:"content" json:"content"`
	StartTime string `db:"start_time" json:"start_time,omitempty"`
	EndTime   string `db:"end_time" json:"end_time,omitempty"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
	Completed bool   `db:"completed" json:"completed"`
}

// ValidateDate checks a YYYY-MM-DD date string.
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}

// ValidateTime checks an optional HH:mm time string. The empty string is valid.
func ValidateTime(t string) error {
	if t == "" {
		return nil
	}
	if len(t) != len(TimeLayout) {
		return fmt.Errorf("%w: %q", ErrInvalidTime, t)
	}
	if _, err := time.Parse(TimeLayout, t); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTime, t)
	}
	return nil
}

// NewSchedule builds a validated schedule. Content is trimmed.
// An end time earlier than the start time is accepted as-is.
func NewSchedule(id, date, content, startTime, endTime string, createdAt int64) (*Schedule, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if err := ValidateTime(startTime); err != nil {
		return nil, err
	}
	if err := ValidateTime(endTime); err != nil {
		return nil, err
	}
	return &Schedule{
		ID:        id,
		Date:      date,
		Content:   content,
		StartTime: startTime,
		EndTime:   endTime,
		CreatedAt: createdAt,
	}, nil
}

// SortSchedules returns a copy ordered for display: timed items first by start time,
// then untimed items by creation time.
func SortSchedules(schedules []Schedule) []Schedule {
	out := make([]Schedule, len(schedules))
	copy(out, schedules)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.StartTime != "" && b.StartTime != "":
			return a.StartTime < b.StartTime
		case a.StartTime != "":
			return true
		case b.StartTime != "":
			return false
		default:
			return a.CreatedAt < b.CreatedAt
		}
	})
	return out
}
