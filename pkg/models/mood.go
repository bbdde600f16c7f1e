// Package models contains domain models for moodlens.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Mood is the closed set of mood categories a record can carry.
type Mood string

const (
	MoodHappy     Mood = "Happy"
	MoodCalm      Mood = "Calm"
	MoodSad       Mood = "Sad"
	MoodAnxious   Mood = "Anxious"
	MoodEnergetic Mood = "Energetic"
)

// Mood emoji, one per category.
const (
	EmojiHappy     = "😊"
	EmojiCalm      = "😌"
	EmojiSad       = "😢"
	EmojiAnxious   = "😰"
	EmojiEnergetic = "💪"
)

// Intensity bounds for a mood record.
const (
	MinIntensity = 1
	MaxIntensity = 10
)

var (
	// ErrUnknownMood is returned when neither the mood nor the emoji is recognised.
	ErrUnknownMood = errors.New("unknown mood")
	// ErrIntensityRange is returned when intensity is set but outside [1,10].
	ErrIntensityRange = errors.New("intensity out of range")
)

// AllMoods lists the categories in display order.
var AllMoods = []Mood{MoodHappy, MoodCalm, MoodSad, MoodAnxious, MoodEnergetic}

var moodEmoji = map[Mood]string{
	MoodHappy:     EmojiHappy,
	MoodCalm:      EmojiCalm,
	MoodSad:       EmojiSad,
	MoodAnxious:   EmojiAnxious,
	MoodEnergetic: EmojiEnergetic,
}

// Emoji returns the emoji for the mood, or "" for an unknown mood.
func (m Mood) Emoji() string {
	return moodEmoji[m]
}

// IsValid reports whether m is one of the known categories.
func (m Mood) IsValid() bool {
	_, ok := moodEmoji[m]
	return ok
}

// MoodFromEmoji maps an emoji back to its category.
func MoodFromEmoji(emoji string) (Mood, bool) {
	for _, m := range AllMoods {
		if moodEmoji[m] == emoji {
			return m, true
		}
	}
	return "", false
}

// MoodRecord is a photo tagged with a mood.
// Emoji and Mood describe the same category; Normalize fills whichever is missing.
type MoodRecord struct {
	ID        string   `db:"id" json:"id"`
	ImageURL  string   `db:"image_url" json:"image_url"`
	Emoji     string   `db:"emoji" json:"emoji"`
	Mood      Mood     `db:"mood" json:"mood,omitempty"`
	Note      string   `db:"note" json:"note,omitempty"`
	Location  string   `db:"location" json:"location,omitempty"`
	Summary   string   `db:"summary" json:"summary,omitempty"`
	Tags      []string `db:"tags" json:"tags,omitempty"`
	Timestamp int64    `db:"timestamp" json:"timestamp"`
	Intensity int      `db:"intensity" json:"intensity,omitempty"` // 0 means not recorded
}

// Normalize derives Mood from Emoji or Emoji from Mood and validates intensity.
func (r *MoodRecord) Normalize() error {
	switch {
	case r.Emoji != "":
		m, ok := MoodFromEmoji(r.Emoji)
		if !ok {
			return fmt.Errorf("%w: emoji %q", ErrUnknownMood, r.Emoji)
		}
		if r.Mood != "" && r.Mood != m {
			return fmt.Errorf("%w: emoji %q does not match mood %q", ErrUnknownMood, r.Emoji, r.Mood)
		}
		r.Mood = m
	case r.Mood != "":
		if !r.Mood.IsValid() {
			return fmt.Errorf("%w: %q", ErrUnknownMood, r.Mood)
		}
		r.Emoji = r.Mood.Emoji()
	default:
		return fmt.Errorf("%w: emoji or mood is required", ErrUnknownMood)
	}
	if r.Intensity != 0 && (r.Intensity < MinIntensity || r.Intensity > MaxIntensity) {
		return fmt.Errorf("%w: %d", ErrIntensityRange, r.Intensity)
	}
	return nil
}

// Date returns the UTC calendar date (YYYY-MM-DD) of the record.
func (r *MoodRecord) Date() string {
	return DateOf(r.Timestamp)
}

// MoodRecordPatch is a field-level edit of an existing record. Nil fields are left unchanged.
type MoodRecordPatch struct {
	ImageURL  *string   `json:"image_url,omitempty"`
	Emoji     *string   `json:"emoji,omitempty"`
	Mood      *Mood     `json:"mood,omitempty"`
	Note      *string   `json:"note,omitempty"`
	Location  *string   `json:"location,omitempty"`
	Summary   *string   `json:"summary,omitempty"`
	Tags      *[]string `json:"tags,omitempty"`
	Timestamp *int64    `json:"timestamp,omitempty"`
	Intensity *int      `json:"intensity,omitempty"`
}

// Apply returns a copy of r with the patch applied and re-normalized.
func (p MoodRecordPatch) Apply(r MoodRecord) (MoodRecord, error) {
	out := r
	if len(r.Tags) > 0 {
		out.Tags = append([]string(nil), r.Tags...)
	}
	if p.ImageURL != nil {
		out.ImageURL = *p.ImageURL
	}
	// A new emoji or mood replaces the category as a whole.
	if p.Emoji != nil || p.Mood != nil {
		out.Emoji, out.Mood = "", ""
		if p.Emoji != nil {
			out.Emoji = *p.Emoji
		}
		if p.Mood != nil {
			out.Mood = *p.Mood
		}
	}
	if p.Note != nil {
		out.Note = *p.Note
	}
	if p.Location != nil {
		out.Location = *p.Location
	}
	if p.Summary != nil {
		out.Summary = *p.Summary
	}
	if p.Tags != nil {
		out.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Timestamp != nil {
		out.Timestamp = *p.Timestamp
	}
	if p.Intensity != nil {
		out.Intensity = *p.Intensity
	}
	if err := out.Normalize(); err != nil {
		return r, err
	}
	return out, nil
}

// DateOf formats epoch millis as a UTC calendar date.
func DateOf(epochMillis int64) string {
	return time.UnixMilli(epochMillis).UTC().Format(DateLayout)
}
