package gorm

import (
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/thebtf/moodlens/pkg/models"
)

// JSONStringArray stores a string slice as a JSON text column.
type JSONStringArray []string

// Scan implements sql.Scanner.
func (a *JSONStringArray) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("scan JSONStringArray: unsupported type %T", value)
	}
	if len(data) == 0 {
		*a = nil
		return nil
	}
	return json.Unmarshal(data, (*[]string)(a))
}

// Value implements driver.Valuer.
func (a JSONStringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Schedule is the schedules row.
type Schedule struct {
	ID        string         `gorm:"primaryKey;type:varchar(64)"`
	UserID    string         `gorm:"type:varchar(64);index:idx_schedules_user_date,priority:1;not null;default:''"`
	Date      string         `gorm:"type:varchar(10);index:idx_schedules_user_date,priority:2;not null"`
	Content   string         `gorm:"type:text;not null"`
	Completed bool           `gorm:"not null;default:false"`
	CreatedAt int64          `gorm:"autoCreateTime:false;not null"`
	StartTime sql.NullString `gorm:"type:varchar(5)"`
	EndTime   sql.NullString `gorm:"type:varchar(5)"`
}

func (Schedule) TableName() string { return "schedules" }

// MoodRecord is the mood_records row.
type MoodRecord struct {
	ID        string          `gorm:"primaryKey;type:varchar(64)"`
	UserID    string          `gorm:"type:varchar(64);index:idx_mood_records_user_ts,priority:1;not null;default:''"`
	ImageURL  string          `gorm:"type:text;not null;default:''"`
	Timestamp int64           `gorm:"index:idx_mood_records_user_ts,priority:2,sort:desc;not null"`
	Emoji     string          `gorm:"type:varchar(16);not null"`
	Mood      string          `gorm:"type:varchar(16)"`
	Intensity int             `gorm:"not null;default:0"`
	Note      sql.NullString  `gorm:"type:text"`
	Location  sql.NullString  `gorm:"type:varchar(64)"`
	Summary   sql.NullString  `gorm:"type:text"`
	Tags      JSONStringArray `gorm:"type:text"`
}

func (MoodRecord) TableName() string { return "mood_records" }

// DailyNote is the daily_notes row; one per user and date.
type DailyNote struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	UserID    string `gorm:"type:varchar(64);uniqueIndex:idx_daily_notes_user_date,priority:1;not null;default:''"`
	Date      string `gorm:"type:varchar(10);uniqueIndex:idx_daily_notes_user_date,priority:2;not null"`
	Content   string `gorm:"type:text;not null;default:''"`
	UpdatedAt int64  `gorm:"autoUpdateTime:false;not null"`
}

func (DailyNote) TableName() string { return "daily_notes" }

func scheduleRow(userID string, s *models.Schedule) *Schedule {
	return &Schedule{
		ID:        s.ID,
		UserID:    userID,
		Date:      s.Date,
		Content:   s.Content,
		Completed: s.Completed,
		CreatedAt: s.CreatedAt,
		StartTime: sqlNullString(s.StartTime),
		EndTime:   sqlNullString(s.EndTime),
	}
}

func (r *Schedule) toModel() models.Schedule {
	return models.Schedule{
		ID:        r.ID,
		Date:      r.Date,
		Content:   r.Content,
		Completed: r.Completed,
		CreatedAt: r.CreatedAt,
		StartTime: r.StartTime.String,
		EndTime:   r.EndTime.String,
	}
}

func moodRecordRow(userID string, m *models.MoodRecord) *MoodRecord {
	return &MoodRecord{
		ID:        m.ID,
		UserID:    userID,
		ImageURL:  m.ImageURL,
		Timestamp: m.Timestamp,
		Emoji:     m.Emoji,
		Mood:      string(m.Mood),
		Intensity: m.Intensity,
		Note:      sqlNullString(m.Note),
		Location:  sqlNullString(m.Location),
		Summary:   sqlNullString(m.Summary),
		Tags:      JSONStringArray(m.Tags),
	}
}

func (r *MoodRecord) toModel() models.MoodRecord {
	rec := models.MoodRecord{
		ID:        r.ID,
		ImageURL:  r.ImageURL,
		Timestamp: r.Timestamp,
		Emoji:     r.Emoji,
		Mood:      models.Mood(r.Mood),
		Intensity: r.Intensity,
		Note:      r.Note.String,
		Location:  r.Location.String,
		Summary:   r.Summary.String,
	}
	if len(r.Tags) > 0 {
		rec.Tags = []string(r.Tags)
	}
	// Rows written by older clients carry only the emoji.
	if rec.Mood == "" {
		rec.Mood, _ = models.MoodFromEmoji(rec.Emoji)
	}
	return rec
}

func dailyNoteRow(userID string, n *models.DailyNote) *DailyNote {
	return &DailyNote{
		ID:        n.ID,
		UserID:    userID,
		Date:      n.Date,
		Content:   n.Content,
		UpdatedAt: n.UpdatedAt,
	}
}

func (r *DailyNote) toModel() models.DailyNote {
	return models.DailyNote{
		ID:        r.ID,
		Date:      r.Date,
		Content:   r.Content,
		UpdatedAt: r.UpdatedAt,
	}
}
