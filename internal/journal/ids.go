package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ID prefixes for locally generated identifiers.
const (
	PrefixSchedule = "schedule"
	PrefixMood     = "mood"
	PrefixNote     = "note"
	PrefixMessage  = "msg"
)

// LocalID builds "<prefix>-<unix millis>-<7 char suffix>".
func LocalID(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), suffix)
}

// newID returns a UUID when a remote store is attached and a local id otherwise.
func (s *Store) newID(prefix string, now time.Time) string {
	if s.remote != nil {
		return uuid.NewString()
	}
	return LocalID(prefix, now)
}
