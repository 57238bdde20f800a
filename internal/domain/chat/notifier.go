package chat

import (
	"context"
	"time"

	"cf_solved_bot/internal/domain/codeforces"
)

// SolvedNotice groups the qualifying submissions of one member for one monitor cycle.
type SolvedNotice struct {
	GuildID     string
	MemberID    string
	Handle      string
	CapturedAt  time.Time
	Submissions []codeforces.Submission // API order
}

// Notifier delivers solved notices to a chat destination.
type Notifier interface {
	NotifySolved(ctx context.Context, notice SolvedNotice) error
}
