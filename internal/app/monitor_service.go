// internal/app/monitor_service.go
package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"cf_solved_bot/internal/domain/chat"
	"cf_solved_bot/internal/domain/codeforces"
	"cf_solved_bot/internal/domain/member"
	cfclient "cf_solved_bot/internal/infra/codeforces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CycleStats summarizes one monitor cycle.
type CycleStats struct {
	CycleID       string        `json:"cycle_id"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration_ns"`
	Guilds        int           `json:"guilds"`
	Users         int           `json:"users"`
	Notified      int           `json:"notified"`
	FetchFailures int           `json:"fetch_failures"`
	SendFailures  int           `json:"send_failures"`
}

// MonitorService announces new accepted (or positively scored partial) submissions
// of linked members and advances their watermarks.
type MonitorService struct {
	members  member.Repository
	cf       codeforces.Client
	notifier chat.Notifier
	logger   *logrus.Entry
	now      func() time.Time

	mu   sync.Mutex
	last *CycleStats
}

func NewMonitorService(
	members member.Repository,
	cf codeforces.Client,
	notifier chat.Notifier,
	logger *logrus.Entry,
) *MonitorService {
	return &MonitorService{
		members:  members,
		cf:       cf,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// SelectNewSolves keeps submissions created strictly after watermark whose verdict
// is OK, or PARTIAL with positive points. Source order is preserved.
func SelectNewSolves(subs []codeforces.Submission, watermark time.Time) []codeforces.Submission {
	selected := make([]codeforces.Submission, 0)
	for _, s := range subs {
		if !s.CreatedAt.After(watermark) {
			continue
		}
		if s.IsAccepted() || s.IsPartialWithPoints() {
			selected = append(selected, s)
		}
	}
	return selected
}

// RunCycle polls every linked member of the given guilds once.
// Failures are contained per member; the returned stats describe the cycle.
func (s *MonitorService) RunCycle(ctx context.Context, guildIDs []string) CycleStats {
	stats := CycleStats{
		CycleID:   uuid.NewString(),
		StartedAt: s.now(),
		Guilds:    len(guildIDs),
	}
	cycleLogger := s.logger.WithField("cycle_id", stats.CycleID)
	cycleLogger.WithField("guilds", len(guildIDs)).Debug("Monitor cycle started")

	polled := make(map[string]string) // member id -> handle polled this cycle
	for _, guildID := range guildIDs {
		if ctx.Err() != nil {
			cycleLogger.WithError(ctx.Err()).Warn("Monitor cycle interrupted")
			break
		}
		guildLogger := cycleLogger.WithField("guild_id", guildID)

		users, err := s.members.ListLinkedUsers(ctx, guildID)
		if err != nil {
			guildLogger.WithError(err).Error("Failed to list linked users")
			continue
		}

		for _, u := range users {
			if ctx.Err() != nil {
				break
			}
			// A member linked in several guilds shares one watermark; poll it once.
			if handle, ok := polled[u.MemberID]; ok {
				if !strings.EqualFold(handle, u.Handle) {
					guildLogger.WithFields(logrus.Fields{
						"member_id":      u.MemberID,
						"polled_handle":  handle,
						"skipped_handle": u.Handle,
					}).Debug("Skipping other handle of a member already polled this cycle")
				}
				continue
			}
			polled[u.MemberID] = u.Handle
			stats.Users++

			notified, err := s.pollMember(ctx, guildLogger, u)
			stats.Notified += notified
			switch {
			case errors.Is(err, errFetchFailed):
				stats.FetchFailures++
			case errors.Is(err, errSendFailed):
				stats.SendFailures++
			}
		}
	}

	stats.Duration = s.now().Sub(stats.StartedAt)
	s.mu.Lock()
	s.last = &stats
	s.mu.Unlock()

	cycleLogger.WithFields(logrus.Fields{
		"users":          stats.Users,
		"notified":       stats.Notified,
		"fetch_failures": stats.FetchFailures,
		"send_failures":  stats.SendFailures,
		"duration":       stats.Duration.String(),
	}).Info("Monitor cycle finished")
	return stats
}

// LastCycle returns the stats of the most recent finished cycle.
func (s *MonitorService) LastCycle() (CycleStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return CycleStats{}, false
	}
	return *s.last, true
}

var (
	errFetchFailed = errors.New("fetch failed")
	errSendFailed  = errors.New("send failed")
)

func (s *MonitorService) pollMember(ctx context.Context, baseLogger *logrus.Entry, u *member.LinkedUser) (int, error) {
	logger := baseLogger.WithFields(logrus.Fields{
		"member_id": u.MemberID,
		"handle":    u.Handle,
	})

	// Captured before the fetch: anything created later is newer than the next watermark.
	capturedAt := s.now()

	subs, err := s.cf.UserStatus(ctx, u.Handle, codeforces.MaxRecentSubmissions)
	if err != nil {
		if cfclient.IsTransient(err) {
			logger.WithError(err).Info("Skipping member, submissions temporarily unavailable")
		} else {
			logger.WithError(err).Warn("Skipping member, submissions could not be fetched")
		}
		return 0, errFetchFailed
	}

	watermark, err := s.members.GetWatermark(ctx, u.MemberID)
	if err != nil {
		logger.WithError(err).Error("Failed to read watermark")
		return 0, errFetchFailed
	}

	solves := SelectNewSolves(subs, watermark)
	if len(solves) == 0 {
		return 0, nil
	}

	notice := chat.SolvedNotice{
		GuildID:     u.GuildID,
		MemberID:    u.MemberID,
		Handle:      u.Handle,
		CapturedAt:  capturedAt,
		Submissions: solves,
	}
	if err := s.notifier.NotifySolved(ctx, notice); err != nil {
		logger.WithError(err).Error("Failed to send solved notice, watermark left unchanged")
		return 0, errSendFailed
	}

	next := capturedAt
	for _, sub := range solves {
		if sub.CreatedAt.After(next) {
			next = sub.CreatedAt
		}
	}
	if err := s.members.SetWatermark(ctx, u.MemberID, next); err != nil {
		logger.WithError(err).Error("Failed to advance watermark")
	}

	logger.WithFields(logrus.Fields{
		"solves":    len(solves),
		"watermark": next.Unix(),
	}).Info("Solved notice sent")
	return len(solves), nil
}
