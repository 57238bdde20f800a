package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"cf_solved_bot/internal/domain/codeforces"
	"cf_solved_bot/internal/domain/member"

	"github.com/sirupsen/logrus"
)

// SolvedCount is one ranked line of the solved report.
type SolvedCount struct {
	MemberID string
	Handle   string
	Count    int
}

// SolvedReport is the outcome of a solved command before rendering.
type SolvedReport struct {
	Window  TimeWindow
	Date    time.Time
	Ranking []SolvedCount // Count > 0 only, non-increasing
	Counted int           // members whose submissions were fetched, including zero counts
	Errored []string      // handles whose fetch failed
}

// ReportService answers the solved command.
type ReportService struct {
	members member.Repository
	cf      codeforces.Client
	loc     *time.Location
	logger  *logrus.Entry
	now     func() time.Time
}

func NewReportService(members member.Repository, cf codeforces.Client, loc *time.Location, logger *logrus.Entry) *ReportService {
	return &ReportService{
		members: members,
		cf:      cf,
		loc:     loc,
		logger:  logger,
		now:     time.Now,
	}
}

// Build fetches every linked member of the guild and counts accepted submissions
// inside [start, end] on today's date in the report's fixed zone.
func (s *ReportService) Build(ctx context.Context, guildID, startRaw, endRaw string) (*SolvedReport, error) {
	if startRaw == "" {
		startRaw = DefaultWindowStart
	}
	if endRaw == "" {
		endRaw = DefaultWindowEnd
	}

	today := s.now().In(s.loc)
	window, err := NewTimeWindow(today, s.loc, startRaw, endRaw)
	if err != nil {
		return nil, err
	}

	users, err := s.members.ListLinkedUsers(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked users for guild %s: %w", guildID, err)
	}

	report := &SolvedReport{Window: window, Date: today}
	counts := make([]SolvedCount, 0, len(users))
	for i, u := range users {
		if err := ctx.Err(); err != nil {
			// Out of time: report what was counted, the rest count as failed fetches.
			for _, rest := range users[i:] {
				report.Errored = append(report.Errored, rest.Handle)
			}
			s.logger.WithFields(logrus.Fields{
				"guild_id": guildID,
				"skipped":  len(users) - i,
			}).WithError(err).Warn("Solved report cut short")
			break
		}
		subs, err := s.cf.UserStatus(ctx, u.Handle, codeforces.MaxRecentSubmissions)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"guild_id":  guildID,
				"member_id": u.MemberID,
				"handle":    u.Handle,
			}).WithError(err).Warn("Excluding member from solved report")
			report.Errored = append(report.Errored, u.Handle)
			continue
		}
		report.Counted++
		counts = append(counts, SolvedCount{
			MemberID: u.MemberID,
			Handle:   u.Handle,
			Count:    CountAcceptedInWindow(subs, window),
		})
	}

	report.Ranking = RankSolvedCounts(counts)
	return report, nil
}

// CountAcceptedInWindow counts OK submissions inside the closed window. Partial verdicts do not count.
func CountAcceptedInWindow(subs []codeforces.Submission, window TimeWindow) int {
	n := 0
	for _, sub := range subs {
		if sub.IsAccepted() && window.Contains(sub.CreatedAt) {
			n++
		}
	}
	return n
}

// RankSolvedCounts drops zero counts and orders by count descending, then by handle.
func RankSolvedCounts(counts []SolvedCount) []SolvedCount {
	ranked := make([]SolvedCount, 0, len(counts))
	for _, c := range counts {
		if c.Count > 0 {
			ranked = append(ranked, c)
		}
	}
	slices.SortStableFunc(ranked, func(a, b SolvedCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(strings.ToLower(a.Handle), strings.ToLower(b.Handle))
	})
	return ranked
}

// Render formats the report as a chat message.
func (r *SolvedReport) Render() string {
	start, _ := FormatClock12h(r.Window.StartRaw)
	end, _ := FormatClock12h(r.Window.EndRaw)

	var b strings.Builder
	fmt.Fprintf(&b, "**__Solved count for %s: %s - %s__**\n\n", r.Date.Format("02 Jan"), start, end)
	for _, c := range r.Ranking {
		fmt.Fprintf(&b, "%s solved %d problems\n", c.Handle, c.Count)
	}
	return b.String()
}

// Solved builds and renders the report in one step.
func (s *ReportService) Solved(ctx context.Context, guildID, startRaw, endRaw string) (string, error) {
	report, err := s.Build(ctx, guildID, startRaw, endRaw)
	if err != nil {
		return "", err
	}
	s.logger.WithFields(logrus.Fields{
		"guild_id": guildID,
		"window":   windowLabel(report.Window),
		"counted":  report.Counted,
		"ranked":   len(report.Ranking),
		"errored":  len(report.Errored),
	}).Info("Solved report built")
	return report.Render(), nil
}

func windowLabel(w TimeWindow) string {
	return w.Start.UTC().Format(time.RFC3339) + "/" + w.End.UTC().Format(time.RFC3339)
}
