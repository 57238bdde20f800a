package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cf_solved_bot/internal/domain/codeforces"
	"cf_solved_bot/internal/domain/member"
)

var reportZone = FixedZone(6)

func at(hour, minute int) int64 {
	return time.Date(2024, 8, 1, hour, minute, 0, 0, reportZone).Unix()
}

func newTestReport(members *memoryMembers, cf *fakeCodeforces) *ReportService {
	r := NewReportService(members, cf, reportZone, testLogger())
	r.now = func() time.Time { return time.Date(2024, 8, 1, 20, 0, 0, 0, reportZone) }
	return r
}

func TestReport_CountsAcceptedInsideWindow(t *testing.T) {
	members := newMemoryMembers(&member.LinkedUser{GuildID: "g1", MemberID: "m1", Handle: "tourist"})
	cf := newFakeCodeforces()
	cf.subs["tourist"] = []codeforces.Submission{
		sub(1, at(6, 30), codeforces.VerdictAccepted, 0),
		sub(2, at(12, 0), codeforces.VerdictAccepted, 0),
		sub(3, at(17, 59), codeforces.VerdictAccepted, 0),
		sub(4, at(5, 59), codeforces.VerdictAccepted, 0),
		sub(5, at(18, 1), codeforces.VerdictAccepted, 0),
		sub(6, at(9, 0), codeforces.VerdictPartial, 50),
		sub(7, at(10, 0), "WRONG_ANSWER", 0),
	}

	report, err := newTestReport(members, cf).Build(context.Background(), "g1", "0600", "1800")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(report.Ranking) != 1 || report.Ranking[0].Count != 3 {
		t.Fatalf("ranking = %+v, want tourist with 3", report.Ranking)
	}
}

func TestReport_WindowIsInclusive(t *testing.T) {
	members := newMemoryMembers(&member.LinkedUser{GuildID: "g1", MemberID: "m1", Handle: "tourist"})
	cf := newFakeCodeforces()
	cf.subs["tourist"] = []codeforces.Submission{
		sub(1, at(6, 0), codeforces.VerdictAccepted, 0),
		sub(2, at(18, 0), codeforces.VerdictAccepted, 0),
	}

	report, err := newTestReport(members, cf).Build(context.Background(), "g1", "0600", "1800")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if report.Ranking[0].Count != 2 {
		t.Fatalf("count = %d, want both bounds included", report.Ranking[0].Count)
	}
}

func TestReport_WindowUsesFixedOffset(t *testing.T) {
	report, err := newTestReport(newMemoryMembers(), newFakeCodeforces()).Build(context.Background(), "g1", "0600", "1800")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	wantStart := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)
	if !report.Window.Start.Equal(wantStart) || !report.Window.End.Equal(wantEnd) {
		t.Fatalf("window = %v..%v, want %v..%v", report.Window.Start.UTC(), report.Window.End.UTC(), wantStart, wantEnd)
	}
}

func TestReport_RankingAndRendering(t *testing.T) {
	members := newMemoryMembers(
		&member.LinkedUser{GuildID: "g1", MemberID: "m1", Handle: "zeta"},
		&member.LinkedUser{GuildID: "g1", MemberID: "m2", Handle: "alpha"},
		&member.LinkedUser{GuildID: "g1", MemberID: "m3", Handle: "idle"},
		&member.LinkedUser{GuildID: "g1", MemberID: "m4", Handle: "down"},
		&member.LinkedUser{GuildID: "g1", MemberID: "m5", Handle: "Beta"},
		&member.LinkedUser{GuildID: "g2", MemberID: "m6", Handle: "other_guild"},
	)
	cf := newFakeCodeforces()
	cf.subs["zeta"] = []codeforces.Submission{sub(1, at(8, 0), codeforces.VerdictAccepted, 0)}
	cf.subs["alpha"] = []codeforces.Submission{sub(2, at(9, 0), codeforces.VerdictAccepted, 0)}
	cf.subs["Beta"] = []codeforces.Submission{
		sub(3, at(10, 0), codeforces.VerdictAccepted, 0),
		sub(4, at(11, 0), codeforces.VerdictAccepted, 0),
	}
	cf.subs["idle"] = nil
	cf.errs["down"] = serverError()
	cf.subs["other_guild"] = []codeforces.Submission{sub(9, at(8, 0), codeforces.VerdictAccepted, 0)}

	svc := newTestReport(members, cf)
	report, err := svc.Build(context.Background(), "g1", "", "")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if report.Counted != 4 {
		t.Errorf("Counted = %d, want 4 (zero-count member counted, errored excluded)", report.Counted)
	}
	if len(report.Errored) != 1 || report.Errored[0] != "down" {
		t.Errorf("Errored = %v, want [down]", report.Errored)
	}
	for i := 1; i < len(report.Ranking); i++ {
		if report.Ranking[i].Count > report.Ranking[i-1].Count {
			t.Fatalf("ranking not non-increasing: %+v", report.Ranking)
		}
	}

	msg, err := svc.Solved(context.Background(), "g1", "", "")
	if err != nil {
		t.Fatalf("Solved() error = %v", err)
	}
	want := "**__Solved count for 01 Aug: 12:00 AM - 11:59 PM__**\n\n" +
		"Beta solved 2 problems\n" +
		"alpha solved 1 problems\n" +
		"zeta solved 1 problems\n"
	if msg != want {
		t.Fatalf("Solved() =\n%q\nwant\n%q", msg, want)
	}
	if strings.Contains(msg, "idle") || strings.Contains(msg, "down") || strings.Contains(msg, "other_guild") {
		t.Fatalf("message lists members it should omit:\n%s", msg)
	}
}

func TestReport_InvalidTimeInput(t *testing.T) {
	svc := newTestReport(newMemoryMembers(), newFakeCodeforces())
	for _, raw := range []string{"600", "06:00", "2400", "1260", "abcd", "00000"} {
		if _, err := svc.Solved(context.Background(), "g1", raw, "1800"); !errors.Is(err, ErrInvalidClock) {
			t.Errorf("Solved(%q) error = %v, want ErrInvalidClock", raw, err)
		}
	}
}

func TestReport_ListFailure(t *testing.T) {
	members := newMemoryMembers()
	members.listErr["g1"] = errBoom
	if _, err := newTestReport(members, newFakeCodeforces()).Build(context.Background(), "g1", "", ""); !errors.Is(err, errBoom) {
		t.Fatalf("error = %v, want wrapped errBoom", err)
	}
}

func TestRankSolvedCounts_TieBreakByHandle(t *testing.T) {
	got := RankSolvedCounts([]SolvedCount{
		{Handle: "carol", Count: 2},
		{Handle: "Bob", Count: 2},
		{Handle: "zero", Count: 0},
		{Handle: "alice", Count: 5},
	})
	want := []string{"alice", "Bob", "carol"}
	if len(got) != len(want) {
		t.Fatalf("ranking = %+v", got)
	}
	for i, h := range want {
		if got[i].Handle != h {
			t.Fatalf("ranking[%d] = %s, want %s (%+v)", i, got[i].Handle, h, got)
		}
	}
}

type blockingCodeforces struct {
	*fakeCodeforces
	block string
}

func (b *blockingCodeforces) UserStatus(ctx context.Context, handle string, count int) ([]codeforces.Submission, error) {
	if handle == b.block {
		b.calls = append(b.calls, handle)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return b.fakeCodeforces.UserStatus(ctx, handle, count)
}

func TestReport_DeadlineKeepsCountedMembers(t *testing.T) {
	members := newMemoryMembers(
		&member.LinkedUser{GuildID: "g1", MemberID: "m1", Handle: "tourist"},
		&member.LinkedUser{GuildID: "g1", MemberID: "m2", Handle: "hung"},
		&member.LinkedUser{GuildID: "g1", MemberID: "m3", Handle: "Petr"},
	)
	fake := newFakeCodeforces()
	fake.subs["tourist"] = []codeforces.Submission{sub(1, at(9, 0), codeforces.VerdictAccepted, 0)}
	fake.subs["Petr"] = []codeforces.Submission{sub(2, at(9, 0), codeforces.VerdictAccepted, 0)}
	cf := &blockingCodeforces{fakeCodeforces: fake, block: "hung"}

	r := NewReportService(members, cf, reportZone, testLogger())
	r.now = func() time.Time { return time.Date(2024, 8, 1, 20, 0, 0, 0, reportZone) }

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	out, err := r.Solved(ctx, "g1", "", "")
	if err != nil {
		t.Fatalf("Solved() error = %v, want the partial report", err)
	}
	if !strings.Contains(out, "tourist solved 1 problems") {
		t.Errorf("output lost the counted member:\n%s", out)
	}
	if strings.Contains(out, "Petr") {
		t.Errorf("member after the deadline should be excluded:\n%s", out)
	}

	report, err := r.Build(ctx, "g1", "", "")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if strings.Join(report.Errored, ",") != "tourist,hung,Petr" {
		t.Errorf("errored = %v, want every member once the deadline has passed", report.Errored)
	}
}
