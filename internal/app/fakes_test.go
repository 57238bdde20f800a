package app

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"cf_solved_bot/internal/domain/chat"
	"cf_solved_bot/internal/domain/codeforces"
	"cf_solved_bot/internal/domain/member"
	cfclient "cf_solved_bot/internal/infra/codeforces"
	idb "cf_solved_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type memoryMembers struct {
	users      []*member.LinkedUser
	watermarks map[string]time.Time
	listErr    map[string]error
	setCalls   int
}

func newMemoryMembers(users ...*member.LinkedUser) *memoryMembers {
	return &memoryMembers{
		users:      users,
		watermarks: make(map[string]time.Time),
		listErr:    make(map[string]error),
	}
}

func (m *memoryMembers) ListLinkedUsers(_ context.Context, guildID string) ([]*member.LinkedUser, error) {
	if err := m.listErr[guildID]; err != nil {
		return nil, err
	}
	out := make([]*member.LinkedUser, 0)
	for _, u := range m.users {
		if u.GuildID == guildID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryMembers) GetLinkedUser(_ context.Context, guildID, memberID string) (*member.LinkedUser, error) {
	for _, u := range m.users {
		if u.GuildID == guildID && u.MemberID == memberID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, idb.ErrMemberNotLinked
}

func (m *memoryMembers) LinkHandle(_ context.Context, u *member.LinkedUser) error {
	for _, existing := range m.users {
		if existing.GuildID == u.GuildID && existing.MemberID != u.MemberID && existing.Handle == u.Handle {
			return idb.ErrHandleAlreadyLinked
		}
	}
	for _, existing := range m.users {
		if existing.GuildID == u.GuildID && existing.MemberID == u.MemberID {
			existing.Handle = u.Handle
			return nil
		}
	}
	u.LinkedAt = time.Unix(1_700_000_000, 0)
	cp := *u
	m.users = append(m.users, &cp)
	return nil
}

func (m *memoryMembers) UnlinkHandle(_ context.Context, guildID, memberID string) error {
	for i, u := range m.users {
		if u.GuildID == guildID && u.MemberID == memberID {
			m.users = append(m.users[:i], m.users[i+1:]...)
			return nil
		}
	}
	return idb.ErrMemberNotLinked
}

func (m *memoryMembers) GetWatermark(_ context.Context, memberID string) (time.Time, error) {
	if w, ok := m.watermarks[memberID]; ok {
		return w, nil
	}
	return time.Unix(0, 0).UTC(), nil
}

func (m *memoryMembers) SetWatermark(_ context.Context, memberID string, at time.Time) error {
	m.setCalls++
	if cur, ok := m.watermarks[memberID]; ok && cur.After(at) {
		return nil
	}
	m.watermarks[memberID] = at
	return nil
}

type fakeCodeforces struct {
	subs  map[string][]codeforces.Submission
	errs  map[string]error
	calls []string
}

func newFakeCodeforces() *fakeCodeforces {
	return &fakeCodeforces{
		subs: make(map[string][]codeforces.Submission),
		errs: make(map[string]error),
	}
}

func (f *fakeCodeforces) UserStatus(_ context.Context, handle string, _ int) ([]codeforces.Submission, error) {
	f.calls = append(f.calls, handle)
	if err := f.errs[handle]; err != nil {
		return nil, err
	}
	return f.subs[handle], nil
}

type recordingNotifier struct {
	notices []chat.SolvedNotice
	err     error
}

func (r *recordingNotifier) NotifySolved(_ context.Context, n chat.SolvedNotice) error {
	if r.err != nil {
		return r.err
	}
	r.notices = append(r.notices, n)
	return nil
}

func (r *recordingNotifier) submissionIDs() []int64 {
	ids := make([]int64, 0)
	for _, n := range r.notices {
		for _, s := range n.Submissions {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

func sub(id int64, unix int64, verdict codeforces.Verdict, points float64) codeforces.Submission {
	return codeforces.Submission{
		ID:        id,
		Problem:   codeforces.Problem{ContestID: 4, Index: "A", Name: "Watermelon"},
		Verdict:   verdict,
		Points:    points,
		CreatedAt: time.Unix(unix, 0).UTC(),
	}
}

func serverError() error {
	return &cfclient.APIError{Kind: cfclient.ErrUnavailable, StatusCode: 500}
}

var errBoom = errors.New("boom")

func sortedKeys(m map[string]time.Time) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
