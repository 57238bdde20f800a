package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cf_solved_bot/internal/domain/chat"
	"cf_solved_bot/internal/domain/codeforces"
)

type recordingClient struct {
	chatIDs []int64
	texts   []string
	err     error
}

func (r *recordingClient) SendMessage(_ context.Context, chatID int64, text string) error {
	if r.err != nil {
		return r.err
	}
	r.chatIDs = append(r.chatIDs, chatID)
	r.texts = append(r.texts, text)
	return nil
}

func TestFormatSolvedHTML(t *testing.T) {
	notice := chat.SolvedNotice{
		Handle: "tourist",
		Submissions: []codeforces.Submission{
			{Verdict: codeforces.VerdictAccepted, Problem: codeforces.Problem{ContestID: 4, Index: "A", Name: "A<B", Rating: 800, Tags: []string{"math"}}},
			{Verdict: codeforces.VerdictPartial, Points: 12, Problem: codeforces.Problem{ContestID: 104000, Index: "B", Name: "Gym"}},
		},
	}

	got := FormatSolvedHTML(notice, "https://codeforces.com")
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	want := "<b><a href=\"https://codeforces.com/profile/tourist\">tourist</a></b> solved:\n" +
		"• <a href=\"https://codeforces.com/contest/4/problem/A\">A&lt;B</a> [800] <i>math</i>\n" +
		"• <a href=\"https://codeforces.com/gym/104000/problem/B\">Gym</a> (12 points)\n"
	if got[0] != want {
		t.Errorf("FormatSolvedHTML() =\n%s\nwant\n%s", got[0], want)
	}
}

func TestFormatSolvedHTML_SplitsLongNotices(t *testing.T) {
	subs := make([]codeforces.Submission, 100)
	for i := range subs {
		subs[i] = codeforces.Submission{
			Verdict: codeforces.VerdictAccepted,
			Problem: codeforces.Problem{ContestID: 1000 + i, Index: "A", Name: strings.Repeat("n", 40), Tags: []string{"constructive algorithms", "greedy"}},
		}
	}
	msgs := FormatSolvedHTML(chat.SolvedNotice{Handle: "tourist", Submissions: subs}, "https://codeforces.com")
	if len(msgs) < 2 {
		t.Fatalf("expected the notice to be split, got %d message(s)", len(msgs))
	}
	lines := 0
	for _, m := range msgs {
		if len(m) > maxTelegramMessage {
			t.Errorf("message of %d bytes exceeds the limit", len(m))
		}
		lines += strings.Count(m, "• ")
	}
	if lines != len(subs) {
		t.Errorf("rendered %d submissions, want %d", lines, len(subs))
	}
}

func TestMirrorNotifier(t *testing.T) {
	client := &recordingClient{}
	m := NewMirrorNotifier(client, -100123, "https://codeforces.com")
	notice := chat.SolvedNotice{Handle: "tourist", Submissions: []codeforces.Submission{
		{Verdict: codeforces.VerdictAccepted, Problem: codeforces.Problem{ContestID: 1, Index: "A", Name: "P"}},
	}}

	if err := m.NotifySolved(context.Background(), notice); err != nil {
		t.Fatalf("NotifySolved() error = %v", err)
	}
	if len(client.chatIDs) != 1 || client.chatIDs[0] != -100123 {
		t.Errorf("chat ids = %v", client.chatIDs)
	}

	client.err = errors.New("bot was blocked")
	if err := m.NotifySolved(context.Background(), notice); err == nil {
		t.Fatal("expected send error")
	}
}
