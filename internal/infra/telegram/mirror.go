package telegram

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"cf_solved_bot/internal/domain/chat"
	"cf_solved_bot/internal/domain/codeforces"
	"cf_solved_bot/internal/domain/telegram"
)

const maxTelegramMessage = 4096

// MirrorNotifier repeats solved notices into one Telegram chat.
type MirrorNotifier struct {
	client   telegram.Client
	chatID   int64
	siteBase string
}

func NewMirrorNotifier(client telegram.Client, chatID int64, siteBase string) *MirrorNotifier {
	return &MirrorNotifier{client: client, chatID: chatID, siteBase: siteBase}
}

func (m *MirrorNotifier) NotifySolved(ctx context.Context, notice chat.SolvedNotice) error {
	for _, text := range FormatSolvedHTML(notice, m.siteBase) {
		if err := m.client.SendMessage(ctx, m.chatID, text); err != nil {
			return fmt.Errorf("failed to mirror solved notice for %s to chat %d: %w", notice.Handle, m.chatID, err)
		}
	}
	return nil
}

// FormatSolvedHTML renders one line per submission under a header, split to fit Telegram's limit.
func FormatSolvedHTML(notice chat.SolvedNotice, siteBase string) []string {
	header := fmt.Sprintf("<b><a href=\"%s\">%s</a></b> solved:\n",
		html.EscapeString(codeforces.ProfileURL(siteBase, notice.Handle)), html.EscapeString(notice.Handle))

	var messages []string
	var b strings.Builder
	b.WriteString(header)
	for _, s := range notice.Submissions {
		line := submissionLine(s, siteBase)
		if b.Len()+len(line) > maxTelegramMessage && b.Len() > len(header) {
			messages = append(messages, b.String())
			b.Reset()
			b.WriteString(header)
		}
		b.WriteString(line)
	}
	return append(messages, b.String())
}

func submissionLine(s codeforces.Submission, siteBase string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "• <a href=\"%s\">%s</a>", html.EscapeString(s.Problem.URL(siteBase)), html.EscapeString(s.Problem.Name))
	if s.Verdict == codeforces.VerdictPartial {
		fmt.Fprintf(&b, " (%s points)", strconv.FormatFloat(s.Points, 'f', -1, 64))
	}
	if s.Problem.Rating > 0 {
		fmt.Fprintf(&b, " [%d]", s.Problem.Rating)
	}
	if len(s.Problem.Tags) > 0 {
		fmt.Fprintf(&b, " <i>%s</i>", html.EscapeString(strings.Join(s.Problem.Tags, ", ")))
	}
	b.WriteString("\n")
	return b.String()
}
