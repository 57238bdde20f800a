package discord

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"cf_solved_bot/internal/domain/chat"
	"cf_solved_bot/internal/domain/codeforces"

	"github.com/bwmarrin/discordgo"
)

const (
	maxEmbedFields      = 25
	fieldsPerSubmission = 3
	maxEmbedsPerMessage = 10
	maxMessageEmbedText = 6000
	unratedPlaceholder  = "XXXX"
	untaggedPlaceholder = "None"
	embedColor          = 0x50e6ac
)

// channelSender is the subset of *discordgo.Session the notifier needs.
type channelSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
}

// SolvedNotifier posts solved notices to one fixed channel.
type SolvedNotifier struct {
	sender    channelSender
	channelID string
	siteBase  string
}

func NewSolvedNotifier(sender channelSender, channelID, siteBase string) *SolvedNotifier {
	return &SolvedNotifier{sender: sender, channelID: channelID, siteBase: siteBase}
}

func (n *SolvedNotifier) NotifySolved(ctx context.Context, notice chat.SolvedNotice) error {
	avatar := ""
	if u, err := n.sender.User(notice.MemberID, discordgo.WithContext(ctx)); err == nil && u != nil {
		avatar = u.AvatarURL("")
	}

	for _, batch := range PackEmbeds(BuildSolvedEmbeds(notice, n.siteBase, avatar)) {
		_, err := n.sender.ChannelMessageSendComplex(n.channelID, &discordgo.MessageSend{
			Embeds: batch,
		}, discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("failed to send solved notice for %s to channel %s: %w", notice.Handle, n.channelID, err)
		}
	}
	return nil
}

// BuildSolvedEmbeds renders a notice as embeds with Solved/Rating/Tags fields per
// submission, splitting when the field limit is reached.
func BuildSolvedEmbeds(notice chat.SolvedNotice, siteBase, avatarURL string) []*discordgo.MessageEmbed {
	perEmbed := maxEmbedFields / fieldsPerSubmission
	embeds := make([]*discordgo.MessageEmbed, 0, (len(notice.Submissions)+perEmbed-1)/perEmbed)

	for start := 0; start < len(notice.Submissions); start += perEmbed {
		end := min(start+perEmbed, len(notice.Submissions))
		embed := &discordgo.MessageEmbed{
			Author: &discordgo.MessageEmbedAuthor{
				Name:    notice.Handle,
				URL:     codeforces.ProfileURL(siteBase, notice.Handle),
				IconURL: avatarURL,
			},
			Color:     embedColor,
			Timestamp: notice.CapturedAt.UTC().Format(time.RFC3339),
		}
		for _, s := range notice.Submissions[start:end] {
			embed.Fields = append(embed.Fields, submissionFields(s, siteBase)...)
		}
		embeds = append(embeds, embed)
	}
	return embeds
}

// PackEmbeds groups embeds into messages that respect both the per-message
// embed count and the combined embed text limit.
func PackEmbeds(embeds []*discordgo.MessageEmbed) [][]*discordgo.MessageEmbed {
	var batches [][]*discordgo.MessageEmbed
	var cur []*discordgo.MessageEmbed
	total := 0
	for _, e := range embeds {
		n := EmbedTextLength(e)
		if len(cur) > 0 && (len(cur) == maxEmbedsPerMessage || total+n > maxMessageEmbedText) {
			batches = append(batches, cur)
			cur, total = nil, 0
		}
		cur = append(cur, e)
		total += n
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}

// EmbedTextLength counts the characters Discord charges against the 6000 limit.
func EmbedTextLength(e *discordgo.MessageEmbed) int {
	n := utf8.RuneCountInString(e.Title) + utf8.RuneCountInString(e.Description)
	if e.Author != nil {
		n += utf8.RuneCountInString(e.Author.Name)
	}
	if e.Footer != nil {
		n += utf8.RuneCountInString(e.Footer.Text)
	}
	for _, f := range e.Fields {
		n += utf8.RuneCountInString(f.Name) + utf8.RuneCountInString(f.Value)
	}
	return n
}

func submissionFields(s codeforces.Submission, siteBase string) []*discordgo.MessageEmbedField {
	solved := fmt.Sprintf("[%s](%s)", s.Problem.Name, s.Problem.URL(siteBase))
	if s.Verdict == codeforces.VerdictPartial {
		solved += fmt.Sprintf(" (%s points)", strconv.FormatFloat(s.Points, 'f', -1, 64))
	}

	rating := unratedPlaceholder
	if s.Problem.Rating > 0 {
		rating = strconv.Itoa(s.Problem.Rating)
	}

	tags := strings.Join(s.Problem.Tags, ", ")
	if tags == "" {
		tags = untaggedPlaceholder
	}

	return []*discordgo.MessageEmbedField{
		{Name: "Solved", Value: solved, Inline: true},
		{Name: "Rating", Value: rating, Inline: true},
		{Name: "Tags", Value: tags, Inline: true},
	}
}
