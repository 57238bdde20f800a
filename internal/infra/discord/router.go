package discord

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"cf_solved_bot/internal/app"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// MaxMessageLength is Discord's limit for a plain message.
const MaxMessageLength = 2000

const commandTimeout = 3 * time.Minute

// Responder is the subset of *discordgo.Session used to answer commands.
type Responder interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Permissions decides who counts as a bot admin.
type Permissions struct {
	OwnerID   string
	AdminRole string
	RoleName  func(guildID, roleID string) string
}

func (p Permissions) IsAdmin(guildID, userID string, roleIDs []string) bool {
	if p.OwnerID != "" && userID == p.OwnerID {
		return true
	}
	if p.AdminRole == "" || p.RoleName == nil {
		return false
	}
	for _, id := range roleIDs {
		if p.RoleName(guildID, id) == p.AdminRole {
			return true
		}
	}
	return false
}

// Invocation carries one parsed command message.
type Invocation struct {
	GuildID   string
	ChannelID string
	AuthorID  string
	Caller    app.Caller
	Args      []string
	Logger    *logrus.Entry

	resp Responder
}

// Reply sends content, split into several messages if it is too long. Mentions never ping.
func (inv *Invocation) Reply(content string) error {
	for _, chunk := range SplitMessage(content, MaxMessageLength) {
		if _, err := inv.send(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (inv *Invocation) send(content string) (*discordgo.Message, error) {
	return inv.resp.ChannelMessageSendComplex(inv.ChannelID, &discordgo.MessageSend{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	})
}

func (inv *Invocation) edit(messageID, content string) error {
	_, err := inv.resp.ChannelMessageEdit(inv.ChannelID, messageID, content)
	return err
}

type HandlerFunc func(ctx context.Context, inv *Invocation) error

// Router dispatches prefixed guild messages to command handlers.
type Router struct {
	prefix   string
	perms    Permissions
	handlers map[string]HandlerFunc
	logger   *logrus.Entry
}

func NewRouter(prefix string, perms Permissions, logger *logrus.Entry) *Router {
	return &Router{
		prefix:   prefix,
		perms:    perms,
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

func (r *Router) Handle(name string, h HandlerFunc) {
	r.handlers[strings.ToLower(name)] = h
}

// OnMessageCreate is registered with discordgo's AddHandler.
func (r *Router) OnMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	r.Dispatch(ctx, s, m.Message)
}

// Dispatch runs the handler for msg and reports whether one matched.
func (r *Router) Dispatch(ctx context.Context, resp Responder, msg *discordgo.Message) bool {
	if msg == nil || msg.Author == nil || msg.Author.Bot || msg.GuildID == "" {
		return false
	}
	content := strings.TrimSpace(msg.Content)
	if !strings.HasPrefix(content, r.prefix) {
		return false
	}
	fields := strings.Fields(strings.TrimPrefix(content, r.prefix))
	if len(fields) == 0 {
		return false
	}
	name := strings.ToLower(fields[0])
	h, ok := r.handlers[name]
	if !ok {
		return false
	}

	var roles []string
	if msg.Member != nil {
		roles = msg.Member.Roles
	}
	logger := r.logger.WithFields(logrus.Fields{
		"command":    name,
		"guild_id":   msg.GuildID,
		"channel_id": msg.ChannelID,
		"author_id":  msg.Author.ID,
	})
	inv := &Invocation{
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		AuthorID:  msg.Author.ID,
		Caller: app.Caller{
			ID:      msg.Author.ID,
			IsAdmin: r.perms.IsAdmin(msg.GuildID, msg.Author.ID, roles),
		},
		Args:   fields[1:],
		Logger: logger,
		resp:   resp,
	}

	logger.Info("Command received")
	if err := h(ctx, inv); err != nil {
		logger.WithError(err).Error("Command failed")
		if replyErr := inv.Reply("Something went wrong while running that command. Please try again later."); replyErr != nil {
			logger.WithError(replyErr).Error("Failed to send error reply")
		}
	}
	return true
}

// SplitMessage breaks content into chunks of at most limit characters, preferring
// line boundaries. Lines longer than limit are cut between runes.
func SplitMessage(content string, limit int) []string {
	if utf8.RuneCountInString(content) <= limit {
		return []string{content}
	}
	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}
	for _, line := range strings.SplitAfter(content, "\n") {
		n := utf8.RuneCountInString(line)
		for n > limit {
			flush()
			cut := runeOffset(line, limit)
			chunks = append(chunks, line[:cut])
			line = line[cut:]
			n -= limit
		}
		if curLen+n > limit {
			flush()
		}
		cur.WriteString(line)
		curLen += n
	}
	flush()
	return chunks
}

// runeOffset is the byte offset just past the first n runes of s.
func runeOffset(s string, n int) int {
	off := 0
	for i := 0; i < n && off < len(s); i++ {
		_, size := utf8.DecodeRuneInString(s[off:])
		off += size
	}
	return off
}

// ParseMemberMention accepts <@id>, <@!id> or a bare numeric id.
func ParseMemberMention(arg string) (string, bool) {
	id := arg
	if strings.HasPrefix(id, "<@") && strings.HasSuffix(id, ">") {
		id = strings.TrimPrefix(strings.TrimSuffix(id[2:], ">"), "!")
	}
	if id == "" {
		return "", false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return id, true
}
