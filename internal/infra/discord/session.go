package discord

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// GuildSummary is what meta guilds prints for each guild.
type GuildSummary struct {
	ID      string
	Name    string
	OwnerID string
	Icon    string
}

// Session wraps the gateway connection and its state cache.
type Session struct {
	*discordgo.Session
	logger    *logrus.Entry
	ready     chan struct{}
	readyOnce sync.Once
}

func NewSession(token string, logger *logrus.Entry) (*Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentGuilds | discordgo.IntentGuildMessages | discordgo.IntentMessageContent
	dg.StateEnabled = true

	s := &Session{Session: dg, logger: logger, ready: make(chan struct{})}
	dg.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		logger.WithFields(logrus.Fields{
			"user":   r.User.Username,
			"guilds": len(r.Guilds),
		}).Info("Discord session ready")
		s.readyOnce.Do(func() { close(s.ready) })
	})
	return s, nil
}

// Ready is closed after the first READY event. Reconnects do not reopen it.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// GuildIDs lists the guilds currently in the state cache.
func (s *Session) GuildIDs() []string {
	s.State.RLock()
	defer s.State.RUnlock()
	ids := make([]string, 0, len(s.State.Guilds))
	for _, g := range s.State.Guilds {
		ids = append(ids, g.ID)
	}
	return ids
}

func (s *Session) Guilds() []GuildSummary {
	s.State.RLock()
	defer s.State.RUnlock()
	out := make([]GuildSummary, 0, len(s.State.Guilds))
	for _, g := range s.State.Guilds {
		out = append(out, GuildSummary{ID: g.ID, Name: g.Name, OwnerID: g.OwnerID, Icon: g.Icon})
	}
	return out
}

// RoleName resolves a role id from the state cache, or "" if unknown.
func (s *Session) RoleName(guildID, roleID string) string {
	role, err := s.State.Role(guildID, roleID)
	if err != nil || role == nil {
		return ""
	}
	return role.Name
}

// Latency is the last gateway heartbeat round trip.
func (s *Session) Latency() time.Duration {
	return s.HeartbeatLatency()
}
