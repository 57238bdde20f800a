package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cf_solved_bot/internal/app"
	"cf_solved_bot/internal/domain/member"
)

type solvedReporter interface {
	Solved(ctx context.Context, guildID, startRaw, endRaw string) (string, error)
}

type handleManager interface {
	Link(ctx context.Context, caller app.Caller, guildID, memberID, handle string) (*member.LinkedUser, error)
	Unlink(ctx context.Context, caller app.Caller, guildID, memberID string) (*member.LinkedUser, error)
	List(ctx context.Context, guildID string) ([]*member.LinkedUser, error)
}

type botControl interface {
	Uptime() string
	GitHistory(ctx context.Context) string
	Restart(caller app.Caller) error
	Kill(caller app.Caller) error
}

// Gateway exposes the connection details meta commands report on.
type Gateway interface {
	Latency() time.Duration
	Guilds() []GuildSummary
}

// Commands holds the services behind the chat commands.
type Commands struct {
	Prefix   string
	ZoneName string
	Reports  solvedReporter
	Handles  handleManager
	Meta     botControl
	Gateway  Gateway
}

// Register wires every command into r.
func (c *Commands) Register(r *Router) {
	r.Handle("solved", c.solved)
	r.Handle("handle", c.handle)
	r.Handle("meta", c.meta)
	r.Handle("help", c.help)
}

func (c *Commands) solved(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) > 2 {
		return inv.Reply(fmt.Sprintf("Usage: `%ssolved [start] [end]` with times as HHMM, e.g. `%ssolved 0600 1800`", c.Prefix, c.Prefix))
	}
	var start, end string
	if len(inv.Args) > 0 {
		start = inv.Args[0]
	}
	if len(inv.Args) > 1 {
		end = inv.Args[1]
	}

	text, err := c.Reports.Solved(ctx, inv.GuildID, start, end)
	if err != nil {
		if errors.Is(err, app.ErrInvalidClock) {
			inv.Logger.WithError(err).Info("Invalid solved window")
			return inv.Reply(err.Error())
		}
		return err
	}
	return inv.Reply(text)
}

func (c *Commands) handle(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) == 0 {
		return inv.Reply(c.handleUsage())
	}
	switch strings.ToLower(inv.Args[0]) {
	case "set":
		return c.handleSet(ctx, inv)
	case "remove":
		return c.handleRemove(ctx, inv)
	case "list":
		return c.handleList(ctx, inv)
	default:
		return inv.Reply(c.handleUsage())
	}
}

func (c *Commands) handleUsage() string {
	return fmt.Sprintf("Usage: `%shandle set @member <handle>`, `%shandle remove @member` or `%shandle list`", c.Prefix, c.Prefix, c.Prefix)
}

func (c *Commands) handleSet(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) != 3 {
		return inv.Reply(fmt.Sprintf("Usage: `%shandle set @member <handle>`", c.Prefix))
	}
	memberID, ok := ParseMemberMention(inv.Args[1])
	if !ok {
		return inv.Reply("Please mention the member or give their numeric id.")
	}

	linked, err := c.Handles.Link(ctx, inv.Caller, inv.GuildID, memberID, inv.Args[2])
	if err != nil {
		log := inv.Logger.WithError(err).WithField("member_id", memberID)
		switch {
		case errors.Is(err, app.ErrNotAuthorized):
			log.Warn("Unauthorized handle set")
			return inv.Reply("You are not allowed to use this command.")
		case errors.Is(err, app.ErrInvalidHandle):
			return inv.Reply("Invalid handle: " + app.ErrInvalidHandle.Error() + ".")
		case errors.Is(err, app.ErrUnknownHandle):
			return inv.Reply(fmt.Sprintf("Handle `%s` does not exist on Codeforces.", inv.Args[2]))
		case errors.Is(err, app.ErrHandleTaken):
			return inv.Reply(fmt.Sprintf("Handle `%s` is already linked to another member.", inv.Args[2]))
		case linked != nil:
			// Linked, but the watermark seed failed; the monitor starts from the epoch.
			log.Error("Handle linked without watermark")
			return inv.Reply(fmt.Sprintf("Handle for <@%s> set to `%s`.", memberID, linked.Handle))
		default:
			return err
		}
	}
	inv.Logger.WithField("member_id", memberID).WithField("handle", linked.Handle).Info("Handle linked")
	return inv.Reply(fmt.Sprintf("Handle for <@%s> set to `%s`.", memberID, linked.Handle))
}

func (c *Commands) handleRemove(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) != 2 {
		return inv.Reply(fmt.Sprintf("Usage: `%shandle remove @member`", c.Prefix))
	}
	memberID, ok := ParseMemberMention(inv.Args[1])
	if !ok {
		return inv.Reply("Please mention the member or give their numeric id.")
	}

	removed, err := c.Handles.Unlink(ctx, inv.Caller, inv.GuildID, memberID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrNotAuthorized):
			inv.Logger.Warn("Unauthorized handle remove")
			return inv.Reply("You are not allowed to use this command.")
		case errors.Is(err, app.ErrNotLinked):
			return inv.Reply(fmt.Sprintf("<@%s> has no linked handle.", memberID))
		default:
			return err
		}
	}
	return inv.Reply(fmt.Sprintf("Removed handle `%s` for <@%s>.", removed.Handle, memberID))
}

func (c *Commands) handleList(ctx context.Context, inv *Invocation) error {
	users, err := c.Handles.List(ctx, inv.GuildID)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return inv.Reply("No handles are linked in this server.")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**Linked handles (%d):**\n", len(users))
	for _, u := range users {
		fmt.Fprintf(&b, "<@%s>: `%s`\n", u.MemberID, u.Handle)
	}
	return inv.Reply(b.String())
}

func (c *Commands) meta(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) == 0 {
		return inv.Reply(c.metaUsage())
	}
	switch strings.ToLower(inv.Args[0]) {
	case "ping":
		start := time.Now()
		msg, err := inv.send(":ping_pong: Pong!")
		if err != nil {
			return err
		}
		rest := time.Since(start)
		return inv.edit(msg.ID, fmt.Sprintf("REST API latency: %dms\nGateway API latency: %dms",
			rest.Milliseconds(), c.Gateway.Latency().Milliseconds()))
	case "png":
		return inv.Reply("Pong!")
	case "git":
		return inv.Reply("```yaml\n" + c.Meta.GitHistory(ctx) + "```")
	case "uptime":
		return inv.Reply("The bot has been running for " + c.Meta.Uptime())
	case "guilds":
		if !inv.Caller.IsAdmin {
			return inv.Reply("You are not allowed to use this command.")
		}
		lines := make([]string, 0)
		for _, g := range c.Gateway.Guilds() {
			lines = append(lines, fmt.Sprintf("Guild ID: %s | Name: %s | Owner: %s | Icon: %s", g.ID, g.Name, g.OwnerID, g.Icon))
		}
		return inv.Reply("```" + strings.Join(lines, "\n") + "```")
	case "restart":
		return c.shutdown(inv, "Restarting...", c.Meta.Restart)
	case "kill":
		return c.shutdown(inv, "Dying...", c.Meta.Kill)
	default:
		return inv.Reply(c.metaUsage())
	}
}

func (c *Commands) shutdown(inv *Invocation, farewell string, stop func(app.Caller) error) error {
	if !inv.Caller.IsAdmin {
		inv.Logger.Warn("Unauthorized shutdown attempt")
		return inv.Reply("You are not allowed to use this command.")
	}
	if err := inv.Reply(farewell); err != nil {
		inv.Logger.WithError(err).Warn("Failed to send shutdown reply")
	}
	return stop(inv.Caller)
}

func (c *Commands) metaUsage() string {
	return fmt.Sprintf("Usage: `%smeta <ping|png|git|uptime|guilds|restart|kill>`", c.Prefix)
}

func (c *Commands) help(_ context.Context, inv *Invocation) error {
	p := c.Prefix
	var b strings.Builder
	b.WriteString("**Commands**\n")
	fmt.Fprintf(&b, "`%ssolved [start] [end]`: problems solved today between two HHMM times (%s)\n", p, c.ZoneName)
	fmt.Fprintf(&b, "`%shandle list`: linked Codeforces handles\n", p)
	fmt.Fprintf(&b, "`%smeta ping|png|git|uptime`: bot information\n", p)
	if inv.Caller.IsAdmin {
		b.WriteString("\n**Admin**\n")
		fmt.Fprintf(&b, "`%shandle set @member <handle>`: link a handle\n", p)
		fmt.Fprintf(&b, "`%shandle remove @member`: unlink a handle\n", p)
		fmt.Fprintf(&b, "`%smeta guilds|restart|kill`: manage the bot\n", p)
	}
	return inv.Reply(b.String())
}
