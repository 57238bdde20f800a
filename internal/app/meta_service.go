package app

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// RestartExitCode tells the process supervisor to start the bot again.
const RestartExitCode = 42

// GitRunner runs a git subcommand and returns its stdout.
type GitRunner func(ctx context.Context, args ...string) ([]byte, error)

// MetaService backs the bot-management commands.
type MetaService struct {
	startedAt time.Time
	now       func() time.Time
	shutdown  func(code int)
	git       GitRunner
}

// NewMetaService records the start time. shutdown is invoked with the exit code
// on restart/kill and is expected to stop the process.
func NewMetaService(shutdown func(code int)) *MetaService {
	return &MetaService{
		startedAt: time.Now(),
		now:       time.Now,
		shutdown:  shutdown,
		git:       runGit,
	}
}

func runGit(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	env := []string{"LANGUAGE=C", "LANG=C", "LC_ALL=C"}
	if p, ok := os.LookupEnv("PATH"); ok {
		env = append(env, "PATH="+p)
	}
	cmd.Env = env
	return cmd.Output()
}

// Uptime is the human-readable running time.
func (s *MetaService) Uptime() string {
	return PrettyDuration(s.now().Sub(s.startedAt))
}

// PrettyDuration renders d as "1 day 2 hours 5 seconds", skipping zero units.
func PrettyDuration(d time.Duration) string {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}
	units := []struct {
		name string
		size int64
	}{
		{"day", 86400},
		{"hour", 3600},
		{"minute", 60},
		{"second", 1},
	}

	parts := make([]string, 0, len(units))
	for _, u := range units {
		n := total / u.size
		total %= u.size
		if n == 0 {
			continue
		}
		label := u.name
		if n > 1 {
			label += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, label))
	}
	if len(parts) == 0 {
		return "0 seconds"
	}
	return strings.Join(parts, " ")
}

// GitHistory reports the current branch and the last five commits.
func (s *MetaService) GitHistory(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	branch, err := s.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "Fetching git info failed"
	}
	history, err := s.git(ctx, "log", "--oneline", "-5")
	if err != nil {
		return "Fetching git info failed"
	}
	return "Branch:\n" + indent(strings.TrimSpace(string(branch)), "  ") +
		"\nCommits:\n" + indent(strings.TrimSpace(string(history)), "  ")
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

// Restart asks the supervisor to restart the bot.
func (s *MetaService) Restart(caller Caller) error {
	if !caller.IsAdmin {
		return ErrNotAuthorized
	}
	s.shutdown(RestartExitCode)
	return nil
}

// Kill stops the bot for good.
func (s *MetaService) Kill(caller Caller) error {
	if !caller.IsAdmin {
		return ErrNotAuthorized
	}
	s.shutdown(0)
	return nil
}
