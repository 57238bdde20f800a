package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"cf_solved_bot/internal/domain/codeforces"
	"cf_solved_bot/internal/domain/member"
	cfclient "cf_solved_bot/internal/infra/codeforces"
	idb "cf_solved_bot/internal/infra/database"
)

// Custom application-level errors for handle management
var ErrNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")
var ErrInvalidHandle = fmt.Errorf("handle must be 3-24 letters, digits, '_', '-' or '.'")
var ErrUnknownHandle = fmt.Errorf("handle does not exist on Codeforces")
var ErrHandleTaken = fmt.Errorf("handle is already linked to another member")
var ErrNotLinked = fmt.Errorf("member has no linked handle")

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]{3,24}$`)

// Caller identifies who invoked a command.
type Caller struct {
	ID      string
	IsAdmin bool
}

type HandleService struct {
	members member.Repository
	cf      codeforces.Client
	now     func() time.Time
}

func NewHandleService(members member.Repository, cf codeforces.Client) *HandleService {
	return &HandleService{
		members: members,
		cf:      cf,
		now:     time.Now,
	}
}

// Link associates handle with a guild member. The member's watermark is seeded to
// the link time so the monitor does not replay older submissions.
func (s *HandleService) Link(ctx context.Context, caller Caller, guildID, memberID, handle string) (*member.LinkedUser, error) {
	if !caller.IsAdmin {
		return nil, ErrNotAuthorized
	}

	handle = strings.TrimSpace(handle)
	if !handlePattern.MatchString(handle) {
		return nil, ErrInvalidHandle
	}

	// Check the handle exists before storing it.
	if _, err := s.cf.UserStatus(ctx, handle, 1); err != nil {
		if errors.Is(err, cfclient.ErrHandleNotFound) {
			return nil, ErrUnknownHandle
		}
		return nil, fmt.Errorf("failed to verify handle %s: %w", handle, err)
	}

	linked := &member.LinkedUser{
		GuildID:  guildID,
		MemberID: memberID,
		Handle:   handle,
	}
	if err := s.members.LinkHandle(ctx, linked); err != nil {
		if errors.Is(err, idb.ErrHandleAlreadyLinked) {
			return nil, ErrHandleTaken
		}
		return nil, fmt.Errorf("failed to link handle in repository: %w", err)
	}

	if err := s.members.SetWatermark(ctx, memberID, s.now()); err != nil {
		return linked, fmt.Errorf("handle linked but watermark not seeded: %w", err)
	}
	return linked, nil
}

// Unlink removes the member's handle in the guild.
func (s *HandleService) Unlink(ctx context.Context, caller Caller, guildID, memberID string) (*member.LinkedUser, error) {
	if !caller.IsAdmin {
		return nil, ErrNotAuthorized
	}

	existing, err := s.members.GetLinkedUser(ctx, guildID, memberID)
	if err != nil {
		if errors.Is(err, idb.ErrMemberNotLinked) {
			return nil, ErrNotLinked
		}
		return nil, fmt.Errorf("failed to get linked user for removal: %w", err)
	}

	if err := s.members.UnlinkHandle(ctx, guildID, memberID); err != nil {
		if errors.Is(err, idb.ErrMemberNotLinked) {
			return nil, ErrNotLinked
		}
		return nil, fmt.Errorf("failed to unlink handle in repository: %w", err)
	}
	return existing, nil
}

// List returns every linked member of the guild.
func (s *HandleService) List(ctx context.Context, guildID string) ([]*member.LinkedUser, error) {
	users, err := s.members.ListLinkedUsers(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked users: %w", err)
	}
	return users, nil
}
