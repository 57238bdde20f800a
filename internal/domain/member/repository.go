package member

import (
	"context"
	"time"
)

// Repository is the user directory shared by the monitor, the report and the handle commands.
type Repository interface {
	ListLinkedUsers(ctx context.Context, guildID string) ([]*LinkedUser, error)
	GetLinkedUser(ctx context.Context, guildID, memberID string) (*LinkedUser, error)
	LinkHandle(ctx context.Context, u *LinkedUser) error
	UnlinkHandle(ctx context.Context, guildID, memberID string) error

	// GetWatermark returns the instant up to which the member's submissions were
	// already announced. A member that was never polled reads as Unix 0.
	GetWatermark(ctx context.Context, memberID string) (time.Time, error)
	// SetWatermark advances the watermark. Implementations must never move it
	// backwards and must apply the update atomically per member.
	SetWatermark(ctx context.Context, memberID string, at time.Time) error
}
