package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cf_solved_bot/internal/domain/member"

	"github.com/lib/pq"
)

// Custom errors
var ErrMemberNotLinked = fmt.Errorf("member has no linked handle")
var ErrHandleAlreadyLinked = fmt.Errorf("handle is already linked to another member in this guild")

const uniqueViolation = "23505"

type PostgresMemberRepository struct {
	db *sql.DB
}

func NewPostgresMemberRepository(db *sql.DB) *PostgresMemberRepository {
	return &PostgresMemberRepository{db: db}
}

func (r *PostgresMemberRepository) ListLinkedUsers(ctx context.Context, guildID string) ([]*member.LinkedUser, error) {
	query := `SELECT guild_id, member_id, handle, linked_at
               FROM cf_handles WHERE guild_id = $1 ORDER BY linked_at, member_id`

	rows, err := r.db.QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("error listing linked users: %w", err)
	}
	defer rows.Close()

	users := make([]*member.LinkedUser, 0)
	for rows.Next() {
		u := &member.LinkedUser{}
		if err := rows.Scan(&u.GuildID, &u.MemberID, &u.Handle, &u.LinkedAt); err != nil {
			return nil, fmt.Errorf("error scanning linked user: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating linked users: %w", err)
	}
	return users, nil
}

func (r *PostgresMemberRepository) GetLinkedUser(ctx context.Context, guildID, memberID string) (*member.LinkedUser, error) {
	query := `SELECT guild_id, member_id, handle, linked_at
               FROM cf_handles WHERE guild_id = $1 AND member_id = $2`
	u := &member.LinkedUser{}
	err := r.db.QueryRowContext(ctx, query, guildID, memberID).Scan(&u.GuildID, &u.MemberID, &u.Handle, &u.LinkedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrMemberNotLinked
		}
		return nil, fmt.Errorf("error getting linked user: %w", err)
	}
	return u, nil
}

// LinkHandle creates or replaces the member's handle in the guild.
func (r *PostgresMemberRepository) LinkHandle(ctx context.Context, u *member.LinkedUser) error {
	query := `INSERT INTO cf_handles (guild_id, member_id, handle)
               VALUES ($1, $2, $3)
               ON CONFLICT (guild_id, member_id) DO UPDATE SET handle = EXCLUDED.handle, linked_at = NOW()
               RETURNING linked_at`

	err := r.db.QueryRowContext(ctx, query, u.GuildID, u.MemberID, u.Handle).Scan(&u.LinkedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrHandleAlreadyLinked
		}
		return fmt.Errorf("error linking handle: %w", err)
	}
	return nil
}

func (r *PostgresMemberRepository) UnlinkHandle(ctx context.Context, guildID, memberID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cf_handles WHERE guild_id = $1 AND member_id = $2`, guildID, memberID)
	if err != nil {
		return fmt.Errorf("error unlinking handle: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading unlink result: %w", err)
	}
	if n == 0 {
		return ErrMemberNotLinked
	}
	return nil
}

func (r *PostgresMemberRepository) GetWatermark(ctx context.Context, memberID string) (time.Time, error) {
	var unix int64
	err := r.db.QueryRowContext(ctx, `SELECT last_solved_at FROM solved_watermarks WHERE member_id = $1`, memberID).Scan(&unix)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Unix(0, 0).UTC(), nil
		}
		return time.Time{}, fmt.Errorf("error getting watermark: %w", err)
	}
	return time.Unix(unix, 0).UTC(), nil
}

// SetWatermark upserts the watermark; GREATEST keeps it monotonic under concurrent writers.
func (r *PostgresMemberRepository) SetWatermark(ctx context.Context, memberID string, at time.Time) error {
	query := `INSERT INTO solved_watermarks (member_id, last_solved_at)
               VALUES ($1, $2)
               ON CONFLICT (member_id) DO UPDATE
               SET last_solved_at = GREATEST(solved_watermarks.last_solved_at, EXCLUDED.last_solved_at),
                   updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, memberID, at.Unix()); err != nil {
		return fmt.Errorf("error setting watermark: %w", err)
	}
	return nil
}
