package member

import "time"

// LinkedUser is a guild member with a linked Codeforces handle.
type LinkedUser struct {
	GuildID  string
	MemberID string
	Handle   string
	LinkedAt time.Time
}
