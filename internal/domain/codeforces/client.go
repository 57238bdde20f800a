package codeforces

import "context"

// MaxRecentSubmissions is how many submissions a single user.status call asks for.
const MaxRecentSubmissions = 100

// Client fetches submission history for a handle, most recent first.
type Client interface {
	UserStatus(ctx context.Context, handle string, count int) ([]Submission, error)
}
