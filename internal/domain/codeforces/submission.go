// internal/domain/codeforces/submission.go
package codeforces

import (
	"strconv"
	"time"
)

// GymIDThreshold separates regular contests from gym contests.
// Contest ids at or above it live under /gym/ on the site.
const GymIDThreshold = 100000

// Verdict is the judge outcome reported by the API (e.g. "OK", "PARTIAL").
type Verdict string

const (
	VerdictAccepted Verdict = "OK"
	VerdictPartial  Verdict = "PARTIAL"
)

// Problem identifies a problem on the platform.
type Problem struct {
	ContestID int
	Index     string
	Name      string
	Rating    int // 0 when the problem is unrated
	Tags      []string
}

// Submission is one record from user.status. Records are never cached locally.
type Submission struct {
	ID        int64
	Handle    string
	Problem   Problem
	Verdict   Verdict
	Points    float64 // only meaningful for PARTIAL
	CreatedAt time.Time
}

// IsGym reports whether the problem belongs to a gym contest.
func (p Problem) IsGym() bool {
	return p.ContestID >= GymIDThreshold
}

// URL builds the problem link relative to the site base (e.g. https://codeforces.com).
func (p Problem) URL(siteBase string) string {
	section := "contest"
	if p.IsGym() {
		section = "gym"
	}
	return siteBase + "/" + section + "/" + strconv.Itoa(p.ContestID) + "/problem/" + p.Index
}

// IsAccepted is true only for a full OK verdict.
func (s Submission) IsAccepted() bool {
	return s.Verdict == VerdictAccepted
}

// IsPartialWithPoints is true for PARTIAL verdicts that earned a positive score.
func (s Submission) IsPartialWithPoints() bool {
	return s.Verdict == VerdictPartial && s.Points > 0
}

// ProfileURL is the public profile page for a handle.
func ProfileURL(siteBase, handle string) string {
	return siteBase + "/profile/" + handle
}
