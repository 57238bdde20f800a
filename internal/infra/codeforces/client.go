package codeforces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cf_solved_bot/internal/domain/codeforces"

	"golang.org/x/time/rate"
)

var (
	ErrHandleNotFound = errors.New("codeforces handle not found")
	ErrRateLimited    = errors.New("codeforces call limit exceeded")
	ErrUnavailable    = errors.New("codeforces api unavailable")
)

// APIError describes a failed user.status call. Kind is one of the sentinels above.
type APIError struct {
	Kind       error
	StatusCode int
	Comment    string
}

func (e *APIError) Error() string {
	if e.Comment != "" {
		return fmt.Sprintf("codeforces status %d: %s", e.StatusCode, e.Comment)
	}
	return fmt.Sprintf("codeforces status %d", e.StatusCode)
}

func (e *APIError) Unwrap() error { return e.Kind }

// IsTransient reports whether a later retry may succeed.
// Timeouts and transport errors count as transient; unknown handles do not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrHandleNotFound)
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// NewClient builds a client for baseURL (e.g. https://codeforces.com).
// Consecutive requests are spaced by at least interval; zero disables pacing.
func NewClient(baseURL string, timeout, interval time.Duration) *Client {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// BaseURL returns the site root used for links.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type userStatusResponse struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
	Result  []struct {
		ID                  int64   `json:"id"`
		CreationTimeSeconds int64   `json:"creationTimeSeconds"`
		Verdict             string  `json:"verdict"`
		Points              float64 `json:"points"`
		Problem             struct {
			ContestID int      `json:"contestId"`
			Index     string   `json:"index"`
			Name      string   `json:"name"`
			Rating    int      `json:"rating"`
			Tags      []string `json:"tags"`
		} `json:"problem"`
	} `json:"result"`
}

// UserStatus returns up to count most recent submissions of handle in API order.
func (c *Client) UserStatus(ctx context.Context, handle string, count int) ([]codeforces.Submission, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, fmt.Errorf("handle is empty")
	}
	if count <= 0 {
		count = codeforces.MaxRecentSubmissions
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for codeforces rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("handle", handle)
	q.Set("from", "1")
	q.Set("count", strconv.Itoa(count))
	endpoint := c.baseURL + "/api/user.status?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create codeforces request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user.status for %s: %w", handle, errors.Join(ErrUnavailable, err))
	}
	defer resp.Body.Close()

	var parsed userStatusResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || parsed.Status != "OK" {
		return nil, classify(resp.StatusCode, parsed.Comment)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode user.status response: %w", decodeErr)
	}

	submissions := make([]codeforces.Submission, 0, len(parsed.Result))
	for _, r := range parsed.Result {
		tags := r.Problem.Tags
		if tags == nil {
			tags = []string{}
		}
		submissions = append(submissions, codeforces.Submission{
			ID:     r.ID,
			Handle: handle,
			Problem: codeforces.Problem{
				ContestID: r.Problem.ContestID,
				Index:     r.Problem.Index,
				Name:      r.Problem.Name,
				Rating:    r.Problem.Rating,
				Tags:      tags,
			},
			Verdict:   codeforces.Verdict(r.Verdict),
			Points:    r.Points,
			CreatedAt: time.Unix(r.CreationTimeSeconds, 0).UTC(),
		})
	}
	return submissions, nil
}

func classify(statusCode int, comment string) *APIError {
	apiErr := &APIError{StatusCode: statusCode, Comment: comment}
	lower := strings.ToLower(comment)
	switch {
	case strings.Contains(lower, "not found"):
		apiErr.Kind = ErrHandleNotFound
	case statusCode == http.StatusTooManyRequests, strings.Contains(lower, "call limit exceeded"):
		apiErr.Kind = ErrRateLimited
	default:
		apiErr.Kind = ErrUnavailable
	}
	return apiErr
}
