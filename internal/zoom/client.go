// Package zoom integrates with the Zoom REST API and its webhooks. API calls
// act on behalf of the signed-in user: the frontend forwards the user's Zoom
// access token in the X-Zoom-Token header.
package zoom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/meetballs/backend/config"
	"github.com/meetballs/backend/pkg/apperr"
)

const requestTimeout = 5 * time.Second

// User is the Zoom account profile.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Meeting is a Zoom meeting as returned by the API.
type Meeting struct {
	ID        int64     `json:"id"`
	UUID      string    `json:"uuid"`
	Topic     string    `json:"topic"`
	Agenda    string    `json:"agenda"`
	StartTime time.Time `json:"start_time"`
	Duration  int       `json:"duration"` // minutes
	JoinURL   string    `json:"join_url"`
	Password  string    `json:"password"`
}

type meetingList struct {
	Meetings []Meeting `json:"meetings"`
}

// Client calls the Zoom REST API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a Zoom API client.
func NewClient(cfg config.ZoomConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}
}

func (c *Client) get(ctx context.Context, accessToken, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return apperr.Internal("build zoom request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return apperr.UpstreamTimeout("zoom request timed out", err)
		}
		return apperr.Upstream("zoom request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return apperr.Unauthorized("zoom token invalid or expired")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return apperr.Upstream(fmt.Sprintf("zoom api returned %d", resp.StatusCode), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Upstream("decode zoom response", err)
	}
	return nil
}

// GetUser returns the token owner's Zoom profile.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var u User
	if err := c.get(ctx, accessToken, "/v2/users/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetMeeting returns one Zoom meeting by numeric ID.
func (c *Client) GetMeeting(ctx context.Context, accessToken, meetingID string) (*Meeting, error) {
	var m Meeting
	if err := c.get(ctx, accessToken, "/v2/meetings/"+url.PathEscape(meetingID), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListUpcomingMeetings returns the token owner's upcoming Zoom meetings.
func (c *Client) ListUpcomingMeetings(ctx context.Context, accessToken string) ([]Meeting, error) {
	q := url.Values{"type": {"upcoming"}}
	var list meetingList
	if err := c.get(ctx, accessToken, "/v2/users/me/meetings", q, &list); err != nil {
		return nil, err
	}
	return list.Meetings, nil
}
