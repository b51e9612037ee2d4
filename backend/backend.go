package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lessslie/olimpo-checkin/types"
)

const (
	checkInPath    = "/attendance/check-in"
	DefaultTimeout = 10 * time.Second
	maxBody        = 1 << 20
)

// TokenSource provides the bearer token sent with each visit.
type TokenSource interface {
	Token() (string, error)
}

type Client struct {
	client *http.Client
	url    *url.URL
	tokens TokenSource
	loc    *time.Location
}

func New(base *url.URL, tokens TokenSource, loc *time.Location, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if loc == nil {
		loc = time.Local
	}
	return &Client{
		client: &http.Client{Timeout: timeout},
		url:    base.JoinPath(checkInPath),
		tokens: tokens,
		loc:    loc,
	}
}

type visitReq struct {
	GymID  string `json:"gym_id"`
	UserID string `json:"user_id"`
}

type visitResp struct {
	Message    string          `json:"message"`
	Membership *membershipJSON `json:"membership"`
}

// RegisterVisit records one visit and returns the membership as it stands
// after the visit. Non-2xx answers come back as *types.RejectedError, and a
// 2xx whose body can't be read wraps types.ErrUnreadableAnswer.
func (c *Client) RegisterVisit(ctx context.Context, facilityID, subjectID string) (types.Membership, error) {
	body, err := json.Marshal(visitReq{GymID: facilityID, UserID: subjectID})
	if err != nil {
		return types.Membership{}, fmt.Errorf("error encoding visit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url.String(), bytes.NewReader(body))
	if err != nil {
		return types.Membership{}, fmt.Errorf("error creating check-in request: %w", err)
	}
	id := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", id)
	req.Header.Set("Idempotency-Key", id)
	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return types.Membership{}, fmt.Errorf("error reading token: %w", err)
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return types.Membership{}, fmt.Errorf("error sending check-in request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return types.Membership{}, fmt.Errorf("error reading check-in response: %w", err)
	}

	var out visitResp
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rej := &types.RejectedError{StatusCode: resp.StatusCode}
		if decodeErr == nil {
			rej.Message = out.Message
			if out.Membership != nil {
				if m, err := out.Membership.toMembership(c.loc); err == nil {
					rej.Membership = &m
				}
			}
		} else {
			rej.Message = strings.TrimSpace(string(raw))
		}
		return types.Membership{}, rej
	}

	if decodeErr != nil {
		return types.Membership{}, fmt.Errorf("%w: %w", types.ErrUnreadableAnswer, decodeErr)
	}
	if out.Membership == nil {
		return types.Membership{}, fmt.Errorf("%w: no membership", types.ErrUnreadableAnswer)
	}
	m, err := out.Membership.toMembership(c.loc)
	if err != nil {
		return types.Membership{}, fmt.Errorf("%w: %w", types.ErrUnreadableAnswer, err)
	}
	return m, nil
}
