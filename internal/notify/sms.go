package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SMSSender delivers a text message and returns the provider's raw response.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) (string, error)
}

// MSpaceSender calls the mSpace "sendtext" API, which takes every parameter as
// a path segment of a GET request.
type MSpaceSender struct {
	baseURL  string
	username string
	password string
	senderID string
	client   *http.Client
}

var _ SMSSender = (*MSpaceSender)(nil)

// NewMSpaceSender creates a sender with a short client timeout.
func NewMSpaceSender(baseURL, username, password, senderID string) *MSpaceSender {
	return &MSpaceSender{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		senderID: senderID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *MSpaceSender) requestURL(phone, message string) string {
	return fmt.Sprintf("%s/username=%s/password=%s/senderid=%s/recipient=%s/message=%s",
		s.baseURL,
		url.PathEscape(s.username),
		url.PathEscape(s.password),
		url.PathEscape(s.senderID),
		url.PathEscape(phone),
		url.PathEscape(message),
	)
}

func (s *MSpaceSender) Send(ctx context.Context, phone, message string) (string, error) {
	if s.username == "" {
		return "", errors.New("mspace credentials not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.requestURL(phone, message), nil)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("mspace returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return string(body), nil
}
