package store

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

	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
)

// Base44 returns created_date without a zone offset; it is UTC.
const base44DateLayout = "2006-01-02T15:04:05.999999"

// Base44Client talks to a Base44 entity collection holding chat records.
type Base44Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewBase44Client(baseURL, apiKey string, timeout time.Duration) *Base44Client {
	return &Base44Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type base44Time struct{ time.Time }

func (t *base44Time) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.ParseInLocation(base44DateLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("parse base44 time %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

type base44Record struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Message     string      `json:"message"`
	CreatedAt   *base44Time `json:"createdAt"`
	CreatedDate *base44Time `json:"created_date"`
}

func (r base44Record) toMessage() domain.ChatMessage {
	msg := domain.ChatMessage{ID: r.ID, Username: r.Username, Message: r.Message}
	switch {
	case r.CreatedAt != nil && !r.CreatedAt.IsZero():
		msg.CreatedAt = r.CreatedAt.UTC()
	case r.CreatedDate != nil && !r.CreatedDate.IsZero():
		msg.CreatedAt = r.CreatedDate.UTC()
	}
	return msg
}

func (c *Base44Client) FetchAll(ctx context.Context) ([]domain.ChatMessage, error) {
	var recs []base44Record
	if err := c.do(ctx, http.MethodGet, nil, nil, &recs); err != nil {
		return nil, err
	}
	out := make([]domain.ChatMessage, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toMessage())
	}
	return out, nil
}

func (c *Base44Client) Append(ctx context.Context, username, text string) (domain.ChatMessage, error) {
	body := struct {
		Username string `json:"username"`
		Message  string `json:"message"`
	}{username, text}
	var rec base44Record
	if err := c.do(ctx, http.MethodPost, nil, body, &rec); err != nil {
		return domain.ChatMessage{}, err
	}
	return rec.toMessage(), nil
}

func (c *Base44Client) IsUsernameTaken(ctx context.Context, username string) (bool, error) {
	filter, err := json.Marshal([][]string{{"username", "is", username}})
	if err != nil {
		return false, fmt.Errorf("%w: encode filter: %w", core.ErrStoreUnavailable, err)
	}
	var recs []json.RawMessage
	if err := c.do(ctx, http.MethodGet, url.Values{"filter": {string(filter)}}, nil, &recs); err != nil {
		return false, err
	}
	return len(recs) > 0, nil
}

func (c *Base44Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Base44Client) do(ctx context.Context, method string, query url.Values, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode body: %w", core.ErrStoreUnavailable, err)
		}
		rdr = bytes.NewReader(b)
	}
	target := c.baseURL
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", core.ErrStoreUnavailable, err)
	}
	req.Header.Set("api_key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s request: %w", core.ErrStoreUnavailable, method, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("module", "store.base44").
		Str("method", method).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("base44 call")

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned %d: %s", core.ErrStoreUnavailable, method, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", core.ErrStoreUnavailable, err)
	}
	return nil
}
