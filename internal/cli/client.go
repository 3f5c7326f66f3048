package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	BaseURL     string
	AdminSecret string
	HTTP        *http.Client
}

func NewClient(baseURL, adminSecret string) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		AdminSecret: adminSecret,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type JoinResult struct {
	Token string         `json:"token"`
	Team  map[string]any `json:"team"`
}

func (c *Client) Join(ctx context.Context, name string) (JoinResult, error) {
	var out JoinResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/join", "", map[string]any{
		"name": name,
	}, &out)
	return out, err
}

func (c *Client) Market(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/market", "", nil, &out)
	return out, err
}

func (c *Client) State(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/state", "", nil, &out)
	return out, err
}

func (c *Client) Players(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/players", "", nil, &out)
	return out, err
}

func (c *Client) LatestNews(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/news/latest", "", nil, &out)
	return out, err
}

func (c *Client) Me(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/me", token, nil, &out)
	return out, err
}

func (c *Client) Buy(ctx context.Context, token string, quantity int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/trade/buy", token, map[string]any{
		"quantity": quantity,
	}, &out)
	return out, err
}

func (c *Client) Sell(ctx context.Context, token string, quantity int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/trade/sell", token, map[string]any{
		"quantity": quantity,
	}, &out)
	return out, err
}

func (c *Client) Sabotage(ctx context.Context, token, targetID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/sabotage", token, map[string]any{
		"target_id": targetID,
	}, &out)
	return out, err
}

func (c *Client) Leave(ctx context.Context, token string) error {
	return c.jsonRequest(ctx, http.MethodPost, "/v1/leave", token, map[string]any{}, nil)
}

func (c *Client) AdminStart(ctx context.Context) (map[string]any, error) {
	return c.admin(ctx, "/v1/admin/start", nil)
}

func (c *Client) AdminPause(ctx context.Context) (map[string]any, error) {
	return c.admin(ctx, "/v1/admin/pause", nil)
}

func (c *Client) AdminReset(ctx context.Context) (map[string]any, error) {
	return c.admin(ctx, "/v1/admin/reset", nil)
}

func (c *Client) AdminAdvanceRound(ctx context.Context) (map[string]any, error) {
	return c.admin(ctx, "/v1/admin/advance-round", nil)
}

func (c *Client) AdminCrash(ctx context.Context) (map[string]any, error) {
	return c.admin(ctx, "/v1/admin/crash", nil)
}

func (c *Client) AdminTrend(ctx context.Context, trend string) (map[string]any, error) {
	return c.admin(ctx, "/v1/admin/trend", map[string]any{"trend": trend})
}

func (c *Client) AdminNews(ctx context.Context, headline, effect string) (map[string]any, error) {
	return c.admin(ctx, "/v1/admin/news", map[string]any{
		"headline": headline,
		"effect":   effect,
	})
}

func (c *Client) AdminStimulus(ctx context.Context) (map[string]any, error) {
	return c.admin(ctx, "/v1/admin/stimulus", nil)
}

func (c *Client) AdminTick(ctx context.Context) (map[string]any, error) {
	return c.admin(ctx, "/v1/admin/tick", nil)
}

func (c *Client) admin(ctx context.Context, path string, body map[string]any) (map[string]any, error) {
	if strings.TrimSpace(c.AdminSecret) == "" {
		return nil, fmt.Errorf("admin secret is not configured (set ECELL_ADMIN_SECRET)")
	}
	if body == nil {
		body = map[string]any{}
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, path, "", body, &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, token string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if strings.HasPrefix(path, "/v1/admin/") {
		req.Header.Set("X-Admin-Secret", c.AdminSecret)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
