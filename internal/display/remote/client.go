// Package remote is the HTTP client for the order API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"kitchen-display/internal/domain"
)

type Client struct {
	base string
	hc   *http.Client
}

func NewClient(base string) *Client {
	return &Client{base: strings.TrimRight(base, "/"), hc: &http.Client{}}
}

func (c *Client) FetchActive(ctx context.Context) ([]domain.Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/orders/active", nil)
	if err != nil {
		return nil, err
	}
	var orders []domain.Order
	if err := c.do(req, &orders); err != nil {
		return nil, fmt.Errorf("fetch active orders: %w", err)
	}
	return orders, nil
}

func (c *Client) SetOrderStatus(ctx context.Context, orderID string, st domain.OrderStatus) error {
	if err := c.put(ctx, "/orders/"+orderID+"/status", map[string]string{"status": string(st)}); err != nil {
		return fmt.Errorf("set order %s status: %w", orderID, err)
	}
	return nil
}

func (c *Client) SetItemStatus(ctx context.Context, itemID string, st domain.ItemStatus) error {
	if err := c.put(ctx, "/items/"+itemID+"/status", map[string]string{"status": string(st)}); err != nil {
		return fmt.Errorf("set item %s status: %w", itemID, err)
	}
	return nil
}

func (c *Client) Stats(ctx context.Context) (domain.Stats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/stats", nil)
	if err != nil {
		return domain.Stats{}, err
	}
	var st domain.Stats
	if err := c.do(req, &st); err != nil {
		return domain.Stats{}, fmt.Errorf("fetch stats: %w", err)
	}
	return st, nil
}

func (c *Client) put(ctx context.Context, path string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.base+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: %s: %s", req.Method, req.URL.Path, resp.Status, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
