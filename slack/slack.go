// Package slack posts the cart, grouped by store, to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"pantrypal"
	"pantrypal/inventory"
)

var ErrEmptyList = errors.New("shopping list is empty")

type Client struct {
	webhookURL string
	httpClient pantrypal.HTTPClient
}

func NewClient(webhookURL string, httpClient pantrypal.HTTPClient) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

type message struct {
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text"`
}

func (c *Client) PostMessage(ctx context.Context, channel string, text string) error {
	if c.webhookURL == "" {
		return fmt.Errorf("missing Slack webhook URL")
	}
	payload, err := json.Marshal(message{Channel: channel, Text: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}
	return nil
}

// PostShoppingList formats groups with FormatShoppingList and posts the result.
func (c *Client) PostShoppingList(ctx context.Context, channel string, groups []inventory.StoreGroup) error {
	if len(groups) == 0 {
		return ErrEmptyList
	}
	if err := c.PostMessage(ctx, channel, FormatShoppingList(groups)); err != nil {
		return err
	}
	slog.Info("NOTIFY: Shopping list posted", "channel", channel, "stores", len(groups))
	return nil
}

// FormatShoppingList renders one section per store with its items and subtotal, followed by
// the grand total, using Slack mrkdwn.
func FormatShoppingList(groups []inventory.StoreGroup) string {
	var b strings.Builder
	b.WriteString("*Shopping list*\n")
	for _, g := range groups {
		fmt.Fprintf(&b, "\n*%s* ($%s)\n", g.Store, g.Total)
		for _, it := range g.Items {
			fmt.Fprintf(&b, "• %s x%d @ $%s = $%s\n", it.Name, it.Count, it.Cost, it.Subtotal())
		}
	}
	fmt.Fprintf(&b, "\n*Total:* $%s", inventory.GrandTotal(groups))
	return b.String()
}
