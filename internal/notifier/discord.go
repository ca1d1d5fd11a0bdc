package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/pauljones0/gallery-price-sync/internal/models"
)

const (
	colorFavorable = 3066993 // #2ECC71

	maxSendAttempts  = 3
	baseRetryBackoff = 500 * time.Millisecond
	maxRetryAfter    = 30 * time.Second
)

type Client struct {
	webhookURL  string
	client      *http.Client
	rateLimiter *rate.Limiter
}

func New(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		// Discord allows 5 webhook requests per 2 seconds.
		rateLimiter: rate.NewLimiter(rate.Limit(2.5), 5),
	}
}

// PriceAlert posts a favorable-price embed.
// It does nothing when no webhook is configured.
func (c *Client) PriceAlert(ctx context.Context, alert models.PriceAlert) error {
	if c.webhookURL == "" {
		return nil
	}
	id, err := c.send(ctx, formatAlertToEmbed(alert, time.Now()))
	if err != nil {
		return err
	}
	slog.Info("Price alert sent", "listing_id", alert.Product.ID, "message_id", id)
	return nil
}

// Internal structures
type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	URL         string              `json:"url,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      discordEmbedFooter  `json:"footer,omitempty"`
}

type discordMessageResponse struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + " €"
}

func formatAlertToEmbed(alert models.PriceAlert, now time.Time) discordEmbed {
	p := alert.Product
	title := p.Title
	if title == "" {
		title = p.ID
	}

	fields := []discordEmbedField{
		{Name: "Gallery price", Value: formatPrice(alert.Price), Inline: true},
		{Name: "Buy below", Value: formatPrice(p.Threshold()), Inline: true},
	}
	if p.CurrentAmazonPrice != nil {
		fields = append(fields, discordEmbedField{Name: "Marketplace price", Value: formatPrice(*p.CurrentAmazonPrice), Inline: true})
	}
	if p.OriginalNumber != "" {
		fields = append(fields, discordEmbedField{Name: "Original number", Value: p.OriginalNumber})
	}

	var description string
	if alert.Link != "" {
		description = fmt.Sprintf("[Open on marketplace](%s)", alert.Link)
	}

	return discordEmbed{
		Title:       title,
		URL:         alert.Link,
		Description: description,
		Timestamp:   now.UTC().Format(time.RFC3339),
		Color:       colorFavorable,
		Fields:      fields,
		Footer:      discordEmbedFooter{Text: "Listing " + p.ID},
	}
}

// send posts embed, retrying rate limits and server errors.
func (c *Client) send(ctx context.Context, embed discordEmbed) (string, error) {
	payloadBytes, err := json.Marshal(discordWebhookPayload{Embeds: []discordEmbed{embed}})
	if err != nil {
		return "", err
	}

	parsedURL, err := url.Parse(c.webhookURL)
	if err != nil {
		return "", err
	}
	q := parsedURL.Query()
	q.Set("wait", "true")
	parsedURL.RawQuery = q.Encode()

	var lastErr error
	for attempt := 0; attempt < maxSendAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, parsedURL.String(), bytes.NewReader(payloadBytes))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return "", err
		}
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			var msgResponse discordMessageResponse
			if err := json.Unmarshal(bodyBytes, &msgResponse); err != nil {
				return "", err
			}
			return msgResponse.ID, nil
		}

		lastErr = fmt.Errorf("discord status: %s, body: %s", resp.Status, string(bodyBytes))
		backoff := retryBackoff(resp, attempt)
		if backoff == 0 || attempt == maxSendAttempts-1 {
			break
		}
		slog.Warn("Discord request failed, retrying", "status", resp.StatusCode, "attempt", attempt+1, "backoff", backoff)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	return "", lastErr
}

// retryBackoff returns how long to wait before retrying resp, or 0 if the
// request must not be retried.
func retryBackoff(resp *http.Response, attempt int) time.Duration {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil && secs > 0 {
			d := time.Duration(secs * float64(time.Second))
			if d > maxRetryAfter {
				d = maxRetryAfter
			}
			return d
		}
		return baseRetryBackoff << attempt
	case resp.StatusCode >= 500:
		return baseRetryBackoff << attempt
	default:
		return 0
	}
}
