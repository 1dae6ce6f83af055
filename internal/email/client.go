package email

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
)

const defaultAPIURL = "https://api.postmarkapp.com/email"

// Client sends newsletter mail through Postmark's HTTP API.
type Client struct {
	serverToken string
	fromEmail   string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL overrides the Postmark endpoint, used by tests.
func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

func NewClient(serverToken, fromEmail string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		apiURL:      defaultAPIURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

func (c *Client) send(msg postmarkEmail) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}
	return nil
}

// SendSubscriptionConfirmed sends the welcome email after a subscribe,
// including the signed unsubscribe link.
func (c *Client) SendSubscriptionConfirmed(toEmail, unsubscribeLink string) error {
	textBody := fmt.Sprintf(
		"Welcome to the Gamify newsletter!\n\nThanks for subscribing.\n\nUnsubscribe any time: %s",
		unsubscribeLink,
	)
	htmlBody := fmt.Sprintf(
		`<h1>Welcome to the Gamify newsletter!</h1><p>Thanks for subscribing.</p><p><a href="%s">Unsubscribe</a></p>`,
		unsubscribeLink,
	)
	return c.send(postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  "Subscription Confirmed",
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
}

// SendNewsletter sends one newsletter issue to a single subscriber with their
// personal unsubscribe link appended.
func (c *Client) SendNewsletter(toEmail, subject, content, unsubscribeLink string) error {
	htmlBody := fmt.Sprintf(
		`%s<hr><p><a href="%s">Unsubscribe</a></p>`,
		content, unsubscribeLink,
	)
	textBody := fmt.Sprintf("%s\n\nUnsubscribe: %s", content, unsubscribeLink)
	return c.send(postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
}

// UnsubscribeToken derives the token embedded in unsubscribe links. The link
// is valid when the token equals the HMAC of the address, so no per-link
// state is stored.
func UnsubscribeToken(secret, email string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(email))
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidUnsubscribeToken checks a presented token in constant time.
func ValidUnsubscribeToken(secret, email, token string) bool {
	return hmac.Equal([]byte(UnsubscribeToken(secret, email)), []byte(token))
}
