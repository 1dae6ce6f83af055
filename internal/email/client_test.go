package email

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestConfigured(t *testing.T) {
	if NewClient("", "from@example.com").Configured() {
		t.Error("client without token should not be configured")
	}
	if !NewClient("token", "from@example.com").Configured() {
		t.Error("client with token should be configured")
	}
}

func TestSendSubscriptionConfirmed(t *testing.T) {
	var got postmarkEmail
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient("server-token", "news@gamify.example", WithAPIURL(srv.URL))
	err := c.SendSubscriptionConfirmed("reader@example.com", "https://gamify.example/api/newsletter/unsubscribe?token=abc")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotToken != "server-token" {
		t.Errorf("token header = %q", gotToken)
	}
	if got.To != "reader@example.com" {
		t.Errorf("to = %q", got.To)
	}
	if got.From != "news@gamify.example" {
		t.Errorf("from = %q", got.From)
	}
	if !strings.Contains(got.HtmlBody, "unsubscribe?token=abc") {
		t.Error("html body missing unsubscribe link")
	}
}

func TestSendNewsletterAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient("server-token", "news@gamify.example", WithAPIURL(srv.URL))
	if err := c.SendNewsletter("reader@example.com", "Issue 1", "<p>hi</p>", "https://x/unsub"); err == nil {
		t.Error("expected error on 4xx response")
	}
}

func TestSendUnconfigured(t *testing.T) {
	c := NewClient("", "news@gamify.example")
	if err := c.SendNewsletter("reader@example.com", "Issue 1", "hi", "link"); err == nil {
		t.Error("expected error when unconfigured")
	}
}

func TestUnsubscribeToken(t *testing.T) {
	a := UnsubscribeToken("secret", "reader@example.com")
	b := UnsubscribeToken("secret", "reader@example.com")
	if a != b {
		t.Error("token must be deterministic")
	}
	if a == UnsubscribeToken("secret", "other@example.com") {
		t.Error("different emails must get different tokens")
	}
	if a == UnsubscribeToken("other-secret", "reader@example.com") {
		t.Error("different secrets must get different tokens")
	}

	if !ValidUnsubscribeToken("secret", "reader@example.com", a) {
		t.Error("valid token rejected")
	}
	if ValidUnsubscribeToken("secret", "reader@example.com", "forged") {
		t.Error("forged token accepted")
	}
}
