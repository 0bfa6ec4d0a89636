// Command sender drives a running gateway with sample traffic: a
// subscription handshake followed by status and message notifications.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
)

type scenario struct {
	name string
	body map[string]any
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	target := flag.String("url", "http://localhost:3000", "gateway base URL")
	channel := flag.String("channel", "whatsapp", "webhook channel")
	token := flag.String("token", os.Getenv("VERIFY_TOKEN"), "verify token for the handshake")
	count := flag.Int("n", 1, "times to send each notification")
	flag.Parse()

	s := &sender{
		client: &http.Client{Timeout: 10 * time.Second},
		base:   *target + "/webhook/" + *channel,
		logger: logger,
	}

	ctx := context.Background()
	if err := s.handshake(ctx, *token); err != nil {
		logger.Error("handshake failed", "error", err)
		os.Exit(1)
	}

	failed := 0
	for i := 0; i < *count; i++ {
		for _, sc := range scenarios() {
			if err := s.post(ctx, sc); err != nil {
				logger.Error("notification failed", "scenario", sc.name, "error", err)
				failed++
			}
		}
	}

	logger.Info("done", "sent", s.counter, "failed", failed)
	if failed > 0 {
		os.Exit(1)
	}
}

type sender struct {
	client  *http.Client
	base    string
	logger  *slog.Logger
	counter int
}

func (s *sender) handshake(ctx context.Context, token string) error {
	challenge := fmt.Sprintf("%d", time.Now().UnixNano())
	q := url.Values{}
	q.Set("hub.mode", "subscribe")
	q.Set("hub.verify_token", token)
	q.Set("hub.challenge", challenge)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != challenge {
		return fmt.Errorf("unexpected response %d %q", resp.StatusCode, truncate(string(body), 32))
	}
	s.logger.Info("handshake ok", "challenge", challenge)
	return nil
}

func (s *sender) post(ctx context.Context, sc scenario) error {
	payload, err := json.Marshal(sc.body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	s.counter++
	s.logger.Info("notification sent", "n", s.counter, "scenario", sc.name, "status", resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway answered %d", resp.StatusCode)
	}
	return nil
}

func scenarios() []scenario {
	return []scenario{
		{"delivered", notification(map[string]any{
			"statuses": []any{status("delivered", nil)},
		})},
		{"media too large", notification(map[string]any{
			"statuses": []any{status("failed", []any{
				map[string]any{"code": 131047, "title": "Media file too large", "message": "Re-engagement message"},
			})},
		})},
		{"upload failed", notification(map[string]any{
			"statuses": []any{status("failed", []any{
				map[string]any{"code": 131026, "title": "Message undeliverable"},
			})},
		})},
		{"inbound text", notification(map[string]any{
			"messages": []any{map[string]any{
				"from": "5511999990000",
				"id":   messageID(),
				"type": "text",
				"text": map[string]any{"body": "olá"},
			}},
		})},
	}
}

func notification(value map[string]any) map[string]any {
	return map[string]any{
		"object": "whatsapp_business_account",
		"entry": []any{map[string]any{
			"id": "102290129340398",
			"changes": []any{map[string]any{
				"field": "messages",
				"value": value,
			}},
		}},
	}
}

func status(state string, errs []any) map[string]any {
	s := map[string]any{
		"id":           messageID(),
		"status":       state,
		"timestamp":    fmt.Sprintf("%d", time.Now().Unix()),
		"recipient_id": "5511999990000",
	}
	if errs != nil {
		s["errors"] = errs
	}
	return s
}

func messageID() string {
	return "wamid." + uuid.NewString()
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
