package api

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	"github.com/Priya8975/webhook-gateway/internal/domain"
	"github.com/go-chi/chi/v5"
)

const (
	// maxBodyBytes caps notification bodies.
	maxBodyBytes = 10 << 20

	subscribeMode = "subscribe"
)

// Recorder queues a received notification for the log store.
type Recorder interface {
	Record(channel string, body json.RawMessage) domain.LogEntry
}

type WebhookHandler struct {
	verifyToken string
	appSecret   string
	channels    map[string]struct{}
	recorder    Recorder
	logger      *slog.Logger
}

func NewWebhookHandler(verifyToken, appSecret string, channels []string, recorder Recorder, logger *slog.Logger) *WebhookHandler {
	set := make(map[string]struct{}, len(channels))
	for _, c := range channels {
		set[c] = struct{}{}
	}
	return &WebhookHandler{
		verifyToken: verifyToken,
		appSecret:   appSecret,
		channels:    set,
		recorder:    recorder,
		logger:      logger,
	}
}

// channel resolves the {channel} URL parameter, answering 404 for channels
// that are not configured.
func (h *WebhookHandler) channel(w http.ResponseWriter, r *http.Request) (string, bool) {
	channel := chi.URLParam(r, "channel")
	if _, ok := h.channels[channel]; !ok {
		respondError(w, http.StatusNotFound, "unknown webhook channel")
		return "", false
	}
	return channel, true
}

// Verify answers the platform's subscription handshake.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	channel, ok := h.channel(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	h.logger.Info("webhook verification",
		"channel", channel,
		"mode", mode,
		"token_present", token != "",
		"challenge", challenge,
	)

	if mode != subscribeMode || subtle.ConstantTimeCompare([]byte(token), []byte(h.verifyToken)) != 1 {
		h.logger.Info("webhook verification failed", "channel", channel)
		respondText(w, http.StatusForbidden, "Forbidden")
		return
	}

	h.logger.Info("webhook verified", "channel", channel)
	respondText(w, http.StatusOK, challenge)
}

// Receive stores a notification and always acknowledges it; the platform
// retries anything that is not a 200.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	channel, ok := h.channel(w, r)
	if !ok {
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.logger.Warn("failed to read webhook body", "channel", channel, "error", err)
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if h.appSecret != "" {
		h.checkSignature(channel, raw, r.Header.Get(SignatureHeader))
	}

	body, err := normalizeBody(r.Header.Get("Content-Type"), raw)
	if err != nil {
		h.logger.Warn("webhook body is not JSON, storing as text", "channel", channel, "error", err)
	}

	h.recorder.Record(channel, body)

	respondText(w, http.StatusOK, "OK")
}

func (h *WebhookHandler) checkSignature(channel string, raw []byte, header string) {
	switch {
	case header == "":
		h.logger.Warn("webhook signature missing", "channel", channel)
	case !validSignature(raw, h.appSecret, header):
		h.logger.Warn("webhook signature mismatch", "channel", channel)
	default:
		h.logger.Debug("webhook signature valid", "channel", channel)
	}
}

// normalizeBody turns a request body into the JSON value that gets stored.
// Empty bodies become {}, form bodies an object of their first values, and
// anything else that is not JSON a JSON string; the error reports the last
// case.
func normalizeBody(contentType string, raw []byte) (json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage(`{}`), nil
	}

	if mediaType, _, _ := mime.ParseMediaType(contentType); mediaType == "application/x-www-form-urlencoded" {
		if values, err := url.ParseQuery(string(raw)); err == nil {
			form := make(map[string]string, len(values))
			for k := range values {
				form[k] = values.Get(k)
			}
			return json.Marshal(form)
		}
	}

	if json.Valid(raw) {
		return json.RawMessage(raw), nil
	}

	text, _ := json.Marshal(string(raw))
	return text, errors.New("body is not valid JSON")
}
