package exportsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/eduapp/core"
	"github.com/trezcool/eduapp/core/attendance"
)

// ErrNoWebhook is returned when no webhook URL is configured.
var ErrNoWebhook = errors.New("export webhook is not configured")

type webhookPayload struct {
	Subject    attendance.Subject       `json:"subject"`
	Attendance []attendance.RosterEntry `json:"attendance"`
	Present    int                      `json:"present"`
	Absent     int                      `json:"absent"`
	Timestamp  time.Time                `json:"timestamp"`
}

// WebhookSink POSTs snapshots as JSON to an automation webhook.
type WebhookSink struct {
	url    string
	client *rest.Client
}

var _ attendance.Sink = (*WebhookSink)(nil)

func NewWebhookSink(conf *core.Config) *WebhookSink {
	return &WebhookSink{
		url:    conf.Export.WebhookURL,
		client: &rest.Client{HTTPClient: &http.Client{Timeout: conf.Export.WebhookTimeout}},
	}
}

func (s *WebhookSink) Push(ctx context.Context, snap attendance.Snapshot) error {
	if s.url == "" {
		return ErrNoWebhook
	}

	body, err := json.Marshal(webhookPayload{
		Subject:    snap.Subject,
		Attendance: snap.Roster(),
		Present:    len(snap.Present),
		Absent:     len(snap.Absent),
		Timestamp:  snap.GeneratedAt,
	})
	if err != nil {
		return errors.Wrap(err, "encoding webhook payload")
	}

	res, err := s.client.SendWithContext(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: s.url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	if err != nil {
		return errors.Wrap(err, "calling export webhook")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("export webhook - status: %d - body: %s", res.StatusCode, res.Body)
	}
	return nil
}
