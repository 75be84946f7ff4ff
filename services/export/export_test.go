package exportsvc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/eduapp/core"
	"github.com/trezcool/eduapp/core/attendance"
	emailsvc "github.com/trezcool/eduapp/services/email"
	logsvc "github.com/trezcool/eduapp/services/logger"
)

func newSnapshot() attendance.Snapshot {
	at := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	return attendance.Snapshot{
		Subject: attendance.Subject{ID: "math-101", Name: "Math 101", YearName: "SE"},
		Present: []attendance.RosterEntry{{
			ID: "s1", Name: "Alice", StudentID: "STU001", Status: attendance.StatusPresent,
			AttendanceID: null.StringFrom("a1"), Timestamp: null.TimeFrom(at),
		}},
		Absent: []attendance.RosterEntry{
			{ID: "s2", Name: "Bob", StudentID: "STU002", Status: attendance.StatusAbsent},
		},
		GeneratedAt: at,
	}
}

func TestWebhookSink_Push(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		noURL   bool
		wantErr bool
	}{
		{name: "delivered", status: http.StatusOK},
		{name: "webhook error", status: http.StatusInternalServerError, wantErr: true},
		{name: "not configured", noURL: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]interface{}
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			conf := core.NewTestConfig()
			conf.Export.WebhookURL = srv.URL
			if tt.noURL {
				conf.Export.WebhookURL = ""
			}

			err := NewWebhookSink(conf).Push(context.Background(), newSnapshot())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, float64(1), got["present"])
			assert.Equal(t, float64(1), got["absent"])
			assert.Equal(t, "2024-03-04T09:30:00Z", got["timestamp"])
			assert.Equal(t, "Math 101", got["subject"].(map[string]interface{})["name"])
			assert.Len(t, got["attendance"], 2)
		})
	}
}

func TestEmailSink_Push(t *testing.T) {
	conf := core.NewTestConfig()
	core.ParseEmailTemplates(logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf))
	emailsvc.ResetSentMessages()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	err := NewEmailSink(mailSvc, mail.Address{}).Push(context.Background(), newSnapshot())
	assert.Equal(t, ErrNoRecipient, err)

	to := mail.Address{Name: "Ada", Address: "ada@school.test"}
	require.NoError(t, NewEmailSink(mailSvc, to).Push(context.Background(), newSnapshot()))

	msg, ok := emailsvc.LastSentMessage()
	require.True(t, ok)
	assert.Equal(t, []mail.Address{to}, msg.To)
	assert.Equal(t, "Attendance report - Math 101", msg.Subject)
	assert.Contains(t, msg.TextContent, "Attendance report for Math 101 (SE)")
	assert.Contains(t, msg.TextContent, "Present: 1")
	assert.Contains(t, msg.HTMLContent, "Math 101")

	require.Len(t, msg.Attachments, 1)
	at := msg.Attachments[0]
	assert.Equal(t, "text/csv", at.ContentType)
	assert.Equal(t, "attendance-20240304-093000.csv", at.Filename)
	csv, err := base64.StdEncoding.DecodeString(at.Content.String())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csv)), "\n")
	assert.Equal(t, []string{
		"student_id,name,status,timestamp",
		"STU001,Alice,Present,2024-03-04T09:30:00Z",
		"STU002,Bob,Absent,",
	}, lines)
}
