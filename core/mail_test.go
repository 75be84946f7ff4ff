package core

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct{ errs []string }

func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Warn(string, ...interface{})  {}
func (l *recordingLogger) Error(msg string, _ ...interface{}) {
	l.errs = append(l.errs, msg)
}
func (l *recordingLogger) Fatal(msg string, _ ...interface{}) { l.errs = append(l.errs, msg) }

type reportSubject struct{ Name, YearName string }

type reportData struct {
	Subject         reportSubject
	Present, Absent []string
	GeneratedAt     time.Time
}

func TestParseEmailTemplates(t *testing.T) {
	logger := new(recordingLogger)
	ParseEmailTemplates(logger)
	require.Empty(t, logger.errs)

	conf := NewTestConfig()
	msg := &EmailMessage{
		TemplateName: "attendance_report",
		TemplateData: reportData{
			Subject:     reportSubject{Name: "Math 101", YearName: "SE"},
			Present:     []string{"STU001"},
			Absent:      []string{"STU002", "STU003"},
			GeneratedAt: time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC),
		},
	}
	require.NoError(t, msg.Render(conf))

	for _, content := range []string{msg.TextContent, msg.HTMLContent} {
		assert.Contains(t, content, "Attendance report for Math 101 (SE)")
		assert.Contains(t, content, conf.AppName)
	}
	assert.Contains(t, msg.TextContent, "Present: 1")
	assert.Contains(t, msg.TextContent, "Absent: 2")
	assert.Contains(t, msg.HTMLContent, "Present: <strong>1</strong>")
	assert.Contains(t, msg.HTMLContent, "Absent: <strong>2</strong>")
}

func TestEmailMessage_Render(t *testing.T) {
	ParseEmailTemplates(new(recordingLogger))
	conf := NewTestConfig()

	t.Run("plain body", func(t *testing.T) {
		msg := &EmailMessage{BodyStr: "hello"}
		require.NoError(t, msg.Render(conf))
		assert.Equal(t, "hello", msg.TextContent)
	})

	t.Run("unknown template", func(t *testing.T) {
		msg := &EmailMessage{TemplateName: "nope"}
		assert.Error(t, msg.Render(conf))
	})

	t.Run("template without content", func(t *testing.T) {
		tmplMu.Lock()
		templates["empty"] = new(tmplCacheEntry)
		tmplMu.Unlock()
		defer func() {
			tmplMu.Lock()
			delete(templates, "empty")
			tmplMu.Unlock()
		}()

		msg := &EmailMessage{TemplateName: "empty"}
		err := msg.Render(conf)
		require.Error(t, err)
		assert.Equal(t, fmt.Sprintf("email template %q not found", "empty"), err.Error())
		assert.False(t, msg.HasContent())
	})
}
