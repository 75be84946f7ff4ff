package exportsvc

import (
	"bytes"
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/eduapp/core"
	"github.com/trezcool/eduapp/core/attendance"
)

// ErrNoRecipient is returned when the report has nobody to be sent to.
var ErrNoRecipient = errors.New("no email address to send the report to")

// EmailSink emails a snapshot summary with the full roster attached as CSV.
type EmailSink struct {
	mailSvc core.EmailService
	to      mail.Address
}

var _ attendance.Sink = (*EmailSink)(nil)

func NewEmailSink(mailSvc core.EmailService, to mail.Address) *EmailSink {
	return &EmailSink{mailSvc: mailSvc, to: to}
}

func (s *EmailSink) Push(_ context.Context, snap attendance.Snapshot) error {
	if s.to.Address == "" {
		return ErrNoRecipient
	}

	var csv bytes.Buffer
	if err := snap.WriteCSV(&csv); err != nil {
		return errors.Wrap(err, "writing CSV")
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{s.to},
		Subject:      "Attendance report - " + snap.Subject.Name,
		TemplateName: "attendance_report",
		TemplateData: snap,
	}
	fname := "attendance-" + snap.GeneratedAt.Format("20060102-150405") + ".csv"
	if err := msg.Attach(&csv, fname, "text/csv"); err != nil {
		return err
	}
	return s.mailSvc.SendMessage(msg)
}
