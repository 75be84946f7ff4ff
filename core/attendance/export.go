package attendance

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/eduapp/core"
)

// Snapshot is a finished roster partitioned into present and absent students, for reporting.
type Snapshot struct {
	Subject     Subject       `json:"subject"`
	Present     []RosterEntry `json:"present"`
	Absent      []RosterEntry `json:"absent"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Sink receives attendance snapshots, eg. a webhook or an email report.
type Sink interface {
	Push(ctx context.Context, snap Snapshot) error
}

// NewSnapshot partitions roster, keeping its order.
func NewSnapshot(subj Subject, roster []RosterEntry) Snapshot {
	snap := Snapshot{
		Subject:     subj,
		Present:     make([]RosterEntry, 0, len(roster)),
		Absent:      make([]RosterEntry, 0, len(roster)),
		GeneratedAt: core.NowUTC(),
	}
	for _, e := range roster {
		if e.IsPresent() {
			snap.Present = append(snap.Present, e)
		} else {
			snap.Absent = append(snap.Absent, e)
		}
	}
	return snap
}

// Roster returns the present entries followed by the absent ones.
func (snap Snapshot) Roster() []RosterEntry {
	roster := make([]RosterEntry, 0, len(snap.Present)+len(snap.Absent))
	roster = append(roster, snap.Present...)
	return append(roster, snap.Absent...)
}

// WriteCSV writes the snapshot as CSV: one row per student.
func (snap Snapshot) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"student_id", "name", "status", "timestamp"}); err != nil {
		return err
	}
	for _, e := range snap.Roster() {
		var ts string
		if e.Timestamp.Valid {
			ts = e.Timestamp.Time.UTC().Format(time.RFC3339)
		}
		if err := cw.Write([]string{e.StudentID, e.Name, string(e.Status), ts}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Snapshot resolves the roster of one of the teacher's subjects into a Snapshot.
func (svc *Service) Snapshot(ctx context.Context, teacherID, subjectID string) (Snapshot, error) {
	subj, roster, err := svc.SubjectRoster(ctx, teacherID, subjectID)
	if err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(subj, roster), nil
}

// Export pushes the snapshot of one of the teacher's subjects to sink.
func (svc *Service) Export(ctx context.Context, teacherID, subjectID string, sink Sink) (Snapshot, error) {
	snap, err := svc.Snapshot(ctx, teacherID, subjectID)
	if err != nil {
		return Snapshot{}, err
	}
	if err = sink.Push(ctx, snap); err != nil {
		return Snapshot{}, errors.Wrap(err, "pushing snapshot")
	}
	svc.logger.Info("attendance exported", map[string]interface{}{
		"subject_id": subjectID,
		"present":    len(snap.Present),
		"absent":     len(snap.Absent),
	})
	return snap, nil
}
