package attendance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/eduapp/core"
)

type (
	// Result of a scan: accepted (persisted) or rejected.
	Result string
	// Reason a scan was rejected.
	Reason string
)

const (
	Accepted Result = "accepted"
	Rejected Result = "rejected"

	ReasonMalformedPayload Reason = "malformed_payload"
	ReasonAlreadyScanned   Reason = "already_scanned"
)

// Payload is the content of a student QR badge.
type Payload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Outcome of a single scan. Rejections are expected values, not errors.
type Outcome struct {
	Result  Result       `json:"outcome"`
	Reason  Reason       `json:"reason,omitempty"`
	Payload Payload      `json:"payload"`
	Record  *Record      `json:"record,omitempty"`
	Entry   *RosterEntry `json:"student,omitempty"`
}

func (o Outcome) Accepted() bool { return o.Result == Accepted }

// Message is a short operator facing status message.
func (o Outcome) Message() string {
	name := o.Payload.Name
	if name == "" {
		name = o.Payload.ID
	}
	switch {
	case o.Accepted():
		return name + " marked as present"
	case o.Reason == ReasonAlreadyScanned:
		return name + " already scanned"
	default:
		return ErrMalformedPayload.Error()
	}
}

func rejected(p Payload, reason Reason) Outcome {
	return Outcome{Result: Rejected, Reason: reason, Payload: p}
}

// ParsePayload decodes a QR payload: a JSON object with non-empty `id` (string or integer) and `name`.
func ParsePayload(raw string) (Payload, error) {
	var data map[string]interface{}
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(raw)))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil || data == nil {
		return Payload{}, ErrMalformedPayload
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return Payload{}, ErrMalformedPayload
	}

	var p Payload
	switch id := data["id"].(type) {
	case string:
		p.ID = strings.TrimSpace(id)
	case json.Number:
		if _, err := strconv.ParseInt(id.String(), 10, 64); err != nil {
			return Payload{}, ErrMalformedPayload
		}
		p.ID = id.String()
	}
	if name, ok := data["name"].(string); ok {
		p.Name = strings.TrimSpace(name)
	}
	if p.ID == "" || p.Name == "" {
		return p, ErrMalformedPayload
	}
	return p, nil
}

// Session is the caller-owned state of one scanning session on one subject:
// the roster being displayed and the set of business keys already marked present.
// The set only saves round trips; storage remains the authority on duplicates.
// A Session is not safe for concurrent use.
type Session struct {
	SubjectID string
	entries   map[string]*RosterEntry
	order     []string
	scanned   map[string]struct{}
}

// NewSession seeds a session from a resolved roster.
func NewSession(subjectID string, roster []RosterEntry) *Session {
	s := &Session{
		SubjectID: subjectID,
		entries:   make(map[string]*RosterEntry, len(roster)),
		order:     make([]string, 0, len(roster)),
		scanned:   make(map[string]struct{}, len(roster)),
	}
	for _, entry := range roster {
		entry := entry
		s.entries[entry.StudentID] = &entry
		s.order = append(s.order, entry.StudentID)
		if entry.IsPresent() {
			s.scanned[entry.StudentID] = struct{}{}
		}
	}
	return s
}

func (s *Session) Scanned(key string) bool {
	_, ok := s.scanned[key]
	return ok
}

// MarkScanned adds keys to the scanned set without touching the roster.
func (s *Session) MarkScanned(keys ...string) {
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			s.scanned[k] = struct{}{}
		}
	}
}

// Apply projects an accepted record onto the session and returns the updated entry,
// or nil when the student is not on the roster.
func (s *Session) Apply(rec Record) *RosterEntry {
	s.scanned[rec.StudentID] = struct{}{}
	entry, ok := s.entries[rec.StudentID]
	if !ok {
		return nil
	}
	entry.Status = StatusPresent
	entry.AttendanceID = null.StringFrom(rec.ID)
	entry.Timestamp = null.TimeFrom(rec.Timestamp)
	cp := *entry
	return &cp
}

// Roster returns a copy of the session roster, in its original order.
func (s *Session) Roster() []RosterEntry {
	roster := make([]RosterEntry, 0, len(s.order))
	for _, k := range s.order {
		roster = append(roster, *s.entries[k])
	}
	return roster
}

// ScannedKeys returns the sorted scanned business keys.
func (s *Session) ScannedKeys() []string {
	keys := make([]string, 0, len(s.scanned))
	for k := range s.scanned {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Summary is a one-line count of present students, eg. "3/10 present".
func (s *Session) Summary() string {
	present := 0
	for _, e := range s.entries {
		if e.IsPresent() {
			present++
		}
	}
	return fmt.Sprintf("%d/%d present", present, len(s.entries))
}

// StartSession resolves the subject roster for its owner and opens a scanning session on it.
func (svc *Service) StartSession(ctx context.Context, teacherID, subjectID string) (*Session, error) {
	subj, roster, err := svc.SubjectRoster(ctx, teacherID, subjectID)
	if err != nil {
		return nil, err
	}
	return NewSession(subj.ID, roster), nil
}

// RecordScan reconciles one decoded QR payload with the persisted attendance of the subject:
//  1. malformed payloads are rejected
//  2. keys already in the session are rejected without a storage round trip
//  3. the subject must belong to teacherID
//  4. the record is inserted; a storage conflict is a rejection too
//  5. accepted records are applied to the session
//
// sess may be nil. Errors are reserved for NotFound, Unauthorized and storage failures.
func (svc *Service) RecordScan(ctx context.Context, teacherID, subjectID, raw string, sess *Session) (Outcome, error) {
	p, err := ParsePayload(raw)
	if err != nil {
		svc.logger.Debug("scan rejected: malformed payload", map[string]interface{}{"subject_id": subjectID})
		return rejected(p, ReasonMalformedPayload), nil
	}

	if sess != nil && sess.Scanned(p.ID) {
		svc.logger.Debug("scan rejected: already scanned", map[string]interface{}{"subject_id": subjectID, "student_id": p.ID})
		return rejected(p, ReasonAlreadyScanned), nil
	}

	rec, err := svc.Record(ctx, teacherID, subjectID, p.ID)
	if err != nil {
		if errors.Cause(err) == ErrConflict {
			if sess != nil {
				sess.MarkScanned(p.ID)
			}
			svc.logger.Debug("scan rejected: conflict", map[string]interface{}{"subject_id": subjectID, "student_id": p.ID})
			return rejected(p, ReasonAlreadyScanned), nil
		}
		return Outcome{}, err
	}

	out := Outcome{Result: Accepted, Payload: p, Record: &rec}
	if sess != nil {
		out.Entry = sess.Apply(rec)
	}
	svc.logger.Debug("scan accepted", map[string]interface{}{"subject_id": subjectID, "student_id": p.ID})
	return out, nil
}

// Record marks the student with the given business key present for one of the teacher's subjects.
// Fails with ErrConflict when the student is already marked present. The insert is never retried.
func (svc *Service) Record(ctx context.Context, teacherID, subjectID, studentKey string) (Record, error) {
	if _, err := svc.ownedSubject(ctx, teacherID, subjectID); err != nil {
		return Record{}, err
	}

	var rec Record
	err := svc.write("inserting attendance", func() (err error) {
		rec, err = svc.store.InsertAttendance(ctx, subjectID, studentKey, core.NowUTC())
		return err
	})
	if err != nil {
		if IsStorageFailure(err) {
			svc.logger.Error("recording attendance failed", map[string]interface{}{"subject_id": subjectID, "student_id": studentKey}, err)
		}
		return Record{}, err
	}
	return rec, nil
}
