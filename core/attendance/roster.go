package attendance

import (
	"context"
	"sort"

	"github.com/volatiletech/null/v8"
)

// ResolveRoster returns one entry per student of the subject's year, sorted by business key.
// A student is Present iff a Record exists for their business key. A subject without a year has an empty roster.
func (svc *Service) ResolveRoster(ctx context.Context, subjectID string) ([]RosterEntry, error) {
	subj, err := svc.findSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return svc.resolve(ctx, subj)
}

// SubjectRoster is ResolveRoster restricted to the subject owner; it also returns the subject.
func (svc *Service) SubjectRoster(ctx context.Context, teacherID, subjectID string) (Subject, []RosterEntry, error) {
	subj, err := svc.ownedSubject(ctx, teacherID, subjectID)
	if err != nil {
		return Subject{}, nil, err
	}
	if subj, err = svc.withYearName(ctx, subj); err != nil {
		return Subject{}, nil, err
	}
	roster, err := svc.resolve(ctx, subj)
	if err != nil {
		return Subject{}, nil, err
	}
	return subj, roster, nil
}

func (svc *Service) resolve(ctx context.Context, subj Subject) ([]RosterEntry, error) {
	if !subj.YearID.Valid {
		return []RosterEntry{}, nil
	}

	var students []Student
	err := svc.read(ctx, "finding students by year", func() (err error) {
		students, err = svc.store.FindStudentsByYear(ctx, subj.YearID.String)
		return err
	})
	if err != nil {
		return nil, err
	}

	var records []Record
	err = svc.read(ctx, "finding attendance by subject", func() (err error) {
		records, err = svc.store.FindAttendanceBySubject(ctx, subj.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return mergeRoster(students, records), nil
}

// mergeRoster left-joins students against records on the business key.
func mergeRoster(students []Student, records []Record) []RosterEntry {
	byKey := make(map[string]Record, len(records))
	for _, rec := range records {
		byKey[rec.StudentID] = rec
	}

	roster := make([]RosterEntry, 0, len(students))
	for _, s := range students {
		entry := RosterEntry{
			ID:        s.ID,
			Name:      s.Name,
			StudentID: s.StudentID,
			Status:    StatusAbsent,
		}
		if rec, ok := byKey[s.StudentID]; ok {
			entry.Status = StatusPresent
			entry.AttendanceID = null.StringFrom(rec.ID)
			entry.Timestamp = null.TimeFrom(rec.Timestamp)
		}
		roster = append(roster, entry)
	}

	sort.SliceStable(roster, func(i, j int) bool { return roster[i].StudentID < roster[j].StudentID })
	return roster
}
