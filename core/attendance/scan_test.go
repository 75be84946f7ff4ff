package attendance_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eduapp/core/attendance"
	"github.com/trezcool/eduapp/tests"
)

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    attendance.Payload
		wantErr bool
	}{
		{name: "string id", raw: `{"id":"STU001","name":"Alice"}`, want: attendance.Payload{ID: "STU001", Name: "Alice"}},
		{name: "integer id", raw: `{"id":42,"name":"Bob"}`, want: attendance.Payload{ID: "42", Name: "Bob"}},
		{name: "trimmed", raw: `  {"id":" STU001 ","name":" Alice "}  `, want: attendance.Payload{ID: "STU001", Name: "Alice"}},
		{name: "extra fields", raw: `{"id":"STU001","name":"Alice","year":"SE"}`, want: attendance.Payload{ID: "STU001", Name: "Alice"}},
		{name: "empty", raw: "", wantErr: true},
		{name: "not json", raw: "STU001", wantErr: true},
		{name: "array", raw: `["STU001","Alice"]`, wantErr: true},
		{name: "null", raw: "null", wantErr: true},
		{name: "trailing data", raw: `{"id":"STU001","name":"Alice"} {}`, wantErr: true},
		{name: "trailing brace", raw: `{"id":"STU001","name":"Alice"}}`, wantErr: true},
		{name: "trailing bracket", raw: `{"id":"STU001","name":"Alice"}]`, wantErr: true},
		{name: "trailing garbage", raw: `{"id":"STU001","name":"Alice"}x`, wantErr: true},
		{name: "missing id", raw: `{"name":"Alice"}`, wantErr: true},
		{name: "missing name", raw: `{"id":"STU001"}`, wantErr: true},
		{name: "blank id", raw: `{"id":"  ","name":"Alice"}`, wantErr: true},
		{name: "float id", raw: `{"id":4.2,"name":"Alice"}`, wantErr: true},
		{name: "bool id", raw: `{"id":true,"name":"Alice"}`, wantErr: true},
		{name: "numeric name", raw: `{"id":"STU001","name":7}`, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := attendance.ParsePayload(tt.raw)
			if tt.wantErr {
				assert.Equal(t, attendance.ErrMalformedPayload, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutcome_Message(t *testing.T) {
	p := attendance.Payload{ID: "STU001", Name: "Alice"}
	assert.Equal(t, "Alice marked as present", attendance.Outcome{Result: attendance.Accepted, Payload: p}.Message())
	assert.Equal(t, "Alice already scanned", attendance.Outcome{
		Result: attendance.Rejected, Reason: attendance.ReasonAlreadyScanned, Payload: p,
	}.Message())
	assert.Equal(t, "invalid QR code format", attendance.Outcome{
		Result: attendance.Rejected, Reason: attendance.ReasonMalformedPayload,
	}.Message())
}

func TestSession(t *testing.T) {
	sess := attendance.NewSession("subj", []attendance.RosterEntry{
		{StudentID: "STU001", Name: "Alice", Status: attendance.StatusAbsent},
		{StudentID: "STU002", Name: "Bob", Status: attendance.StatusPresent},
	})
	assert.False(t, sess.Scanned("STU001"))
	assert.True(t, sess.Scanned("STU002"))
	assert.Equal(t, "1/2 present", sess.Summary())

	sess.MarkScanned(" STU009 ", "")
	assert.True(t, sess.Scanned("STU009"))
	assert.Equal(t, []string{"STU002", "STU009"}, sess.ScannedKeys())

	entry := sess.Apply(attendance.Record{ID: "att1", StudentID: "STU001", Status: attendance.StatusPresent})
	require.NotNil(t, entry)
	assert.Equal(t, attendance.StatusPresent, entry.Status)
	assert.Equal(t, "att1", entry.AttendanceID.String)
	assert.Equal(t, "2/2 present", sess.Summary())

	// off-roster records are remembered but not displayed
	assert.Nil(t, sess.Apply(attendance.Record{ID: "att2", StudentID: "STU404"}))
	assert.True(t, sess.Scanned("STU404"))
	assert.Len(t, sess.Roster(), 2)
}

func TestService_RecordScan(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	sess, err := env.svc.StartSession(ctx, env.ana.ID, env.math.ID)
	require.NoError(t, err)
	assert.Equal(t, "0/2 present", sess.Summary())

	t.Run("accepted", func(t *testing.T) {
		out, err := env.svc.RecordScan(ctx, env.ana.ID, env.math.ID, testutil.Payload("STU001", "Alice"), sess)
		require.NoError(t, err)
		assert.True(t, out.Accepted())
		require.NotNil(t, out.Record)
		assert.Equal(t, "STU001", out.Record.StudentID)
		assert.Equal(t, attendance.StatusPresent, out.Record.Status)
		require.NotNil(t, out.Entry)
		assert.Equal(t, "Alice", out.Entry.Name)
		assert.Equal(t, "1/2 present", sess.Summary())
	})

	t.Run("already scanned in session", func(t *testing.T) {
		out, err := env.svc.RecordScan(ctx, env.ana.ID, env.math.ID, testutil.Payload("STU001", "Alice"), sess)
		require.NoError(t, err)
		assert.Equal(t, attendance.Rejected, out.Result)
		assert.Equal(t, attendance.ReasonAlreadyScanned, out.Reason)
	})

	t.Run("already recorded in storage", func(t *testing.T) {
		// a fresh session knows nothing about STU001
		out, err := env.svc.RecordScan(ctx, env.ana.ID, env.math.ID, testutil.Payload("STU001", "Alice"), nil)
		require.NoError(t, err)
		assert.Equal(t, attendance.ReasonAlreadyScanned, out.Reason)

		other := attendance.NewSession(env.math.ID, nil)
		_, err = env.svc.RecordScan(ctx, env.ana.ID, env.math.ID, testutil.Payload("STU001", "Alice"), other)
		require.NoError(t, err)
		assert.True(t, other.Scanned("STU001"))
	})

	t.Run("malformed", func(t *testing.T) {
		out, err := env.svc.RecordScan(ctx, env.ana.ID, env.math.ID, "garbage", sess)
		require.NoError(t, err)
		assert.Equal(t, attendance.ReasonMalformedPayload, out.Reason)
		assert.Nil(t, out.Record)
	})

	t.Run("malformed before ownership", func(t *testing.T) {
		out, err := env.svc.RecordScan(ctx, env.ana.ID, env.history.ID, `{"id":""}`, nil)
		require.NoError(t, err)
		assert.Equal(t, attendance.ReasonMalformedPayload, out.Reason)
	})

	t.Run("session duplicate before ownership", func(t *testing.T) {
		out, err := env.svc.RecordScan(ctx, env.ana.ID, env.history.ID, testutil.Payload("STU001", "Alice"), sess)
		require.NoError(t, err)
		assert.Equal(t, attendance.ReasonAlreadyScanned, out.Reason)
	})

	t.Run("unauthorized", func(t *testing.T) {
		_, err := env.svc.RecordScan(ctx, env.ana.ID, env.history.ID, testutil.Payload("STU002", "Bob"), nil)
		assert.Equal(t, attendance.ErrUnauthorized, errors.Cause(err))
	})

	t.Run("subject not found", func(t *testing.T) {
		_, err := env.svc.RecordScan(ctx, env.ana.ID, "nope", testutil.Payload("STU002", "Bob"), nil)
		assert.Equal(t, attendance.ErrSubjectNotFound, errors.Cause(err))
		assert.True(t, attendance.IsNotFound(err))
	})

	t.Run("off-roster student", func(t *testing.T) {
		out, err := env.svc.RecordScan(ctx, env.ana.ID, env.math.ID, `{"id":42,"name":"Zed"}`, sess)
		require.NoError(t, err)
		assert.True(t, out.Accepted())
		assert.Nil(t, out.Entry)
		assert.Equal(t, "1/2 present", sess.Summary())
	})

	roster, err := env.svc.ResolveRoster(ctx, env.math.ID)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, attendance.StatusPresent, roster[0].Status)
	assert.Equal(t, attendance.StatusAbsent, roster[1].Status)
}

func TestService_Record(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	rec, err := env.svc.Record(ctx, env.ana.ID, env.math.ID, "STU002")
	require.NoError(t, err)
	assert.Equal(t, env.math.ID, rec.SubjectID)
	assert.False(t, rec.Timestamp.IsZero())

	_, err = env.svc.Record(ctx, env.ana.ID, env.math.ID, "STU002")
	assert.Equal(t, attendance.ErrConflict, errors.Cause(err))

	_, err = env.svc.Record(ctx, env.bob.ID, env.math.ID, "STU001")
	assert.Equal(t, attendance.ErrUnauthorized, errors.Cause(err))
}
