package logsvc

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/trezcool/eduapp/core"
	"github.com/trezcool/eduapp/core/teacher"
)

func TestRollbarLogger(t *testing.T) {
	conf := core.NewTestConfig()

	tests := []struct {
		name    string
		debug   bool
		log     func(l *RollbarLogger)
		want    []string
		wantNot []string
	}{
		{
			name: "info with data",
			log:  func(l *RollbarLogger) { l.Info("storage opened", map[string]interface{}{"engine": "memory"}) },
			want: []string{"INFO: storage opened", "engine:memory"},
		},
		{
			name:    "teacher is not printed",
			log:     func(l *RollbarLogger) { l.Error("boom", errors.New("disk full"), teacher.Teacher{Username: "ada"}) },
			want:    []string{"ERROR: boom", "disk full"},
			wantNot: []string{"ada"},
		},
		{
			name: "teacher is identified by ID only",
			log: func(l *RollbarLogger) {
				l.Warn("forbidden", teacher.Teacher{
					ID: "t-42", Username: "ada", Email: "ada@school.test", PasswordHash: []byte("$2a$10$secret"),
				})
			},
			want:    []string{"WARN: forbidden", "teacher: t-42"},
			wantNot: []string{"ada", "secret", "PasswordHash"},
		},
		{
			name:    "debug is muted outside debug mode",
			log:     func(l *RollbarLogger) { l.Debug("scan accepted") },
			wantNot: []string{"scan accepted"},
		},
		{
			name:  "debug in debug mode",
			debug: true,
			log:   func(l *RollbarLogger) { l.Debug("scan accepted") },
			want:  []string{"DEBUG: scan accepted"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			conf.Debug = tt.debug
			l := NewRollbarLogger(log.New(&buf, "", 0), conf)
			tt.log(l)

			out := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output = %q, want it to contain %q", out, want)
				}
			}
			for _, not := range tt.wantNot {
				if strings.Contains(out, not) {
					t.Errorf("output = %q, want it not to contain %q", out, not)
				}
			}
		})
	}
}
