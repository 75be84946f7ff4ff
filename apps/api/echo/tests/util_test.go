package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/eduapp/apps/api/echo"
	"github.com/trezcool/eduapp/core"
	"github.com/trezcool/eduapp/core/attendance"
	"github.com/trezcool/eduapp/core/teacher"
	emailsvc "github.com/trezcool/eduapp/services/email"
	logsvc "github.com/trezcool/eduapp/services/logger"
	inmemdb "github.com/trezcool/eduapp/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type testApp struct {
	srv      *echoapi.Server
	conf     *core.Config
	teachers teacher.Repository
	store    attendance.Storage
}

// setup starts a server backed by in-memory storage. sinks may be nil for the default export sinks.
func setup(t *testing.T, sinks map[string]echoapi.SinkFactory) testApp {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Export.WebhookURL = ""
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	teacher.InitValidators(validate, translator)

	db := inmemdb.Open()
	tchrRepo := inmemdb.NewTeacherRepository(db)
	store := inmemdb.NewAttendanceRepository(db)

	srv := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		TeacherSvc:     teacher.NewService(tchrRepo, validate),
		AttendanceSvc:  attendance.NewService(store, logger, validate, conf),
		MailSvc:        emailsvc.NewConsoleServiceMock(conf),
		Validate:       validate,
		Translator:     translator,
		ExportSinks:    sinks,
		DisableReqLogs: true,
	})
	return testApp{srv: srv, conf: conf, teachers: tchrRepo, store: store}
}

func (app testApp) token(t *testing.T, tchr teacher.Teacher, origIat ...int64) string {
	t.Helper()
	token, err := echoapi.GenerateToken(echoapi.NewClaims(tchr, app.conf, origIat...), app.conf.SecretKey)
	require.NoError(t, err)
	return token
}

// do sends a JSON request. body may be nil, a raw string, or any value to be marshaled.
func (app testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func marshal(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	token    string
	wantCode int
	wantData interface{} // compared as JSON when set
}

func (app testApp) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		tt := tt
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, tt.method, tt.path, tt.token, tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantData != nil {
				require.JSONEq(t, marshal(t, tt.wantData), rec.Body.String())
			}
		})
	}
}
