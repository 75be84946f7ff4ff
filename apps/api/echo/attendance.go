package echoapi

import (
	"net/http"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/eduapp/core"
	"github.com/trezcool/eduapp/core/attendance"
	"github.com/trezcool/eduapp/core/teacher"
	exportsvc "github.com/trezcool/eduapp/services/export"
)

// SinkFactory builds the export sink used on behalf of a teacher.
type SinkFactory func(tchr teacher.Teacher) attendance.Sink

func defaultSinks(conf *core.Config, mailSvc core.EmailService) map[string]SinkFactory {
	return map[string]SinkFactory{
		"webhook": func(teacher.Teacher) attendance.Sink { return exportsvc.NewWebhookSink(conf) },
		"email": func(tchr teacher.Teacher) attendance.Sink {
			return exportsvc.NewEmailSink(mailSvc, mail.Address{Name: tchr.Name, Address: tchr.Email})
		},
	}
}

type attendanceApi struct {
	svc      *attendance.Service
	logger   core.Logger
	validate *validator.Validate
	sinks    map[string]SinkFactory
}

// registerAttendanceAPI registers the subject & attendance endpoints on g, which must be authenticated.
func registerAttendanceAPI(g *echo.Group, deps ServerDeps) {
	api := attendanceApi{
		svc:      deps.AttendanceSvc,
		logger:   deps.Logger,
		validate: deps.Validate,
		sinks:    deps.ExportSinks,
	}

	g.GET("/subjects", api.querySubjects)
	g.POST("/subjects", api.createSubject)
	g.DELETE("/subjects/:id", api.deleteSubject)

	ag := g.Group("/attendance")
	ag.GET("/years", api.queryYears)
	ag.POST("/years", api.createYear)
	ag.GET("/students", api.queryStudents)
	ag.POST("/students", api.createStudent)
	ag.POST("/record", api.record)
	ag.POST("/scan", api.scan)

	sg := ag.Group("/subject/:subjectId")
	sg.GET("", api.roster)
	sg.DELETE("", api.clear)
	sg.GET("/export", api.snapshot)
	sg.POST("/export", api.export)
}

// Subjects

func (api *attendanceApi) querySubjects(ctx echo.Context) error {
	tchr, err := getContextTeacher(ctx)
	if err != nil {
		return err
	}
	var ord Ordering
	ord.Bind(ctx)

	filter := attendance.SubjectFilter{TeacherID: tchr.ID, YearID: core.CleanString(ctx.QueryParam("year_id"))}
	subjects, err := api.svc.QuerySubjects(ctx.Request().Context(), filter, ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *attendanceApi) createSubject(ctx echo.Context) error {
	tchr, err := getContextTeacher(ctx)
	if err != nil {
		return err
	}
	var data attendance.NewSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}

	subj, err := api.svc.CreateSubject(ctx.Request().Context(), tchr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, SubjectResponse{Subject: subj})
}

func (api *attendanceApi) deleteSubject(ctx echo.Context) error {
	tchr, err := getContextTeacher(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteSubject(ctx.Request().Context(), tchr.ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Subject deleted successfully"})
}

// Years & Students

func (api *attendanceApi) queryYears(ctx echo.Context) error {
	years, err := api.svc.QueryYears(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying years")
	}
	return ctx.JSON(http.StatusOK, years)
}

func (api *attendanceApi) createYear(ctx echo.Context) error {
	var data attendance.NewYear
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewYear")
	}
	year, err := api.svc.CreateYear(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating year")
	}
	return ctx.JSON(http.StatusCreated, year)
}

func (api *attendanceApi) queryStudents(ctx echo.Context) error {
	yearID := core.CleanString(ctx.QueryParam("year_id"))
	if yearID == "" {
		return core.NewFieldError("year_id", "this field is required")
	}
	students, err := api.svc.QueryStudents(ctx.Request().Context(), yearID)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *attendanceApi) createStudent(ctx echo.Context) error {
	var data attendance.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	student, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, student)
}

// Attendance

func (api *attendanceApi) roster(ctx echo.Context) error {
	tchr, err := getContextTeacher(ctx)
	if err != nil {
		return err
	}
	subj, roster, err := api.svc.SubjectRoster(ctx.Request().Context(), tchr.ID, ctx.Param("subjectId"))
	if err != nil {
		return errors.Wrap(err, "resolving roster")
	}
	return ctx.JSON(http.StatusOK, RosterResponse{Subject: subj, Students: roster})
}

func (api *attendanceApi) clear(ctx echo.Context) error {
	tchr, err := getContextTeacher(ctx)
	if err != nil {
		return err
	}
	cnt, err := api.svc.ClearAttendance(ctx.Request().Context(), tchr.ID, ctx.Param("subjectId"))
	if err != nil {
		return errors.Wrap(err, "clearing attendance")
	}
	return ctx.JSON(http.StatusOK, ClearResponse{Message: "Attendance cleared successfully", DeletedCount: cnt})
}

func (api *attendanceApi) record(ctx echo.Context) error {
	tchr, err := getContextTeacher(ctx)
	if err != nil {
		return err
	}
	var data attendance.NewRecord
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.svc.Record(ctx.Request().Context(), tchr.ID, data.SubjectID, data.StudentID)
	if err != nil {
		return errors.Wrap(err, "recording attendance")
	}
	return ctx.JSON(http.StatusCreated, RecordResponse{Message: "Attendance recorded successfully", Attendance: rec})
}

// scan runs one decoded QR payload through the scan state machine.
// The client owns the session: it sends the business keys already scanned and gets the updated set back.
func (api *attendanceApi) scan(ctx echo.Context) error {
	tchr, err := getContextTeacher(ctx)
	if err != nil {
		return err
	}
	var data ScanRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScanRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	sess := attendance.NewSession(data.SubjectID, nil)
	sess.MarkScanned(data.Scanned...)

	out, err := api.svc.RecordScan(reqCtx, tchr.ID, data.SubjectID, data.Payload, sess)
	if err != nil {
		return errors.Wrap(err, "recording scan")
	}
	resp := ScanResponse{Outcome: out, Message: out.Message(), Scanned: sess.ScannedKeys()}
	if !out.Accepted() {
		return ctx.JSON(http.StatusOK, resp)
	}

	// the record is persisted: a failing projection must not fail the scan
	if _, roster, err := api.svc.SubjectRoster(reqCtx, tchr.ID, data.SubjectID); err == nil {
		proj := attendance.NewSession(data.SubjectID, roster)
		resp.Entry = proj.Apply(*out.Record)
		resp.Summary = proj.Summary()
	} else {
		api.logger.Warn("projecting accepted scan", err, tchr)
	}
	return ctx.JSON(http.StatusCreated, resp)
}

func (api *attendanceApi) snapshot(ctx echo.Context) error {
	tchr, err := getContextTeacher(ctx)
	if err != nil {
		return err
	}
	snap, err := api.svc.Snapshot(ctx.Request().Context(), tchr.ID, ctx.Param("subjectId"))
	if err != nil {
		return errors.Wrap(err, "taking snapshot")
	}
	return ctx.JSON(http.StatusOK, snap)
}

func (api *attendanceApi) export(ctx echo.Context) error {
	tchr, err := getContextTeacher(ctx)
	if err != nil {
		return err
	}
	var data ExportRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ExportRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	newSink, ok := api.sinks[data.Sink]
	if !ok {
		return core.NewFieldError("sink", "unknown export sink")
	}

	snap, err := api.svc.Export(ctx.Request().Context(), tchr.ID, ctx.Param("subjectId"), newSink(tchr))
	if err != nil {
		switch cause := errors.Cause(err); {
		case cause == exportsvc.ErrNoWebhook || cause == exportsvc.ErrNoRecipient:
			return core.NewFieldError("sink", cause.Error())
		case attendance.IsNotFound(err), cause == attendance.ErrUnauthorized, attendance.IsStorageFailure(err):
			return errors.Wrap(err, "exporting attendance")
		}
		api.logger.Error("exporting attendance", err, tchr)
		return &echo.HTTPError{Code: http.StatusBadGateway, Message: "export failed", Internal: err}
	}
	return ctx.JSON(http.StatusOK, ExportResponse{Message: "Attendance exported successfully", Snapshot: snap})
}
