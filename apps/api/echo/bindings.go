package echoapi

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/eduapp/core"
	"github.com/trezcool/eduapp/core/attendance"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses `?ordering=name,-created_at`: a leading "-" means descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	TeacherInfo struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Name     string `json:"name,omitempty"`
	}

	LoginResponse struct {
		Token   string      `json:"token"`
		Teacher TeacherInfo `json:"teacher"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	RegisterResponse struct {
		Message string `json:"message"`
		ID      string `json:"id"`
	}

	SubjectResponse struct {
		Subject attendance.Subject `json:"subject"`
	}

	RosterResponse struct {
		Subject  attendance.Subject       `json:"subject"`
		Students []attendance.RosterEntry `json:"students"`
	}

	RecordResponse struct {
		Message    string            `json:"message"`
		Attendance attendance.Record `json:"attendance"`
	}

	ScanRequest struct {
		SubjectID string   `json:"subject_id" validate:"required"`
		Payload   string   `json:"payload"`
		Scanned   []string `json:"scanned"`
	}

	ScanResponse struct {
		attendance.Outcome
		Message string   `json:"message"`
		Scanned []string `json:"scanned"`
		Summary string   `json:"summary"`
	}

	ClearResponse struct {
		Message      string `json:"message"`
		DeletedCount int    `json:"deletedCount"`
	}

	ExportRequest struct {
		Sink string `json:"sink" validate:"required"`
	}

	ExportResponse struct {
		Message  string              `json:"message"`
		Snapshot attendance.Snapshot `json:"snapshot"`
	}
)

func (r *LoginRequest) Validate(validate *validator.Validate) error {
	r.Username = core.CleanString(r.Username, true /* lower */)
	return validate.Struct(r)
}

func (r *ScanRequest) Validate(validate *validator.Validate) error {
	r.SubjectID = core.CleanString(r.SubjectID)
	return validate.Struct(r)
}

func (r *ExportRequest) Validate(validate *validator.Validate) error {
	r.Sink = core.CleanString(r.Sink, true /* lower */)
	return validate.Struct(r)
}
