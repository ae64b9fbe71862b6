package echoapi

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/roster"
	"github.com/trezcool/mahudhurio/core/session"
	"github.com/trezcool/mahudhurio/core/teacher"
)

type attendanceApi struct {
	auth       *jwtAuth
	teacherSvc *teacher.Service
	rosterSvc  *roster.Service
	ledger     *attendance.Ledger
	sessions   *session.Manager
	emailSvc   core.EmailService
	validate   *validator.Validate
	translator ut.Translator
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *jwtAuth, deps ServerDeps) {
	api := attendanceApi{
		auth:       auth,
		teacherSvc: deps.TeacherSvc,
		rosterSvc:  deps.RosterSvc,
		ledger:     deps.Ledger,
		sessions:   deps.Sessions,
		emailSvc:   deps.EmailSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	// un-authed endpoints
	g.POST("/auth/login", api.login)

	// authed endpoints
	ag := g.Group("", jwt)
	ag.GET("/sections", api.querySections)

	sg := ag.Group("/sections/:courseID/:sectionID")
	sg.POST("/session", api.startSession)
	sg.GET("/session", api.sessionStatus)
	sg.GET("/session/events", api.sessionEvents)
	sg.DELETE("/session", api.stopSession)
	sg.GET("/sheet", api.sheet)
	sg.PUT("/sheet/:rollNo", api.setStatus)
	sg.POST("/sheet/report", api.emailReport)
}

// Handlers

func (api *attendanceApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.teacherSvc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		if errors.Cause(err) == teacher.ErrNotFound {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "authenticating teacher")
	}

	token, err := api.auth.generateToken(api.auth.getTeacherClaims(t))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *attendanceApi) querySections(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	sections, err := api.rosterSvc.TaughtSections(ctx.Request().Context(), claims.TeacherID)
	if err != nil {
		return errors.Wrap(err, "querying taught sections")
	}
	return ctx.JSON(http.StatusOK, sections)
}

func (api *attendanceApi) startSession(ctx echo.Context) error {
	claims, courseID, sectionID, err := api.selection(ctx)
	if err != nil {
		return err
	}

	ctrl, err := api.sessions.Start(ctx.Request().Context(), claims.TeacherID, courseID, sectionID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"state": ctrl.State().String()})
}

func (api *attendanceApi) sessionStatus(ctx echo.Context) error {
	claims, courseID, sectionID, err := api.selection(ctx)
	if err != nil {
		return err
	}

	ctrl, ok := api.sessions.Get(claims.TeacherID, courseID, sectionID)
	if !ok {
		return errSessionNotRunning
	}
	return ctx.JSON(http.StatusOK, echo.Map{"state": ctrl.State().String()})
}

// eventPayload is the JSON-safe render model of a session.Event; raw frame
// bytes are not exposed over this endpoint.
type eventPayload struct {
	Kind   session.EventKind      `json:"kind"`
	Faces  []session.FaceResult   `json:"faces,omitempty"`
	Marked *session.MarkedStudent `json:"marked,omitempty"`
	Error  string                 `json:"error,omitempty"`
	Reason session.StopReason     `json:"reason,omitempty"`
}

// sessionEvents drains the buffered events accumulated since the last poll.
func (api *attendanceApi) sessionEvents(ctx echo.Context) error {
	claims, courseID, sectionID, err := api.selection(ctx)
	if err != nil {
		return err
	}

	ctrl, ok := api.sessions.Get(claims.TeacherID, courseID, sectionID)
	if !ok {
		return errSessionNotRunning
	}

	payload := make([]eventPayload, 0)
	for {
		select {
		case e := <-ctrl.Events():
			p := eventPayload{Kind: e.Kind, Faces: e.Faces, Marked: e.Marked, Reason: e.Reason}
			if e.Err != nil {
				p.Error = e.Err.Error()
			}
			payload = append(payload, p)
		default:
			return ctx.JSON(http.StatusOK, payload)
		}
	}
}

func (api *attendanceApi) stopSession(ctx echo.Context) error {
	claims, courseID, sectionID, err := api.selection(ctx)
	if err != nil {
		return err
	}

	if err := api.sessions.Stop(claims.TeacherID, courseID, sectionID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendanceApi) sheet(ctx echo.Context) error {
	claims, courseID, sectionID, err := api.selection(ctx)
	if err != nil {
		return err
	}
	date, err := api.queryDate(ctx)
	if err != nil {
		return err
	}

	entries, err := api.ledger.Sheet(ctx.Request().Context(), claims.TeacherID, courseID, sectionID, date)
	if err != nil {
		return errors.Wrap(err, "building sheet")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *attendanceApi) setStatus(ctx echo.Context) error {
	claims, courseID, sectionID, err := api.selection(ctx)
	if err != nil {
		return err
	}
	rollNo := ctx.Param("rollNo")

	var data SetStatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetStatusRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	// the student must be on this section's roster
	student, err := api.rosterSvc.Student(ctx.Request().Context(), rollNo)
	if err != nil || student.SectionID != sectionID {
		return errHttpNotFound
	}

	key := attendance.Key{
		TeacherID: claims.TeacherID,
		CourseID:  courseID,
		SectionID: sectionID,
		RollNo:    rollNo,
		Date:      parseDate(data.Date),
	}
	outcome, err := api.ledger.SetStatus(ctx.Request().Context(), key, attendance.Status(data.Status), time.Now())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"outcome": outcome})
}

func (api *attendanceApi) emailReport(ctx echo.Context) error {
	claims, courseID, sectionID, err := api.selection(ctx)
	if err != nil {
		return err
	}

	var data ReportRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReportRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	date := parseDate(data.Date)

	entries, err := api.ledger.Sheet(ctx.Request().Context(), claims.TeacherID, courseID, sectionID, date)
	if err != nil {
		return errors.Wrap(err, "building sheet")
	}

	report, err := sheetCSV(entries)
	if err != nil {
		return errors.Wrap(err, "rendering report")
	}

	day := attendance.DateOf(date).Format(dateLayout)
	msg := &core.EmailMessage{
		Subject:     fmt.Sprintf("Attendance report %s", day),
		TextContent: fmt.Sprintf("Attendance report for course %d, section %d on %s.", courseID, sectionID, day),
	}
	for _, to := range data.To {
		msg.To = append(msg.To, mail.Address{Address: to})
	}
	if err := msg.Attach(report, fmt.Sprintf("attendance_%s.csv", day), "text/csv"); err != nil {
		return errors.Wrap(err, "attaching report")
	}
	api.emailSvc.SendMessages(msg)

	return ctx.NoContent(http.StatusAccepted)
}

// Helpers

func (api *attendanceApi) selection(ctx echo.Context) (Claims, int, int, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return Claims{}, 0, 0, err
	}
	courseID, err := strconv.Atoi(ctx.Param("courseID"))
	if err != nil {
		return Claims{}, 0, 0, errHttpNotFound
	}
	sectionID, err := strconv.Atoi(ctx.Param("sectionID"))
	if err != nil {
		return Claims{}, 0, 0, errHttpNotFound
	}
	return claims, courseID, sectionID, nil
}

func (api *attendanceApi) queryDate(ctx echo.Context) (time.Time, error) {
	raw := ctx.QueryParam("date")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "invalid date; expected format 2006-01-02"})
	}
	return date, nil
}

func sheetCSV(entries []attendance.SheetEntry) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)
	if err := w.Write([]string{"roll_no", "full_name", "status", "time"}); err != nil {
		return nil, err
	}
	for _, e := range entries {
		var at string
		if e.Time.Valid {
			at = e.Time.Time.UTC().Format(time.RFC3339)
		}
		if err := w.Write([]string{e.RollNo, e.FullName, string(e.Status), at}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf, w.Error()
}
