package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/face"
	"github.com/trezcool/mahudhurio/core/roster"
	"github.com/trezcool/mahudhurio/core/session"
	"github.com/trezcool/mahudhurio/core/teacher"
	emailsvc "github.com/trezcool/mahudhurio/services/email"
	inmemdb "github.com/trezcool/mahudhurio/storage/database/inmem"
	testutil "github.com/trezcool/mahudhurio/tests"
)

// Fakes

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type fakeDevice struct{}

func (fakeDevice) ReadFrame(ctx context.Context) (session.Frame, error) {
	return session.Frame{Data: []byte("jpeg"), CapturedAt: time.Now()}, nil
}
func (fakeDevice) Release() error { return nil }

type fakeCamera struct{}

func (fakeCamera) Open(ctx context.Context) (session.Device, error) { return fakeDevice{}, nil }

type fakeDetector struct{}

func (fakeDetector) DetectFaces(ctx context.Context, frame session.Frame) ([]session.DetectedFace, error) {
	return nil, nil
}

type nopAnnouncer struct{}

func (nopAnnouncer) Announce(rollNo, name string) {}

// Setup

type testApp struct {
	server   *Server
	conf     *core.Config
	tchr     teacher.Teacher
	ledger   *attendance.Ledger
	sessions *session.Manager
}

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true

	db := inmemdb.NewDB()
	teacherRepo := inmemdb.NewTeacherRepository(db)
	rosterRepo := inmemdb.NewRosterRepository(db)
	attendanceRepo := inmemdb.NewAttendanceRepository(db)

	tchr := testutil.CreateTeacher(t, teacherRepo, "jdoe", "Jane Doe", "jdoe@test.cd", "s3cret", true)
	rosterRepo.AddStudent(roster.Student{RollNo: "S1", FullName: "Asha Juma", SectionID: 7})
	rosterRepo.AddStudent(roster.Student{RollNo: "S2", FullName: "Baraka Oti", SectionID: 7})
	rosterRepo.AddTaughtSection(tchr.ID, roster.TaughtSection{
		CourseID: 2, SectionID: 7, CourseCode: "CS101", CourseName: "Intro to CS", SectionName: "A",
	})

	rosterSvc := roster.NewService(rosterRepo)
	teacherSvc := teacher.NewService(teacherRepo)
	ledger := attendance.NewLedger(nil, attendanceRepo, rosterSvc)

	store := testutil.NewStore(t, face.Encoding{Descriptor: face.Descriptor{0.0}, StudentID: "S1"})
	sessions := session.NewManager(func() *session.Controller {
		return session.NewController(
			session.Config{Store: store, MatchThreshold: 0.6, MaxDuration: time.Minute, FrameInterval: time.Millisecond},
			fakeCamera{}, fakeDetector{}, nopAnnouncer{}, ledger, rosterSvc, nopLogger{},
		)
	})

	validate := validator.New()
	lang := en.New()
	uni := ut.New(lang, lang)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     nopLogger{},
		TeacherSvc: teacherSvc,
		RosterSvc:  rosterSvc,
		Ledger:     ledger,
		Sessions:   sessions,
		EmailSvc:   emailsvc.NewConsoleServiceMock(conf),
		Validate:   validate,
		Translator: translator,
	})

	return &testApp{server: server, conf: conf, tchr: tchr, ledger: ledger, sessions: sessions}
}

func (app *testApp) token(t *testing.T) string {
	t.Helper()
	token, err := app.server.auth.generateToken(app.server.auth.getTeacherClaims(app.tchr))
	require.NoError(t, err)
	return token
}

func (app *testApp) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into))
}

// Tests

func TestAPI_login(t *testing.T) {
	app := setup(t)

	t.Run("ok", func(t *testing.T) {
		rec := app.request(t, http.MethodPost, "/v1/auth/login", "", LoginRequest{Username: "jdoe", Password: "s3cret"})
		require.Equal(t, http.StatusOK, rec.Code)

		var res LoginResponse
		decodeJSON(t, rec, &res)
		assert.NotEmpty(t, res.Token)
	})

	t.Run("bad credentials", func(t *testing.T) {
		rec := app.request(t, http.MethodPost, "/v1/auth/login", "", LoginRequest{Username: "jdoe", Password: "nope"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error": "authentication failed"}`, rec.Body.String())
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := app.request(t, http.MethodPost, "/v1/auth/login", "", LoginRequest{Username: "jdoe"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"password": "this field is required"}`, rec.Body.String())
	})
}

func TestAPI_querySections(t *testing.T) {
	app := setup(t)

	t.Run("requires auth", func(t *testing.T) {
		rec := app.request(t, http.MethodGet, "/v1/sections", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ok", func(t *testing.T) {
		rec := app.request(t, http.MethodGet, "/v1/sections", app.token(t), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var sections []roster.TaughtSection
		decodeJSON(t, rec, &sections)
		require.Len(t, sections, 1)
		assert.Equal(t, "CS101", sections[0].CourseCode)
	})
}

func TestAPI_sessionLifecycle(t *testing.T) {
	app := setup(t)
	token := app.token(t)
	base := "/v1/sections/2/7/session"

	// no session yet
	rec := app.request(t, http.MethodGet, base, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.request(t, http.MethodDelete, base, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// start
	rec = app.request(t, http.MethodPost, base, token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"state": "running"}`, rec.Body.String())

	// duplicate start
	rec = app.request(t, http.MethodPost, base, token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// status & events while running
	rec = app.request(t, http.MethodGet, base, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.request(t, http.MethodGet, base+"/events", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var events []eventPayload
	decodeJSON(t, rec, &events)

	// stop
	rec = app.request(t, http.MethodDelete, base, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	ctrl, ok := app.sessions.Get(app.tchr.ID, 2, 7)
	require.True(t, ok)
	select {
	case <-ctrl.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop in time")
	}
}

func TestAPI_sheet(t *testing.T) {
	app := setup(t)
	token := app.token(t)
	now := time.Now().UTC()
	day := now.Format("2006-01-02")

	key := attendance.Key{TeacherID: app.tchr.ID, CourseID: 2, SectionID: 7, RollNo: "S1", Date: now}
	_, err := app.ledger.MarkPresentIfAbsent(context.Background(), key, now)
	require.NoError(t, err)

	t.Run("defaults to today", func(t *testing.T) {
		rec := app.request(t, http.MethodGet, "/v1/sections/2/7/sheet", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var entries []attendance.SheetEntry
		decodeJSON(t, rec, &entries)
		require.Len(t, entries, 2)
		assert.Equal(t, attendance.StatusPresent, entries[0].Status)
		assert.Equal(t, attendance.StatusNotRecorded, entries[1].Status)
		assert.False(t, entries[1].Time.Valid)
	})

	t.Run("explicit date", func(t *testing.T) {
		rec := app.request(t, http.MethodGet, "/v1/sections/2/7/sheet?date=1999-01-01", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var entries []attendance.SheetEntry
		decodeJSON(t, rec, &entries)
		require.Len(t, entries, 2)
		for _, e := range entries {
			assert.Equal(t, attendance.StatusNotRecorded, e.Status)
		}
	})

	t.Run("bad date", func(t *testing.T) {
		rec := app.request(t, http.MethodGet, "/v1/sections/2/7/sheet?date=not-a-date", token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("set status", func(t *testing.T) {
		rec := app.request(t, http.MethodPut, "/v1/sections/2/7/sheet/S2", token, SetStatusRequest{Status: "Absent", Date: day})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"outcome": "inserted"}`, rec.Body.String())

		rec = app.request(t, http.MethodPut, "/v1/sections/2/7/sheet/S2", token, SetStatusRequest{Status: "Present", Date: day})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"outcome": "updated"}`, rec.Body.String())

		rec = app.request(t, http.MethodPut, "/v1/sections/2/7/sheet/S2", token, SetStatusRequest{Status: "Not Recorded", Date: day})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"outcome": "deleted"}`, rec.Body.String())
	})

	t.Run("set status: invalid status", func(t *testing.T) {
		rec := app.request(t, http.MethodPut, "/v1/sections/2/7/sheet/S2", token, SetStatusRequest{Status: "Tardy"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("set status: student not on roster", func(t *testing.T) {
		rec := app.request(t, http.MethodPut, "/v1/sections/2/7/sheet/ghost", token, SetStatusRequest{Status: "Present"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAPI_emailReport(t *testing.T) {
	app := setup(t)
	token := app.token(t)

	emailsvc.SentMessages = emailsvc.SentMessages[:0]

	now := time.Now().UTC()
	key := attendance.Key{TeacherID: app.tchr.ID, CourseID: 2, SectionID: 7, RollNo: "S1", Date: now}
	_, err := app.ledger.MarkPresentIfAbsent(context.Background(), key, now)
	require.NoError(t, err)

	t.Run("missing recipients", func(t *testing.T) {
		rec := app.request(t, http.MethodPost, "/v1/sections/2/7/sheet/report", token, ReportRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ok", func(t *testing.T) {
		rec := app.request(t, http.MethodPost, "/v1/sections/2/7/sheet/report", token, ReportRequest{To: []string{"head@test.cd"}})
		require.Equal(t, http.StatusAccepted, rec.Code)

		require.Len(t, emailsvc.SentMessages, 1)
		msg := emailsvc.SentMessages[0]
		assert.Equal(t, fmt.Sprintf("Attendance report %s", now.Format("2006-01-02")), msg.Subject)
		require.Len(t, msg.Attachments, 1)
		assert.Equal(t, "text/csv", msg.Attachments[0].ContentType)
	})
}
