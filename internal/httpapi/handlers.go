package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"focusflow/internal/badge"
	"focusflow/internal/notifier"
	"focusflow/internal/schedule"
	"focusflow/internal/state"
	logx "focusflow/pkg/logx"
)

const maxBody = 1 << 20

var errBodyTooLarge = errors.New("request body exceeds 1 MiB")

// Session is the part of state.Session the API needs.
type Session interface {
	Schedule() []schedule.TimeBlock
	Settings() state.Settings
	Import(ctx context.Context, format schedule.Format, input []byte, opts schedule.ParseOptions) (schedule.Result, error)
	UpdateTaskStatus(ctx context.Context, id string, status schedule.Status) (schedule.TimeBlock, error)
	UpdateSettings(ctx context.Context, patch state.SettingsPatch) (state.Settings, error)
	Clear(ctx context.Context) error
	Resolve(now time.Time) schedule.Resolution
	ExportJSON() ([]byte, error)
}

type BadgeReader interface {
	State() badge.State
}

// HistorySource lists recent notification deliveries, oldest first.
type HistorySource interface {
	History() []notifier.HistoryItem
}

// Deps are the collaborators behind the routes. Badge and History are
// optional; their routes are only mounted when set.
type Deps struct {
	Session Session
	Badge   BadgeReader
	History HistorySource
	// Now supplies the wall clock; defaults to time.Now.
	Now func() time.Time
	Log logx.Logger
}

type api struct {
	sess Session
	now  func() time.Time
	log  logx.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

type scheduleResponse struct {
	Blocks  []schedule.TimeBlock   `json:"blocks"`
	Skipped []schedule.SkippedLine `json:"skipped,omitempty"`
	Warning string                 `json:"warning,omitempty"`
}

type currentResponse struct {
	schedule.Resolution
	Clock string `json:"clock"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// Register wires every API route onto e.
func Register(e *echo.Echo, d Deps) {
	a := &api{sess: d.Session, now: d.Now, log: d.Log}
	if a.now == nil {
		a.now = time.Now
	}
	if a.log.IsZero() {
		a.log = logx.Nop()
	}

	e.GET("/healthz", healthz())
	e.GET("/api/schedule", a.getSchedule)
	e.POST("/api/schedule", a.postSchedule)
	e.GET("/api/current", a.getCurrent)
	e.PATCH("/api/tasks/:id", a.patchTask)
	e.GET("/api/settings", a.getSettings)
	e.PATCH("/api/settings", a.patchSettings)
	e.GET("/api/export", a.getExport)
	e.DELETE("/api/data", a.deleteData)
	if d.Badge != nil {
		e.GET("/api/badge", getBadge(d.Badge))
	}
	if d.History != nil {
		e.GET("/api/notifications", getNotifications(d.History))
	}
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (a *api) getSchedule(c echo.Context) error {
	blocks := a.sess.Schedule()
	if blocks == nil {
		blocks = []schedule.TimeBlock{}
	}
	return c.JSON(http.StatusOK, scheduleResponse{Blocks: blocks})
}

func (a *api) postSchedule(c echo.Context) error {
	format, err := schedule.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return a.fail(c, err)
	}
	strict := false
	if raw := strings.TrimSpace(c.QueryParam("strict")); raw != "" {
		if strict, err = strconv.ParseBool(raw); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid strict flag"})
		}
	}
	body, err := readBody(c)
	if err != nil {
		return a.badBody(c, err)
	}

	res, err := a.sess.Import(c.Request().Context(), format, body, schedule.ParseOptions{Strict: strict})
	if schedule.IsWarning(err) {
		return c.JSON(http.StatusOK, scheduleResponse{Blocks: []schedule.TimeBlock{}, Skipped: res.Skipped, Warning: err.Error()})
	}
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(http.StatusCreated, scheduleResponse{Blocks: res.Blocks, Skipped: res.Skipped})
}

func (a *api) getCurrent(c echo.Context) error {
	t := a.now()
	if at := strings.TrimSpace(c.QueryParam("at")); at != "" {
		clk, err := schedule.Standardize(at)
		if err != nil {
			return a.fail(c, err)
		}
		m := clk.Minutes()
		t = time.Date(t.Year(), t.Month(), t.Day(), m/60, m%60, 0, 0, t.Location())
	}
	res := a.sess.Resolve(t)
	return c.JSON(http.StatusOK, currentResponse{
		Resolution: res,
		Clock:      schedule.FormatWallClock(t, a.sess.Settings().Use24HourFormat),
	})
}

func (a *api) patchTask(c echo.Context) error {
	var req statusRequest
	if err := decodeStrict(c, &req); err != nil {
		return a.badBody(c, err)
	}
	b, err := a.sess.UpdateTaskStatus(c.Request().Context(), c.Param("id"), schedule.Status(req.Status))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (a *api) getSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, a.sess.Settings())
}

func (a *api) patchSettings(c echo.Context) error {
	var patch state.SettingsPatch
	if err := decodeStrict(c, &patch); err != nil {
		return a.badBody(c, err)
	}
	settings, err := a.sess.UpdateSettings(c.Request().Context(), patch)
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(http.StatusOK, settings)
}

func (a *api) getExport(c echo.Context) error {
	b, err := a.sess.ExportJSON()
	if err != nil {
		return a.fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+state.ExportFileName+`"`)
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, b)
}

func (a *api) deleteData(c echo.Context) error {
	if err := a.sess.Clear(c.Request().Context()); err != nil {
		return a.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func getBadge(b BadgeReader) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, b.State())
	}
}

func getNotifications(h HistorySource) echo.HandlerFunc {
	return func(c echo.Context) error {
		items := h.History()
		if items == nil {
			items = []notifier.HistoryItem{}
		}
		return c.JSON(http.StatusOK, items)
	}
}

// readBody reads at most maxBody bytes and reports errBodyTooLarge past that.
func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBody+1))
	if err != nil {
		return nil, errors.New("unreadable body")
	}
	if len(body) > maxBody {
		return nil, errBodyTooLarge
	}
	return body, nil
}

func decodeStrict(c echo.Context, v any) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid request body: " + err.Error())
	}
	return nil
}

func (a *api) badBody(c echo.Context, err error) error {
	if errors.Is(err, errBodyTooLarge) {
		return c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

// fail maps domain errors onto status codes.
func (a *api) fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case schedule.IsValidation(err):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, state.ErrTaskNotFound):
		status = http.StatusNotFound
	default:
		a.log.Error("request failed",
			logx.String("method", c.Request().Method),
			logx.String("path", c.Path()),
			logx.Err(err),
		)
	}
	return c.JSON(status, errorResponse{Error: err.Error()})
}
