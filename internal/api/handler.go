// Package api exposes the tracker as a JSON HTTP API.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"hydrotrack/internal/app"
	"hydrotrack/internal/assistant"
	"hydrotrack/internal/export"
	"hydrotrack/internal/intake"
	"hydrotrack/internal/metrics"
	"hydrotrack/internal/plant"
	"hydrotrack/internal/preferences"
	"hydrotrack/internal/stats"

	"github.com/labstack/echo/v4"
)

// Handler serves the tracker endpoints.
type Handler struct {
	app        *app.App
	chat       *assistant.Conversation
	collectors *metrics.Collectors
	dataPath   string
}

// NewHandler creates a Handler. chat and collectors may be nil; the chat
// endpoints then answer 503 and /metrics is not mounted.
func NewHandler(a *app.App, chat *assistant.Conversation, collectors *metrics.Collectors, dataPath string) *Handler {
	return &Handler{app: a, chat: chat, collectors: collectors, dataPath: dataPath}
}

// Register mounts every route on e.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)
	if h.collectors != nil {
		e.GET("/metrics", echo.WrapHandler(h.collectors.Handler()))
	}

	g := e.Group("/api")
	g.GET("/entries", h.ListEntries)
	g.POST("/entries", h.CreateEntry)
	g.DELETE("/entries", h.ClearEntries)
	g.DELETE("/entries/:id", h.DeleteEntry)
	g.GET("/stats", h.Stats)
	g.GET("/series/:kind", h.Series)
	g.GET("/goal", h.GetGoal)
	g.PUT("/goal", h.PutGoal)
	g.GET("/autolog", h.GetAutoLog)
	g.PUT("/autolog", h.PutAutoLog)
	g.GET("/plant", h.Plant)
	g.GET("/chat", h.ChatHistory)
	g.POST("/chat", h.Chat)
	g.DELETE("/chat", h.ResetChat)
	g.GET("/export.xlsx", h.Export)
}

type errorResponse struct {
	Error string `json:"error"`
}

func fail(c echo.Context, status int, err error) error {
	return c.JSON(status, errorResponse{Error: err.Error()})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, intake.ErrInvalidAmount),
		errors.Is(err, preferences.ErrInvalidGoal),
		errors.Is(err, preferences.ErrInvalidTime),
		errors.Is(err, assistant.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrAutoLogActive),
		errors.Is(err, assistant.ErrBusy):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

type healthResponse struct {
	Status      string             `json:"status"`
	Time        string             `json:"time"`
	Entries     int                `json:"entries"`
	PlantHeight int                `json:"plantHeight"`
	State       []metrics.KeyUsage `json:"state"`
	DataSize    string             `json:"dataSize"`
	AllocMB     uint64             `json:"allocMb"`
	Goroutines  int                `json:"goroutines"`
	UptimeSec   float64            `json:"uptimeSec"`
}

func (h *Handler) Health(c echo.Context) error {
	hl := h.app.Health(c.Request().Context(), h.dataPath)
	return c.JSON(http.StatusOK, healthResponse{
		Status:      "ok",
		Time:        h.app.Now().Format(time.RFC3339),
		Entries:     hl.Entries,
		PlantHeight: hl.PlantHeight,
		State:       hl.State,
		DataSize:    hl.DataSize,
		AllocMB:     hl.AllocMB,
		Goroutines:  hl.Goroutines,
		UptimeSec:   hl.Uptime.Seconds(),
	})
}

func (h *Handler) ListEntries(c echo.Context) error {
	return c.JSON(http.StatusOK, intake.NewestFirst(h.app.Entries()))
}

type entryRequest struct {
	Amount float64 `json:"amount"`
}

type entryResponse struct {
	Entry    intake.Entry  `json:"entry"`
	Stats    stats.Summary `json:"stats"`
	Plant    plant.State   `json:"plant"`
	JustGrew bool          `json:"justGrew"`
}

func (h *Handler) CreateEntry(c echo.Context) error {
	var req entryRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, fmt.Errorf("bad json"))
	}
	e, grew, err := h.app.AddEntry(c.Request().Context(), req.Amount)
	if err != nil {
		return fail(c, statusFor(err), err)
	}
	return c.JSON(http.StatusCreated, entryResponse{
		Entry:    e,
		Stats:    h.app.Stats(),
		Plant:    h.app.Plant(),
		JustGrew: grew,
	})
}

func (h *Handler) DeleteEntry(c echo.Context) error {
	removed, err := h.app.DeleteEntry(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, statusFor(err), err)
	}
	if !removed {
		return fail(c, http.StatusNotFound, fmt.Errorf("entry %s not found", c.Param("id")))
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ClearEntries(c echo.Context) error {
	if err := h.app.ClearAll(c.Request().Context()); err != nil {
		return fail(c, statusFor(err), err)
	}
	return c.NoContent(http.StatusNoContent)
}

type statsResponse struct {
	stats.Summary
	ProgressWidth int    `json:"progressWidth"`
	Encouragement string `json:"encouragement"`
}

func (h *Handler) Stats(c echo.Context) error {
	s := h.app.Stats()
	return c.JSON(http.StatusOK, statsResponse{
		Summary:       s,
		ProgressWidth: stats.ProgressWidth(s.TodayPercentage),
		Encouragement: stats.Encouragement(s),
	})
}

func (h *Handler) Series(c echo.Context) error {
	points, ok := h.app.Series(stats.Kind(c.Param("kind")))
	if !ok {
		return fail(c, http.StatusNotFound, fmt.Errorf("unknown series %q", c.Param("kind")))
	}
	return c.JSON(http.StatusOK, points)
}

type goalBody struct {
	Goal float64 `json:"goal"`
}

func (h *Handler) GetGoal(c echo.Context) error {
	return c.JSON(http.StatusOK, goalBody{Goal: h.app.Goal()})
}

func (h *Handler) PutGoal(c echo.Context) error {
	var req goalBody
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, fmt.Errorf("bad json"))
	}
	if err := h.app.SetGoal(c.Request().Context(), req.Goal); err != nil {
		return fail(c, statusFor(err), err)
	}
	return c.JSON(http.StatusOK, goalBody{Goal: h.app.Goal()})
}

type autoLogResponse struct {
	preferences.AutoLog
	Status string `json:"status"`
}

type autoLogRequest struct {
	Enabled   *bool   `json:"enabled"`
	StartTime *string `json:"startTime"`
	EndTime   *string `json:"endTime"`
}

func (h *Handler) GetAutoLog(c echo.Context) error {
	return c.JSON(http.StatusOK, autoLogResponse{AutoLog: h.app.AutoLog(), Status: h.app.AutoLogStatus()})
}

// PutAutoLog applies a partial update. A request that pauses and edits the
// window in one go pauses first; one that edits and starts edits first.
func (h *Handler) PutAutoLog(c echo.Context) error {
	var req autoLogRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, fmt.Errorf("bad json"))
	}
	ctx := c.Request().Context()

	if req.Enabled != nil && !*req.Enabled {
		if err := h.app.SetAutoLogEnabled(ctx, false); err != nil {
			return fail(c, statusFor(err), err)
		}
	}
	if req.StartTime != nil || req.EndTime != nil {
		cur := h.app.AutoLog()
		start, end := cur.StartTime, cur.EndTime
		if req.StartTime != nil {
			start = *req.StartTime
		}
		if req.EndTime != nil {
			end = *req.EndTime
		}
		if err := h.app.SetAutoLogWindow(ctx, start, end); err != nil {
			return fail(c, statusFor(err), err)
		}
	}
	if req.Enabled != nil && *req.Enabled {
		if err := h.app.SetAutoLogEnabled(ctx, true); err != nil {
			return fail(c, statusFor(err), err)
		}
	}
	return h.GetAutoLog(c)
}

type plantResponse struct {
	plant.State
	Leaves    int  `json:"leaves"`
	Flowering bool `json:"flowering"`
	JustGrew  bool `json:"justGrew"`
}

func (h *Handler) Plant(c echo.Context) error {
	st := h.app.Plant()
	stage := plant.StageFor(st.Height)
	return c.JSON(http.StatusOK, plantResponse{
		State:     st,
		Leaves:    stage.Leaves,
		Flowering: stage.Flowering,
		JustGrew:  h.app.JustGrew(),
	})
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply    assistant.Message   `json:"reply"`
	Messages []assistant.Message `json:"messages"`
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var errChatDisabled = errors.New("assistant is not configured")

func (h *Handler) ChatHistory(c echo.Context) error {
	if h.chat == nil {
		return fail(c, http.StatusServiceUnavailable, errChatDisabled)
	}
	return c.JSON(http.StatusOK, h.chat.Messages())
}

func (h *Handler) Chat(c echo.Context) error {
	if h.chat == nil {
		return fail(c, http.StatusServiceUnavailable, errChatDisabled)
	}
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, fmt.Errorf("bad json"))
	}
	reply, err := h.chat.Send(c.Request().Context(), req.Message)
	if err != nil {
		return fail(c, statusFor(err), err)
	}
	return c.JSON(http.StatusOK, chatResponse{Reply: reply, Messages: h.chat.Messages()})
}

func (h *Handler) ResetChat(c echo.Context) error {
	if h.chat == nil {
		return fail(c, http.StatusServiceUnavailable, errChatDisabled)
	}
	msg := h.chat.Reset()
	return c.JSON(http.StatusOK, chatResponse{Reply: msg, Messages: h.chat.Messages()})
}

func (h *Handler) Export(c echo.Context) error {
	now := h.app.Now()
	report := export.Report{
		Entries:  h.app.Entries(),
		Summary:  h.app.Stats(),
		Daily:    h.app.DailySeries(),
		Weekly:   h.app.WeeklySeries(),
		Monthly:  h.app.MonthlySeries(),
		Location: now.Location(),
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, report); err != nil {
		return fail(c, http.StatusInternalServerError, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="hydrotrack-%s.xlsx"`, now.Format("2006-01-02")))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
