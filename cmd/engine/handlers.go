package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lyzr/flowengine/common/middleware"
	"github.com/lyzr/flowengine/internal/events"
	"github.com/lyzr/flowengine/internal/objectstore"
	"github.com/lyzr/flowengine/internal/scheduler"
	"github.com/lyzr/flowengine/internal/validator"
	"github.com/lyzr/flowengine/internal/workflow"
)

func registerRoutes(e *echo.Echo, eng *Engine) {
	executeGroup := e.Group("")
	if eng.RateLimiter != nil {
		executeGroup.Use(middleware.OrgRateLimitMiddleware(
			eng.RateLimiter,
			eng.Config.Runtime.ExecuteRateLimitPerOrg,
			int(eng.Config.Runtime.ExecuteRateLimitWindow.Seconds()),
		))
	}
	executeGroup.POST("/workflows/:id/execute", eng.executeWorkflow)

	e.GET("/executions/:id", eng.getExecution)
	e.POST("/objects", eng.putObject)
	e.GET("/objects", eng.getObject)
}

// executeWorkflowRequest is the body of POST /workflows/:id/execute.
type executeWorkflowRequest struct {
	OrgID  string                     `json:"orgId"`
	Inputs map[string]json.RawMessage `json:"inputs"`
}

func (eng *Engine) executeWorkflow(c echo.Context) error {
	workflowID := c.Param("id")

	var req executeWorkflowRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if req.OrgID == "" {
		req.OrgID = c.Request().Header.Get("X-Org-Id")
	}
	if req.OrgID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "orgId is required")
	}

	ctx := c.Request().Context()

	wf, err := eng.Persistence.LoadWorkflow(ctx, workflowID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	if errs := validator.Validate(wf, eng.Registry); len(errs) > 0 {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{"errors": errs})
	}

	exec := &workflow.Execution{
		ID:             uuid.NewString(),
		WorkflowID:     wf.ID,
		OrgID:          req.OrgID,
		VersionHash:    wf.VersionHash,
		Status:         workflow.StatusRunning,
		Inputs:         req.Inputs,
		NodeExecutions: make(map[string]*workflow.NodeExecution, len(wf.Nodes)),
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	for _, n := range wf.Nodes {
		exec.NodeExecutions[n.ID] = &workflow.NodeExecution{NodeID: n.ID, Status: workflow.NodeStatusPending}
	}

	remaining, err := eng.Accounter.Remaining(ctx, req.OrgID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if remaining <= 0 {
		return echo.NewHTTPError(http.StatusForbidden, "organization has no budget remaining")
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	emitter := events.NewEmitter(exec.ID, 64)
	sched := &scheduler.Scheduler{
		Executor:    eng.Executor,
		Persistence: eng.Persistence,
		Parallelism: eng.Config.Runtime.MaxNodeParallelism,
	}

	done := make(chan error, 1)
	go func() {
		done <- sched.Run(ctx, wf, exec, emitter)
	}()

	for ev := range emitter.Events() {
		if err := events.WriteSSE(w, w, ev); err != nil {
			eng.Log.Warn("sse write failed", "execution_id", exec.ID, "error", err)
			break
		}
	}

	if err := <-done; err != nil {
		eng.Log.Error("execution failed", "execution_id", exec.ID, "error", err)
	}
	return nil
}

func (eng *Engine) getExecution(c echo.Context) error {
	exec, err := eng.Persistence.GetExecution(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, exec)
}

// objectReference identifies a stored blob by id and MIME type, the unit
// object-typed parameters carry on the wire (spec §4.1/§6.2).
type objectReference struct {
	ID       string `json:"id"`
	MimeType string `json:"mimeType"`
}

func (eng *Engine) putObject(c echo.Context) error {
	orgID := c.Request().Header.Get("X-Org-Id")
	if orgID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "X-Org-Id header is required")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	mimeType := fileHeader.Header.Get(echo.HeaderContentType)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	id, err := eng.Objects.Put(c.Request().Context(), orgID, data, mimeType, nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, map[string]objectReference{
		"reference": {ID: id, MimeType: mimeType},
	})
}

func (eng *Engine) getObject(c echo.Context) error {
	orgID := c.Request().Header.Get("X-Org-Id")
	if orgID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "X-Org-Id header is required")
	}
	id := c.QueryParam("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "id query parameter is required")
	}
	mimeType := c.QueryParam("mimeType")

	obj, err := eng.Objects.Get(c.Request().Context(), orgID, id)
	if err != nil {
		var notFound *objectstore.ErrNotFound
		if errors.As(err, &notFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if mimeType != "" && mimeType != obj.MimeType {
		return echo.NewHTTPError(http.StatusNotFound, "no object matches the given id and mimeType")
	}

	return c.Blob(http.StatusOK, obj.MimeType, obj.Data)
}
