package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/flowengine/common/config"
	"github.com/lyzr/flowengine/common/logger"
	"github.com/lyzr/flowengine/internal/builtinnodes"
	"github.com/lyzr/flowengine/internal/executor"
	"github.com/lyzr/flowengine/internal/objectstore"
	"github.com/lyzr/flowengine/internal/persistence"
	"github.com/lyzr/flowengine/internal/registry"
	"github.com/lyzr/flowengine/internal/usage"
	"github.com/lyzr/flowengine/internal/workflow"
)

// multipartFileBody builds a multipart/form-data body with a single "file"
// field, mirroring what POST /objects expects.
func multipartFileBody(t *testing.T, contentType, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	part, err := w.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="file"; filename="` + filename + `"`},
		"Content-Type":        {contentType},
	})
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	reg := registry.New()
	builtinnodes.Register(reg)

	return &Engine{
		Persistence: persistence.NewMemoryAdapter(nil),
		Objects:     objectstore.NewMemoryStore(),
		Accounter:   usage.NewMemoryAccounter(1000),
		Registry:    reg,
		Executor: &executor.Executor{
			Registry:  reg,
			Store:     objectstore.NewMemoryStore(),
			Accounter: usage.NewMemoryAccounter(1000),
		},
		Config: &config.Config{
			Runtime: config.RuntimeConfig{
				MaxNodeParallelism:    2,
				ObjectStorePresignTTL: time.Minute,
			},
		},
		Log: logger.New("error", "json"),
	}
}

func TestGetExecutionNotFoundReturns404(t *testing.T) {
	e := echo.New()
	eng := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/executions/nope", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("nope")

	err := eng.getExecution(c)
	require.Error(t, err)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestGetExecutionReturnsStoredRecord(t *testing.T) {
	e := echo.New()
	eng := newTestEngine(t)
	adapter := eng.Persistence.(*persistence.MemoryAdapter)
	require.NoError(t, adapter.SaveExecution(context.Background(), &workflow.Execution{ID: "exec-1", Status: workflow.StatusCompleted}))

	req := httptest.NewRequest(http.MethodGet, "/executions/exec-1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("exec-1")

	require.NoError(t, eng.getExecution(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "completed")
}

func TestExecuteWorkflowRejectsMissingOrgID(t *testing.T) {
	e := echo.New()
	eng := newTestEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/workflows/wf-1/execute", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("wf-1")

	err := eng.executeWorkflow(c)
	require.Error(t, err)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestExecuteWorkflowUnknownWorkflowReturns404(t *testing.T) {
	e := echo.New()
	eng := newTestEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/workflows/nope/execute", strings.NewReader(`{"orgId":"org-1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("nope")

	err := eng.executeWorkflow(c)
	require.Error(t, err)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestExecuteWorkflowInvalidWorkflowReturns422(t *testing.T) {
	e := echo.New()
	eng := newTestEngine(t)
	adapter := eng.Persistence.(*persistence.MemoryAdapter)
	adapter.PutWorkflow(&workflow.Workflow{
		ID: "wf-bad",
		Nodes: []workflow.NodeSpec{{ID: "a", Type: "builtin.nonexistent"}},
	})

	req := httptest.NewRequest(http.MethodPost, "/workflows/wf-bad/execute", strings.NewReader(`{"orgId":"org-1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("wf-bad")

	require.NoError(t, eng.executeWorkflow(c))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestExecuteWorkflowStreamsEventsToCompletion(t *testing.T) {
	e := echo.New()
	eng := newTestEngine(t)
	adapter := eng.Persistence.(*persistence.MemoryAdapter)
	adapter.PutWorkflow(&workflow.Workflow{
		ID: "wf-ok",
		Nodes: []workflow.NodeSpec{
			{ID: "a", Type: "builtin.add", Config: map[string]any{"a": 1.0, "b": 2.0}},
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/workflows/wf-ok/execute", strings.NewReader(`{"orgId":"org-1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("wf-ok")

	require.NoError(t, eng.executeWorkflow(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Body.String(), "node-start")
	assert.Contains(t, rec.Body.String(), "node-complete")
}

func TestPutObjectRejectsMissingOrgHeader(t *testing.T) {
	e := echo.New()
	eng := newTestEngine(t)

	body, contentType := multipartFileBody(t, "text/plain", "hello.txt", "hello")
	req := httptest.NewRequest(http.MethodPost, "/objects", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := eng.putObject(c)
	require.Error(t, err)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestPutObjectThenGetObjectRoundTrip(t *testing.T) {
	e := echo.New()
	eng := newTestEngine(t)

	body, contentType := multipartFileBody(t, "text/plain", "hello.txt", "hello")
	putReq := httptest.NewRequest(http.MethodPost, "/objects", body)
	putReq.Header.Set("X-Org-Id", "org-1")
	putReq.Header.Set(echo.HeaderContentType, contentType)
	putRec := httptest.NewRecorder()
	require.NoError(t, eng.putObject(e.NewContext(putReq, putRec)))
	assert.Equal(t, http.StatusCreated, putRec.Code)
	assert.Contains(t, putRec.Body.String(), "reference")

	var created struct {
		Reference struct {
			ID       string `json:"id"`
			MimeType string `json:"mimeType"`
		} `json:"reference"`
	}
	require.NoError(t, json.Unmarshal(putRec.Body.Bytes(), &created))
	assert.Equal(t, "text/plain", created.Reference.MimeType)

	getReq := httptest.NewRequest(http.MethodGet, "/objects?id="+created.Reference.ID+"&mimeType="+created.Reference.MimeType, nil)
	getReq.Header.Set("X-Org-Id", "org-1")
	getRec := httptest.NewRecorder()
	getCtx := e.NewContext(getReq, getRec)

	require.NoError(t, eng.getObject(getCtx))
	assert.Equal(t, http.StatusOK, getRec.Code)
	assert.Equal(t, "hello", getRec.Body.String())
}

func TestGetObjectMissingReturns404(t *testing.T) {
	e := echo.New()
	eng := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/objects?id=nope", nil)
	req.Header.Set("X-Org-Id", "org-1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := eng.getObject(c)
	require.Error(t, err)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}
