package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scriptflow/internal/analysis"
	"scriptflow/internal/executor"
	"scriptflow/internal/monitor"
	"scriptflow/internal/report"
	"scriptflow/internal/store"
)

func newTestHandlers() *Handlers {
	mon := monitor.New(10)
	executions := executor.NewEngine(
		store.NewMemoryStore[*executor.Result](),
		executor.WithObserver(mon),
	)
	analyses := analysis.NewEngine(
		store.NewMemoryStore[*analysis.Record](),
		analysis.NewAIAnalyzer(nil),
	)
	return NewHandlers(executions, analyses, report.NewEngine(), mon, nil)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func TestHandleExecuteSuccess(t *testing.T) {
	h := newTestHandlers()

	rec := postJSON(t, h.HandleExecute, ExecuteRequest{Command: "echo hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decode[ExecuteResponse](t, rec)
	if !resp.Success {
		t.Error("expected success")
	}
	if !strings.Contains(resp.Stdout, "hello") {
		t.Errorf("expected stdout, got %q", resp.Stdout)
	}
	if resp.ID == "" {
		t.Error("expected an id")
	}
}

func TestHandleExecuteValidation(t *testing.T) {
	h := newTestHandlers()

	rec := postJSON(t, h.HandleExecute, ExecuteRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	resp := decode[ErrorResponse](t, rec)
	if resp.Code != "INVALID_REQUEST" {
		t.Errorf("expected INVALID_REQUEST, got %q", resp.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	h.HandleExecute(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed JSON, got %d", w.Code)
	}
}

func TestHandleExecuteSpawnFailureReturnsRecord(t *testing.T) {
	h := newTestHandlers()

	rec := postJSON(t, h.HandleExecute, ExecuteRequest{Command: "no-such-binary-anywhere"})
	if rec.Code != http.StatusOK {
		t.Fatalf("spawn failures still return the record, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[ExecuteResponse](t, rec)
	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.Error == nil || resp.Error.Kind != executor.FailureSpawn {
		t.Errorf("expected spawn failure on the record, got %+v", resp.Error)
	}
}

func TestHandleExecuteWithInlineAnalysis(t *testing.T) {
	h := newTestHandlers()

	rec := postJSON(t, h.HandleExecute, ExecuteRequest{Command: "echo hi", Analyze: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[ExecuteResponse](t, rec)
	if resp.Analysis == nil {
		t.Fatal("expected inline analysis")
	}
	if resp.Analysis.Details.Basic == nil {
		t.Error("expected basic sub-analysis")
	}
}

func TestHandleExecuteTimeoutClamp(t *testing.T) {
	mon := monitor.New(10)
	executions := executor.NewEngine(
		store.NewMemoryStore[*executor.Result](),
		executor.WithObserver(mon),
		executor.WithMaxTimeout(150*time.Millisecond),
	)
	analyses := analysis.NewEngine(
		store.NewMemoryStore[*analysis.Record](),
		analysis.NewAIAnalyzer(nil),
	)
	h := NewHandlers(executions, analyses, report.NewEngine(), mon, nil)

	start := time.Now()
	rec := postJSON(t, h.HandleExecute, ExecuteRequest{Command: "sleep 5", Timeout: Duration{Duration: time.Hour}})
	elapsed := time.Since(start)

	if rec.Code != http.StatusOK {
		t.Fatalf("timeouts still return the record, got %d: %s", rec.Code, rec.Body.String())
	}
	if elapsed > 3*time.Second {
		t.Errorf("request timeout not clamped, took %s", elapsed)
	}
	resp := decode[ExecuteResponse](t, rec)
	if resp.Error == nil || resp.Error.Kind != executor.FailureTimeout {
		t.Errorf("expected timeout failure on the record, got %+v", resp.Error)
	}
}

func TestHandleGetResult(t *testing.T) {
	h := newTestHandlers()

	res, err := h.executions.Execute(context.Background(), "echo hi", executor.Options{})
	if err != nil {
		t.Fatalf("seeding execution: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/results/"+res.ID, nil)
	req.SetPathValue("id", res.ID)
	rec := httptest.NewRecorder()
	h.HandleGetResult(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[ExecuteResponse](t, rec)
	if resp.ID != res.ID {
		t.Errorf("expected %q, got %q", res.ID, resp.ID)
	}

	req = httptest.NewRequest(http.MethodGet, "/results/script_999", nil)
	req.SetPathValue("id", "script_999")
	rec = httptest.NewRecorder()
	h.HandleGetResult(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleListResultsFilters(t *testing.T) {
	h := newTestHandlers()

	for _, cmd := range []string{"echo a", "false", "echo b"} {
		if _, err := h.executions.Execute(context.Background(), cmd, executor.Options{}); err != nil {
			t.Fatalf("seeding execution: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/results?status=success", nil)
	rec := httptest.NewRecorder()
	h.HandleListResults(rec, req)

	resp := decode[ListResponse](t, rec)
	if resp.Total != 2 {
		t.Errorf("expected 2 successful results, got %d", resp.Total)
	}
	for _, r := range resp.Results {
		if !r.Success {
			t.Errorf("filter leaked non-success result %s", r.ID)
		}
	}

	req = httptest.NewRequest(http.MethodGet, "/results?limit=1&offset=1", nil)
	rec = httptest.NewRecorder()
	h.HandleListResults(rec, req)

	resp = decode[ListResponse](t, rec)
	if resp.Total != 3 || len(resp.Results) != 1 {
		t.Errorf("expected windowed listing of 1 from 3, got total=%d len=%d", resp.Total, len(resp.Results))
	}
	if resp.Results[0].ID != "script_002" {
		t.Errorf("expected script_002 at offset 1, got %q", resp.Results[0].ID)
	}
}

func TestHandleDeleteResult(t *testing.T) {
	h := newTestHandlers()

	res, err := h.executions.Execute(context.Background(), "echo hi", executor.Options{})
	if err != nil {
		t.Fatalf("seeding execution: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/results/"+res.ID, nil)
	req.SetPathValue("id", res.ID)
	rec := httptest.NewRecorder()
	h.HandleDeleteResult(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.HandleDeleteResult(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestHandleAnalyze(t *testing.T) {
	h := newTestHandlers()

	res, err := h.executions.Execute(context.Background(), "echo hi", executor.Options{})
	if err != nil {
		t.Fatalf("seeding execution: %v", err)
	}

	rec := postJSON(t, h.HandleAnalyze, AnalyzeRequest{ScriptID: res.ID, AnalysisType: "detailed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[analysis.Record](t, rec)
	if resp.ScriptResultID != res.ID {
		t.Errorf("expected reference to %q, got %q", res.ID, resp.ScriptResultID)
	}
	if resp.Details.Detailed == nil {
		t.Error("expected detailed sub-analysis")
	}

	rec = postJSON(t, h.HandleAnalyze, AnalyzeRequest{ScriptID: "script_999"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown script, got %d", rec.Code)
	}

	rec = postJSON(t, h.HandleAnalyze, AnalyzeRequest{ScriptID: res.ID, AnalysisType: "bogus"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown type, got %d", rec.Code)
	}
}

func TestHandleReport(t *testing.T) {
	h := newTestHandlers()

	res, err := h.executions.Execute(context.Background(), "echo hello", executor.Options{})
	if err != nil {
		t.Fatalf("seeding execution: %v", err)
	}

	rec := postJSON(t, h.HandleReport, ReportRequest{ScriptID: res.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[ReportResponse](t, rec)
	if resp.Format != report.FormatMarkdown {
		t.Errorf("expected default markdown format, got %q", resp.Format)
	}
	if !strings.Contains(resp.Report, "hello") {
		t.Error("expected command output in the report")
	}

	rec = postJSON(t, h.HandleReport, ReportRequest{ScriptID: res.ID, Format: "pdf"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported format, got %d", rec.Code)
	}
	errResp := decode[ErrorResponse](t, rec)
	if errResp.Code != "UNSUPPORTED_FORMAT" {
		t.Errorf("expected UNSUPPORTED_FORMAT, got %q", errResp.Code)
	}

	rec = postJSON(t, h.HandleReport, ReportRequest{ScriptID: "script_999"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown script, got %d", rec.Code)
	}
}

func TestHandleReportSavedToFinalPath(t *testing.T) {
	h := newTestHandlers()

	res, err := h.executions.Execute(context.Background(), "echo hello", executor.Options{})
	if err != nil {
		t.Fatalf("seeding execution: %v", err)
	}

	// Output path without an extension; SaveReport appends one.
	outputPath := filepath.Join(t.TempDir(), "run-report")
	rec := postJSON(t, h.HandleReport, ReportRequest{ScriptID: res.ID, OutputPath: outputPath})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decode[ReportResponse](t, rec)
	if resp.SavedTo != outputPath+".md" {
		t.Errorf("expected saved_to %q, got %q", outputPath+".md", resp.SavedTo)
	}
	if _, err := os.Stat(resp.SavedTo); err != nil {
		t.Errorf("saved_to must point at the written file: %v", err)
	}
}

func TestHandleReportWithStoredAnalysis(t *testing.T) {
	h := newTestHandlers()

	res, err := h.executions.Execute(context.Background(), "echo hello", executor.Options{})
	if err != nil {
		t.Fatalf("seeding execution: %v", err)
	}
	an, err := h.analyses.AnalyzeScriptResult(context.Background(), res, analysis.Options{Type: analysis.TypeBasic})
	if err != nil {
		t.Fatalf("seeding analysis: %v", err)
	}

	rec := postJSON(t, h.HandleReport, ReportRequest{ScriptID: res.ID, AnalysisID: an.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[ReportResponse](t, rec)
	if !strings.Contains(resp.Report, an.ID) {
		t.Error("expected analysis section in the report")
	}

	rec = postJSON(t, h.HandleReport, ReportRequest{ScriptID: res.ID, AnalysisID: "analysis_999"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown analysis, got %d", rec.Code)
	}
}

func TestHandleMonitor(t *testing.T) {
	h := newTestHandlers()

	if _, err := h.executions.Execute(context.Background(), "echo hi", executor.Options{}); err != nil {
		t.Fatalf("seeding execution: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/monitor", nil)
	rec := httptest.NewRecorder()
	h.HandleMonitor(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[MonitorResponse](t, rec)
	if len(resp.Active) != 0 {
		t.Errorf("expected no active executions, got %v", resp.Active)
	}
	if len(resp.History) != 1 {
		t.Errorf("expected one history entry, got %v", resp.History)
	}
}

func TestDurationJSONRoundTrip(t *testing.T) {
	var req ExecuteRequest
	if err := json.Unmarshal([]byte(`{"command":"echo hi","timeout":"1m30s"}`), &req); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if req.Timeout.Duration.Seconds() != 90 {
		t.Errorf("expected 90s, got %s", req.Timeout.Duration)
	}

	if err := json.Unmarshal([]byte(`{"timeout":"forever"}`), &req); err == nil {
		t.Error("expected error for unparseable duration")
	}
}
