package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"scriptflow/internal/analysis"
	"scriptflow/internal/executor"
	"scriptflow/internal/monitor"
	"scriptflow/internal/report"
	"scriptflow/internal/storage"
)

// Handlers wires the three pipeline stages behind HTTP.
type Handlers struct {
	executions *executor.Engine
	analyses   *analysis.Engine
	reports    *report.Engine
	mon        *monitor.Monitor
	writer     *storage.Writer // optional persistence
	tracer     *monitor.Tracer
}

func NewHandlers(executions *executor.Engine, analyses *analysis.Engine, reports *report.Engine, mon *monitor.Monitor, writer *storage.Writer) *Handlers {
	return &Handlers{
		executions: executions,
		analyses:   analyses,
		reports:    reports,
		mon:        mon,
		writer:     writer,
		tracer:     monitor.NewTracer(),
	}
}

func (h *Handlers) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON: "+err.Error(), "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}
	if req.Command == "" {
		writeError(w, "command is required", "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}

	ctx, span := h.tracer.StartSpan(r.Context(), "execute")
	defer span.End()

	res, execErr := h.executions.Execute(ctx, req.Command, executor.Options{
		Shell:            req.Shell,
		Timeout:          req.Timeout.Duration,
		WorkingDirectory: req.WorkingDirectory,
		Env:              req.Env,
	})
	span.SetAttributes(monitor.AttrScriptID.String(res.ID), monitor.AttrDurationMS.Int64(res.Duration.Milliseconds()))

	// Timeouts and spawn failures still produce a record; the response
	// carries the failure rather than replacing the record.
	if execErr != nil && !executor.IsTimeout(execErr) && !executor.IsSpawnFailure(execErr) &&
		!errors.Is(execErr, executor.ErrEmptyCommand) {
		log.Error().Err(execErr).Str("request_id", RequestIDFromContext(r.Context())).Msg("execution failed")
		writeError(w, "execution failed", "EXECUTION_FAILED", http.StatusInternalServerError, r)
		return
	}

	if h.writer != nil {
		h.writer.Save(res)
	}

	resp := toExecuteResponse(res)
	if req.Analyze {
		if rec, err := h.analyses.AnalyzeScriptResult(ctx, res, analysis.Options{Type: analysis.TypeBasic}); err == nil {
			resp.Analysis = rec
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) HandleGetResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	res, err := h.executions.GetResult(id)
	if err != nil {
		writeError(w, "result not found: "+id, "NOT_FOUND", http.StatusNotFound, r)
		return
	}
	writeJSON(w, http.StatusOK, toExecuteResponse(res))
}

func (h *Handlers) HandleListResults(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	status := r.URL.Query().Get("status")

	all := h.executions.GetAllResults()
	filtered := make([]*executor.Result, 0, len(all))
	for _, res := range all {
		if status == "" || res.Status() == status {
			filtered = append(filtered, res)
		}
	}

	total := len(filtered)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	writeJSON(w, http.StatusOK, ListResponse{
		Results: filtered[offset:end],
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

func (h *Handlers) HandleDeleteResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.executions.DeleteResult(id) {
		writeError(w, "result not found: "+id, "NOT_FOUND", http.StatusNotFound, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON: "+err.Error(), "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}
	if req.ScriptID == "" {
		writeError(w, "script_id is required", "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}

	res, err := h.executions.GetResult(req.ScriptID)
	if err != nil {
		writeError(w, "result not found: "+req.ScriptID, "NOT_FOUND", http.StatusNotFound, r)
		return
	}

	ctx, span := h.tracer.StartSpan(r.Context(), "analyze", monitor.AttrScriptID.String(res.ID))
	defer span.End()

	rec, err := h.analyses.AnalyzeScriptResult(ctx, res, analysis.Options{
		Type:     analysis.Type(req.AnalysisType),
		EnableAI: req.EnableAI,
		Context:  req.Context,
	})
	if err != nil {
		writeError(w, err.Error(), "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}
	span.SetAttributes(monitor.AttrAnalysisID.String(rec.ID))
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) HandleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := h.analyses.GetAnalysis(id)
	if err != nil {
		writeError(w, "analysis not found: "+id, "NOT_FOUND", http.StatusNotFound, r)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON: "+err.Error(), "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}
	if req.ScriptID == "" {
		writeError(w, "script_id is required", "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}

	res, err := h.executions.GetResult(req.ScriptID)
	if err != nil {
		writeError(w, "result not found: "+req.ScriptID, "NOT_FOUND", http.StatusNotFound, r)
		return
	}

	var rec *analysis.Record
	if req.AnalysisID != "" {
		rec, err = h.analyses.GetAnalysis(req.AnalysisID)
		if err != nil {
			writeError(w, "analysis not found: "+req.AnalysisID, "NOT_FOUND", http.StatusNotFound, r)
			return
		}
	}

	opts := report.DefaultOptions()
	if req.Format != "" {
		opts.Format = req.Format
	}
	opts.Template = req.Template
	opts.OutputPath = req.OutputPath
	opts.CustomStyles = req.CustomStyles
	opts.Metadata = req.Metadata
	applyFlag(&opts.IncludeDetails, req.IncludeDetails)
	applyFlag(&opts.IncludeAnalysis, req.IncludeAnalysis)
	applyFlag(&opts.IncludeRecommendations, req.IncludeRecommendations)
	applyFlag(&opts.IncludeNextSteps, req.IncludeNextSteps)

	_, span := h.tracer.StartSpan(r.Context(), "report",
		monitor.AttrScriptID.String(res.ID), monitor.AttrFormat.String(opts.Format))
	defer span.End()

	out, err := h.reports.GenerateReport(res, rec, opts)
	if err != nil {
		if errors.Is(err, report.ErrUnsupportedFormat) {
			writeError(w, err.Error(), "UNSUPPORTED_FORMAT", http.StatusBadRequest, r)
			return
		}
		writeError(w, err.Error(), "REPORT_FAILED", http.StatusInternalServerError, r)
		return
	}

	resp := ReportResponse{
		ScriptID:   res.ID,
		AnalysisID: req.AnalysisID,
		Format:     opts.Format,
		Report:     out,
	}
	if opts.OutputPath != "" {
		resp.SavedTo = report.FinalPath(opts.OutputPath, opts.Format)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) HandleMonitor(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	writeJSON(w, http.StatusOK, MonitorResponse{
		Active:  h.mon.GetActiveExecutions(),
		History: h.mon.GetExecutionHistory(limit),
	})
}

func toExecuteResponse(res *executor.Result) ExecuteResponse {
	return ExecuteResponse{
		ID:        res.ID,
		Command:   res.Command,
		Success:   res.Success,
		ExitCode:  res.ExitCode,
		Duration:  res.Duration.String(),
		Stdout:    res.Stdout,
		Stderr:    res.Stderr,
		Error:     res.Failure,
		StartTime: res.StartTime,
		EndTime:   res.EndTime,
	}
}

func applyFlag(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encoding response failed")
	}
}

func writeError(w http.ResponseWriter, message, code string, status int, r *http.Request) {
	writeJSON(w, status, ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: RequestIDFromContext(r.Context()),
	})
}
