package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mattjoyce/orchestra-gw/internal/action"
	"github.com/mattjoyce/orchestra-gw/internal/agent"
	"github.com/mattjoyce/orchestra-gw/internal/audit"
	"github.com/mattjoyce/orchestra-gw/internal/auth"
	"github.com/mattjoyce/orchestra-gw/internal/events"
	"github.com/mattjoyce/orchestra-gw/internal/metrics"
	"github.com/mattjoyce/orchestra-gw/internal/task"
	"github.com/mattjoyce/orchestra-gw/internal/workflow"
)

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := HealthzResponse{
		Status:           "ok",
		UptimeSeconds:    int64(time.Since(s.startedAt).Seconds()),
		AgentsRegistered: len(s.registry.Registered()),
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleAction handles POST /actions: the single entry point for
// executeAgentTask, executeWorkflow, and the declared human-loop actions.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "action name is required")
		return
	}

	principal, _ := auth.PrincipalFromContext(r.Context())
	tenant := principal.Tenant
	digest := audit.Digest(req.Parameters)

	s.events.Publish(events.TypeActionReceived, map[string]any{
		"action": req.Name,
		"tenant": tenant,
	})

	result, err := s.dispatch.Dispatch(r.Context(), req.Name, req.Parameters, tenant)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, action.ErrUnknownAction):
			status = http.StatusBadRequest
		case errors.Is(err, action.ErrNotImplemented):
			status = http.StatusNotImplemented
		}

		metrics.ActionsTotal.WithLabelValues(req.Name, audit.StatusRejected).Inc()
		s.events.Publish(events.TypeActionRejected, map[string]any{
			"action": req.Name,
			"tenant": tenant,
			"error":  err.Error(),
		})
		s.recordAudit(r, audit.Entry{
			Tenant:     tenant,
			Action:     req.Name,
			Digest:     digest,
			Status:     audit.StatusRejected,
			Error:      err.Error(),
			DurationMS: time.Since(start).Milliseconds(),
		})

		s.writeError(w, status, err.Error())
		return
	}

	s.finishAction(r, req.Name, tenant, digest, result)
	respondJSON(w, http.StatusOK, result)
}

// finishAction records audit, spend, metrics, and events for a dispatched
// action result.
func (s *Server) finishAction(r *http.Request, name, tenant, digest string, result any) {
	entry := audit.Entry{
		Tenant: tenant,
		Action: name,
		Digest: digest,
		Status: audit.StatusOK,
	}

	switch res := result.(type) {
	case task.Result:
		entry.DurationMS = res.ExecutionTimeMS
		if !res.Success {
			entry.Status = audit.StatusFailed
			entry.Error = res.Error
		}
		metrics.TaskDuration.WithLabelValues(string(res.AgentType)).
			Observe(float64(res.ExecutionTimeMS) / 1000)
		if res.Error == "Budget limit exceeded" {
			metrics.QuotaDenials.WithLabelValues(tenant).Inc()
		}
	case workflow.Result:
		entry.DurationMS = res.ExecutionTimeMS
		if !res.Success {
			entry.Status = audit.StatusFailed
			entry.Error = res.Error
		}
		if res.Error == "Budget limit exceeded for workflow execution" {
			metrics.QuotaDenials.WithLabelValues(tenant).Inc()
		}
		if res.Success {
			s.events.Publish(events.TypeWorkflowCompleted, map[string]any{
				"workflow": string(res.WorkflowType),
				"tenant":   tenant,
				"steps":    res.StepsCompleted,
			})
		}
	}

	metrics.ActionsTotal.WithLabelValues(name, entry.Status).Inc()

	eventType := events.TypeActionCompleted
	if entry.Status != audit.StatusOK {
		eventType = events.TypeActionFailed
	}
	s.events.Publish(eventType, map[string]any{
		"action":      name,
		"tenant":      tenant,
		"duration_ms": entry.DurationMS,
		"error":       entry.Error,
	})

	if s.spend != nil && entry.DurationMS > 0 {
		if err := s.spend.Record(r.Context(), tenant, time.Duration(entry.DurationMS)*time.Millisecond); err != nil {
			s.logger.Error("failed to record quota spend", "tenant", tenant, "error", err)
		}
	}

	s.recordAudit(r, entry)
}

func (s *Server) recordAudit(r *http.Request, e audit.Entry) {
	if s.auditLog == nil {
		return
	}
	if err := s.auditLog.Record(r.Context(), e); err != nil {
		s.logger.Error("failed to record audit entry", "action", e.Action, "error", err)
	}
}

// handleMessages handles POST /messages: routes the latest user message
// to one capability by keyword and replies with its summary.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var userMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			userMessage = req.Messages[i].Content
			break
		}
	}
	if userMessage == "" {
		s.writeError(w, http.StatusBadRequest, "No user message found")
		return
	}

	reply, err := s.routeMessage(r, userMessage, req.Context)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to process message: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, MessageResponse{
		Messages: []Message{{
			Role:      "assistant",
			Content:   reply,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}},
	})
}

// routeMessage picks a capability by keyword, mirroring the action
// surface's agent set. Unmatched messages default to requirements
// extraction.
func (s *Server) routeMessage(r *http.Request, userMessage string, msgContext map[string]any) (string, error) {
	if msgContext == nil {
		msgContext = map[string]any{}
	}
	lower := strings.ToLower(userMessage)

	var (
		agentType agent.Type
		in        agent.Input
		replyFmt  string
	)
	switch {
	case strings.Contains(lower, "analyze") && strings.Contains(lower, "repository"):
		agentType = agent.TypeRepositoryAnalyzer
		in.RepositoryPath = "."
		if p, ok := msgContext["repository_path"].(string); ok && p != "" {
			in.RepositoryPath = p
		}
		replyFmt = "Repository analysis complete. Key findings: %s"

	case strings.Contains(lower, "architecture") || strings.Contains(lower, "design"):
		agentType = agent.TypeArchitectureDesigner
		in.Requirements = map[string]any{"description": userMessage}
		in.Constraints, _ = msgContext["constraints"].(map[string]any)
		replyFmt = "Architecture design complete. Recommended approach: %s"

	case strings.Contains(lower, "implement") || strings.Contains(lower, "plan"):
		agentType = agent.TypeImplementationPlanner
		in.Requirements = map[string]any{"description": userMessage}
		in.Architecture, _ = msgContext["architecture"].(map[string]any)
		replyFmt = "Implementation plan created. Key steps: %s"

	default:
		agentType = agent.TypeRequirementsExtractor
		in.Description = userMessage
		in.Context = msgContext
		replyFmt = "Requirements extracted: %s"
	}

	out, _, err := s.tasks.Invoke(r.Context(), agentType, in)
	if err != nil {
		return "", err
	}

	summary := out.Summary
	if summary == "" {
		summary = "No summary available"
	}
	return fmt.Sprintf(replyFmt, summary), nil
}

// handleAgents handles GET /agents: the registered agent types.
func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	registered := s.registry.Registered()
	agents := make([]string, 0, len(registered))
	for _, t := range registered {
		agents = append(agents, string(t))
	}
	respondJSON(w, http.StatusOK, AgentsResponse{Agents: agents})
}

// handleAudit handles GET /audit?limit=N, newest first.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditLog == nil {
		s.writeError(w, http.StatusNotFound, "audit log not enabled")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			s.writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	entries, err := s.auditLog.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to read audit log", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read audit log")
		return
	}

	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:         e.ID,
			Tenant:     e.Tenant,
			Action:     e.Action,
			Digest:     e.Digest,
			Status:     e.Status,
			Error:      e.Error,
			DurationMS: e.DurationMS,
			CreatedAt:  e.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// respondJSON is a helper to write JSON responses
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
