package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/datachat/datachat/internal/auth"
	"github.com/datachat/datachat/internal/pipeline"
	"github.com/datachat/datachat/internal/viz"
)

type askRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id"`
	ChartType      string `json:"chart_type"`
}

type askResponse struct {
	ConversationID string `json:"conversation_id"`
	pipeline.Envelope
}

// handleAsk drives the question pipeline. The pipeline itself never fails a
// request; only malformed input is rejected here.
func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "question pipeline is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleChat); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}
	chartType, err := viz.ParseChartType(strings.TrimSpace(request.ChartType))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "CHART_TYPE_NOT_SUPPORTED", err.Error(), false, map[string]any{"chart_type": request.ChartType})
		return
	}

	conversationID := strings.TrimSpace(request.ConversationID)
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	envelope := deps.Pipeline.Process(r.Context(), request.Question, pipeline.Options{
		ConversationID: conversationID,
		ChartType:      chartType,
	})

	writeJSON(w, http.StatusOK, askResponse{
		ConversationID: conversationID,
		Envelope:       envelope,
	})
}
