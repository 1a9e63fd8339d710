package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/datachat/datachat/internal/auth"
	"github.com/datachat/datachat/internal/history"
)

// handleGetConversation replays the transcript of one conversation in the
// order the turns happened.
func handleGetConversation(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "conversation history is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleChat); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	conversationID := strings.TrimSpace(r.PathValue("id"))
	if conversationID == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "CONVERSATION_ID_REQUIRED", "conversation id is required", false, nil)
		return
	}

	turns, err := deps.History.ListTurns(r.Context(), conversationID)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "CONVERSATION_NOT_FOUND", "conversation was not found", false, map[string]any{"conversation_id": conversationID})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "HISTORY_FETCH_FAILED", "failed to load conversation", true, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conversationID,
		"turns":           turns,
	})
}
