package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/ocrhook/internal/core/domain"
	"github.com/custodia-labs/ocrhook/internal/core/ports/driven"
	"github.com/custodia-labs/ocrhook/internal/core/ports/driving"
	"github.com/custodia-labs/ocrhook/internal/core/services"
	"github.com/custodia-labs/ocrhook/internal/logger"
)

// validationParam is the query parameter carrying the handshake token.
// The key is matched case-insensitively.
const validationParam = "validationtoken"

// Handler dispatches inbound webhook calls.
type Handler struct {
	processor driving.NotificationProcessor
	config    driven.ConfigStore
}

// NewHandler creates the dispatcher.
func NewHandler(processor driving.NotificationProcessor, config driven.ConfigStore) *Handler {
	return &Handler{processor: processor, config: config}
}

// ServeHTTP handles one webhook invocation. The response is 200 no
// matter what happened; see the package comment.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()[:8]
	logger.Debug("[%s] %s %s", reqID, r.Method, r.URL.Path)

	// Handshake short-circuits before any body parsing.
	if token, ok := validationToken(r); ok {
		logger.Info("[%s] Answering subscription validation handshake", reqID)
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, token) //nolint:errcheck // nothing to do about a lost response
		return
	}

	var batch domain.NotificationBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		logger.Error("[%s] Undecodable notification batch: %v", reqID, err)
		w.WriteHeader(http.StatusOK)
		return
	}

	if len(batch.Value) == 0 {
		logger.Debug("[%s] Empty notification batch", reqID)
		w.WriteHeader(http.StatusOK)
		return
	}

	logger.Info("[%s] Processing %d notification(s)", reqID, len(batch.Value))
	expectedState := h.config.GetString(services.ConfigKeyClientState)

	for _, n := range batch.Value {
		if expectedState != "" && n.ClientState != expectedState {
			logger.Warn("[%s] Skipping notification for %s: %v", reqID, n.Resource, domain.ErrClientStateMismatch)
			continue
		}
		// Errors stop here: logged, never surfaced to the caller.
		if err := h.processor.ProcessNotification(r.Context(), n); err != nil {
			logger.Error("[%s] Notification for %s failed: %v", reqID, n.Resource, err)
		}
	}

	w.WriteHeader(http.StatusOK)
}

// validationToken extracts the handshake token, matching the parameter
// name case-insensitively.
func validationToken(r *http.Request) (string, bool) {
	for key, values := range r.URL.Query() {
		if strings.EqualFold(key, validationParam) && len(values) > 0 {
			return values[0], true
		}
	}
	return "", false
}
