package handlers

import (
	"net/http"

	"github.com/teilomillet/chatline/errors"
	"github.com/teilomillet/chatline/server/metrics"
	"github.com/teilomillet/chatline/server/middleware"
	"github.com/teilomillet/chatline/server/processing"
	"github.com/teilomillet/chatline/server/validation"
	"go.uber.org/zap"
)

// ChatHandler runs a user message through the chat pipeline.
type ChatHandler struct {
	processor *processing.Processor
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewChatHandler creates a chat handler. m may be nil; a nil logger logs
// through errors.DefaultLogger.
func NewChatHandler(processor *processing.Processor, m *metrics.Metrics, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		processor: processor,
		metrics:   m,
		logger:    logger,
	}
}

// ServeHTTP handles POST /v1/chat.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var body validation.ChatRequest
	if verr := validation.DecodeJSON(w, r, &body); verr != nil {
		errors.WriteError(w, verr)
		return
	}

	resp, err := h.processor.ProcessRequest(r.Context(), &processing.Request{
		Message:   body.Message,
		RequestID: requestID,
	})
	if err != nil {
		h.fail(w, requestID, err)
		return
	}

	if h.metrics != nil {
		h.metrics.Classifications.WithLabelValues(resp.Category).Inc()
	}
	writeJSON(w, http.StatusOK, resp)
}

// fail writes err with the text the chat window should show. Validation
// failures show their own reason; everything else uses the configured
// message for its class.
func (h *ChatHandler) fail(w http.ResponseWriter, requestID string, err error) {
	var chatErr *errors.ChatError
	if !errors.As(err, &chatErr) {
		chatErr = errors.Wrap(requestID, err)
	}

	userMessage := chatErr.Message
	if chatErr.Type != errors.ValidationError {
		userMessage = h.processor.UserMessage(chatErr)
	}

	details := make(map[string]interface{}, len(chatErr.Details)+1)
	for k, v := range chatErr.Details {
		details[k] = v
	}
	details["user_message"] = userMessage

	if h.metrics != nil {
		h.metrics.ChatFailures.WithLabelValues(string(chatErr.Type)).Inc()
	}
	if chatErr.Type != errors.ValidationError {
		errors.LogError(h.logger, chatErr, requestID)
	}

	// chatErr may be shared with coalesced requests; respond with a copy.
	errors.WriteError(w, errors.NewError(chatErr.Type, chatErr.Message, chatErr.Code, requestID, details, chatErr))
}
