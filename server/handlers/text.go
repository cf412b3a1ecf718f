package handlers

import (
	"net/http"

	"github.com/teilomillet/chatline/errors"
	"github.com/teilomillet/chatline/server/validation"
	"github.com/teilomillet/chatline/textutil"
)

// TextHandler exposes the text tools on their own: cleanup, classification
// and validation.
type TextHandler struct {
	cleaner    *textutil.Cleaner
	classifier *textutil.Classifier
	validator  *textutil.Validator
}

// NewTextHandler creates a text handler.
func NewTextHandler(cleaner *textutil.Cleaner, classifier *textutil.Classifier, validator *textutil.Validator) *TextHandler {
	return &TextHandler{
		cleaner:    cleaner,
		classifier: classifier,
		validator:  validator,
	}
}

// CleanResponse is the body returned by Clean.
type CleanResponse struct {
	Text string `json:"text"`
}

// ClassifyResponse is the body returned by Classify.
type ClassifyResponse struct {
	Category textutil.Category `json:"category"`
}

// Clean handles POST /v1/clean.
func (h *TextHandler) Clean(w http.ResponseWriter, r *http.Request) {
	var body validation.CleanRequest
	if err := validation.DecodeJSON(w, r, &body); err != nil {
		errors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CleanResponse{Text: h.cleaner.Clean(body.Text, body.Prompt)})
}

// Classify handles POST /v1/classify.
func (h *TextHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var body validation.ClassifyRequest
	if err := validation.DecodeJSON(w, r, &body); err != nil {
		errors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ClassifyResponse{Category: h.classifier.Classify(body.Message)})
}

// Validate handles POST /v1/validate. A failed check is a 200 with
// valid=false; only malformed requests are errors.
func (h *TextHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var body validation.ValidateRequest
	if err := validation.DecodeJSON(w, r, &body); err != nil {
		errors.WriteError(w, err)
		return
	}

	var result textutil.ValidationResult
	switch body.Kind {
	case "message":
		result = h.validator.ValidateMessage(body.Value)
	case "api_key":
		result = textutil.ValidationResult{Valid: textutil.ValidateAPIKey(body.Value)}
		if !result.Valid {
			result.Reason = "Invalid API key format"
		}
	case "email":
		result = textutil.ValidationResult{Valid: textutil.ValidateEmail(body.Value)}
		if !result.Valid {
			result.Reason = "Invalid email address"
		}
	}
	writeJSON(w, http.StatusOK, result)
}
