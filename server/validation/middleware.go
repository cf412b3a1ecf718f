// Package validation decodes and checks JSON request bodies.
package validation

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/teilomillet/chatline/errors"
	"github.com/teilomillet/chatline/server/middleware"
)

// MaxBodyBytes caps request bodies. The largest legitimate body is a
// storage slot or a response to clean, both far below this.
const MaxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ErrorDetail describes one rejected field.
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// RequireJSON rejects bodies that are not declared as JSON.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength != 0 || r.Header.Get("Content-Type") != "" {
			if err := checkContentType(r); err != nil {
				err.RequestID = middleware.GetRequestID(r.Context())
				errors.WriteError(w, err)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func checkContentType(r *http.Request) *errors.ChatError {
	ct := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil || mediaType != "application/json" {
		return errors.NewValidationError("", "Invalid or missing Content-Type header", map[string]interface{}{
			"errors": []ErrorDetail{{
				Field:   "header:Content-Type",
				Message: "Content-Type must be application/json",
				Code:    "invalid_content_type",
			}},
		})
	}
	return nil
}

// DecodeJSON reads the body into dst and runs struct validation. The
// returned error is ready to be written to the client.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) *errors.ChatError {
	requestID := middleware.GetRequestID(r.Context())

	if err := checkContentType(r); err != nil {
		err.RequestID = requestID
		return err
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return errors.NewValidationError(requestID, "Invalid request format", map[string]interface{}{
			"errors": []ErrorDetail{{
				Field:   "body",
				Message: err.Error(),
				Code:    "invalid_json",
			}},
		})
	}

	if details := Struct(dst); len(details) > 0 {
		resp := errors.NewValidationError(requestID, "Request validation failed", map[string]interface{}{
			"errors": details,
		})
		resp.Code = http.StatusUnprocessableEntity
		return resp
	}
	return nil
}

// Struct validates v and describes each failure. It returns nil when v
// passes.
func Struct(v any) []ErrorDetail {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []ErrorDetail{{Field: "body", Message: err.Error(), Code: "invalid"}}
	}

	details := make([]ErrorDetail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, ErrorDetail{
			Field:   fe.Field(),
			Message: describe(fe),
			Code:    fmt.Sprintf("%s_validation_failed", fe.Tag()),
		})
	}
	return details
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.Join(strings.Fields(fe.Param()), ", "))
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
