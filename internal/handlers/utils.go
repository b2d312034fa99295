package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/saberactivo/social/internal/apperr"
	"github.com/saberactivo/social/internal/rut"
	"github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

var statusByCode = map[string]int{
	apperr.CodeNotAuthenticated:  http.StatusUnauthorized,
	apperr.CodeValidation:        http.StatusBadRequest,
	apperr.CodeNotFound:          http.StatusNotFound,
	apperr.CodeRelationNotFound:  http.StatusNotFound,
	apperr.CodeAlreadyRequested:  http.StatusConflict,
	apperr.CodeInvalidTransition: http.StatusConflict,
	apperr.CodeForbidden:         http.StatusForbidden,
	apperr.CodeTransient:         http.StatusBadGateway,
	apperr.CodeInternal:          http.StatusInternalServerError,
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	return statusByCode[apperr.Code(err)]
}

func writeError(w http.ResponseWriter, logger *logrus.Logger, r *http.Request, err error) {
	code := apperr.Code(err)
	status := statusByCode[code]
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// newValidator registers the custom tags used by request payloads.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("rut", func(fl validator.FieldLevel) bool {
		return rut.Valid(fl.Field().String())
	})
	return v
}

// decode reads a JSON body into dst and validates its struct tags.
func (a *API) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("invalid request payload: %v", err)
	}
	if err := a.validate.Struct(dst); err != nil {
		return apperr.Validation("%s", formatValidationError(err))
	}
	return nil
}

// formatValidationError joins field errors into one readable line.
func formatValidationError(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", strings.ToLower(e.Field()), e.Tag(), e.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s must satisfy %s", strings.ToLower(e.Field()), e.Tag()))
	}
	return strings.Join(msgs, ", ")
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid %s", name)
	}
	return id, nil
}

// queryLimit reads ?limit=, clamped to [1, ceiling]; absent means fallback.
func queryLimit(r *http.Request, fallback, ceiling int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, apperr.Validation("limit must be a positive integer")
	}
	return min(n, ceiling), nil
}
