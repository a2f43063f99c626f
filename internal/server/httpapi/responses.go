package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/blobgate/internal/common"
	"github.com/dmitrijs2005/blobgate/internal/logging"
)

const (
	msgInternal       = "Internal server error"
	msgAuthFailed     = "Authentication failed"
	msgAlreadyExists  = "Email is already registered"
	msgNotFound       = "File not found"
	msgNoFile         = "No file uploaded"
	msgInvalidBody    = "Invalid request body"
	msgMissingCreds   = "Email and password are required"
	msgCredsAfterFile = "Credentials must precede the file"
)

type messageResponse struct {
	Message string `json:"message"`
}

type loginResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
}

type keyResponse struct {
	Message string `json:"message"`
	Key     string `json:"key"`
}

type filesResponse struct {
	Files []string `json:"files"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// writeError maps a service error to a status code and a message that is
// safe to show to the caller. Details of unexpected errors only reach the log.
func writeError(ctx context.Context, w http.ResponseWriter, logger logging.Logger, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		writeMessage(w, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, common.ErrorAlreadyExists):
		writeMessage(w, http.StatusConflict, msgAlreadyExists)
	case errors.Is(err, common.ErrorUnauthorized):
		writeMessage(w, http.StatusUnauthorized, msgAuthFailed)
	case errors.Is(err, common.ErrorNotFound):
		writeMessage(w, http.StatusNotFound, msgNotFound)
	default:
		logger.Error(ctx, "Request failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
	}
}

// validationMessage keeps the part of a validation error after the sentinel.
func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, common.ErrorValidation.Error()+": "); i >= 0 {
		msg = msg[i+len(common.ErrorValidation.Error())+2:]
	}
	if msg == "" || msg == common.ErrorValidation.Error() {
		return msgInvalidBody
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
