package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/lyfeumbria/manager/drive"
	"github.com/lyfeumbria/manager/gauth"
	"github.com/lyfeumbria/manager/internal/errors"
)

type errorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return errors.Wrapf(errors.ErrInvalidRequest, "decode body: %v", err)
	}
	return nil
}

// writeDomainError maps a domain error to a status code. Token manager errors carry
// their user-facing message; drive errors are passed through as received.
func writeDomainError(w http.ResponseWriter, err error) {
	var apiErr *drive.APIError
	if errors.As(err, &apiErr) {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: apiErr.Body, Status: apiErr.StatusCode})
		return
	}

	status := statusFor(err)
	message := err.Error()
	var authErr *gauth.AuthError
	if errors.As(err, &authErr) {
		message = authErr.Message
	} else if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		message = "internal error"
	}
	writeError(w, status, message)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrInvalidCredentials),
		errors.Is(err, errors.ErrNotAuthenticated),
		errors.Is(err, errors.ErrSessionExpired),
		errors.Is(err, errors.ErrNoRefreshToken):
		return http.StatusUnauthorized
	case errors.Is(err, errors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errors.ErrNotFound), errors.Is(err, errors.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrEmailInUse), errors.Is(err, errors.ErrSignInPending):
		return http.StatusConflict
	case errors.Is(err, errors.ErrWeakPassword), errors.Is(err, errors.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrConfigMissing):
		return http.StatusServiceUnavailable
	case errors.Is(err, errors.ErrUserCancelled), errors.Is(err, errors.ErrPopupBlocked):
		return http.StatusConflict
	}
	var provErr *errors.ProviderError
	if errors.As(err, &provErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
