package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xavierca1/colaai-billing/internal/entity"
	"github.com/xavierca1/colaai-billing/internal/usecase"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// decodeJSON aceita corpo vazio como objeto vazio.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "JSON inválido")
	return false
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

// StatusFor traduz os erros dos use cases em status HTTP.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrBillingNotFound), errors.Is(err, entity.ErrSubscriptionNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrForbidden):
		return http.StatusForbidden
	case usecase.IsDomainError(err):
		return domainStatus(err)
	case usecase.IsGatewayError(err):
		return http.StatusBadGateway
	case usecase.IsTechnicalError(err):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func domainStatus(err error) int {
	var de *usecase.DomainError
	errors.As(err, &de)
	switch {
	case de.Code == "UNAUTHORIZED":
		return http.StatusUnauthorized
	case de.Code == "FORBIDDEN":
		return http.StatusForbidden
	case strings.HasSuffix(de.Code, "_NOT_FOUND"):
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func writeUseCaseError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)

	code, message := "INTERNAL_ERROR", "Erro interno"
	var (
		de *usecase.DomainError
		ge *usecase.GatewayError
	)
	switch {
	case errors.As(err, &de):
		code, message = de.Code, de.Message
	case status == http.StatusNotFound:
		code, message = "NOT_FOUND", err.Error()
	case status == http.StatusForbidden:
		code, message = "FORBIDDEN", err.Error()
	case errors.As(err, &ge):
		code, message = "GATEWAY_ERROR", fmt.Sprintf("Falha ao falar com %s", ge.Provider)
	}

	evt := log.Warn()
	if status >= http.StatusInternalServerError {
		evt = log.Error()
	}
	evt.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("requisição falhou")

	writeErrorResponse(w, status, code, message)
}
