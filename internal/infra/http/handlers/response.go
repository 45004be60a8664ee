package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/diag-leads/internal/infra/http/middleware"
	"github.com/xavierca1/diag-leads/internal/usecase"
)

const (
	actingUserHeader = "X-User-ID"
	maxBodyBytes     = 1 << 20
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Debug("falha ao escrever resposta", zap.Error(err))
	}
}

// writeError traduz a taxonomia de erros do pipeline em status HTTP.
func writeError(w http.ResponseWriter, err error) {
	var de *usecase.DomainError
	if errors.As(err, &de) {
		status := http.StatusBadRequest
		switch de.Code {
		case usecase.CodeNotFound:
			status = http.StatusNotFound
		case usecase.CodeTerminalState:
			status = http.StatusConflict
		}
		middleware.RecordPipelineError(de.Code)
		writeJSON(w, status, ErrorResponse{Error: de.Code, Message: de.Message})
		return
	}

	code := "INTERNAL_ERROR"
	var te *usecase.TechnicalError
	if errors.As(err, &te) {
		code = te.Code
	}
	middleware.RecordPipelineError(code)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: code, Message: "erro interno, tente novamente"})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: usecase.CodeValidation, Message: "JSON inválido"})
		return false
	}
	return true
}

// actingUser lê o usuário do header. Autenticação fica fora deste serviço.
func actingUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(actingUserHeader))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   usecase.CodeValidation,
			Message: "header " + actingUserHeader + " é obrigatório",
		})
		return "", false
	}
	return id, true
}
