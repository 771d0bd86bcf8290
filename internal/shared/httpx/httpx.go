package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/racers-escrow/internal/escrow"
)

// ErrorResponse é o corpo de toda resposta de erro.
type ErrorResponse struct {
	Error    string            `json:"error"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// WriteJSON serializa a resposta em JSON e define o status HTTP
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusOf traduz o código de domínio para status HTTP.
func StatusOf(code escrow.Code) int {
	switch code {
	case escrow.CodeInvalidArgument, escrow.CodeInvalidBetAmount, escrow.CodeInvalidAmount:
		return http.StatusBadRequest
	case escrow.CodeUnauthorized:
		return http.StatusForbidden
	case escrow.CodeRaceNotFound, escrow.CodeBetNotFound, escrow.CodeVaultNotFound:
		return http.StatusNotFound
	case escrow.CodeDuplicateRace, escrow.CodeDuplicateVault, escrow.CodeUserAlreadyBet,
		escrow.CodeBetAlreadyClaimed, escrow.CodeConflict:
		return http.StatusConflict
	case escrow.CodeInvalidRaceStatus, escrow.CodeRaceNotAcceptingBets, escrow.CodeRaceNotCompleted,
		escrow.CodeBetNotLost, escrow.CodeUserWon, escrow.CodeInsufficientEscrow,
		escrow.CodeInsufficientBalance:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WriteError responde com o código de domínio; erros sem código viram 500
// e são logados.
func WriteError(w http.ResponseWriter, log *zap.Logger, err error) {
	var de *escrow.Error
	if !errors.As(err, &de) {
		log.Error("unexpected error", zap.Error(err))
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   string(escrow.CodeUnknown),
			Message: "internal error",
		})
		return
	}
	WriteJSON(w, StatusOf(de.Code), ErrorResponse{
		Error:    string(de.Code),
		Message:  de.Message,
		Metadata: de.Metadata,
	})
}

// BadRequest responde INVALID_ARGUMENT com a mensagem dada.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   string(escrow.CodeInvalidArgument),
		Message: msg,
	})
}

// Signer lê a chave do chamador do header X-Signer, já verificada na borda.
func Signer(r *http.Request) (escrow.Pubkey, bool) {
	k, err := escrow.ParsePubkey(r.Header.Get(SignerHeader))
	if err != nil {
		return escrow.Pubkey{}, false
	}
	return k, true
}

const SignerHeader = "X-Signer"

// Unauthenticated responde 401 quando falta a identidade do chamador.
func Unauthenticated(w http.ResponseWriter) {
	WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:   "UNAUTHENTICATED",
		Message: "missing or invalid " + SignerHeader + " header",
	})
}
