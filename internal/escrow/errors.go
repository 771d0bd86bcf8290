package escrow

import "errors"

// Code é o código legível por máquina de uma rejeição.
type Code string

const (
	CodeUnknown Code = "UNKNOWN"

	// Corrida
	CodeDuplicateRace     Code = "DUPLICATE_RACE"
	CodeRaceNotFound      Code = "RACE_NOT_FOUND"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeInvalidRaceStatus Code = "INVALID_RACE_STATUS"

	// Apostas
	CodeRaceNotAcceptingBets Code = "RACE_NOT_ACCEPTING_BETS"
	CodeInvalidBetAmount     Code = "INVALID_BET_AMOUNT"
	CodeUserAlreadyBet       Code = "USER_ALREADY_BET"
	CodeBetNotFound          Code = "BET_NOT_FOUND"

	// Liquidação
	CodeRaceNotCompleted   Code = "RACE_NOT_COMPLETED"
	CodeBetAlreadyClaimed  Code = "BET_ALREADY_CLAIMED"
	CodeBetNotLost         Code = "BET_NOT_LOST"
	CodeUserWon            Code = "USER_WON"
	CodeInsufficientEscrow Code = "INSUFFICIENT_ESCROW"

	// Vault
	CodeInvalidAmount       Code = "INVALID_AMOUNT"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeVaultNotFound       Code = "VAULT_NOT_FOUND"
	CodeDuplicateVault      Code = "DUPLICATE_VAULT"

	// Plataforma
	CodeConflict        Code = "CONFLICT"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)

// Error é o erro de domínio com código e metadados.
type Error struct {
	Code     Code              // código estável exposto ao chamador
	Message  string            // mensagem interna (logs)
	Metadata map[string]string // contexto adicional
	Cause    error             // erro de origem
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is compara pelo código, para que errors.Is(err, ErrX) funcione com
// instâncias que carregam metadados.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf devolve o código do primeiro *Error na cadeia, ou CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

var (
	ErrDuplicateRace        = New(CodeDuplicateRace, "race already exists")
	ErrRaceNotFound         = New(CodeRaceNotFound, "race not found")
	ErrUnauthorized         = New(CodeUnauthorized, "caller is not the race authority")
	ErrInvalidRaceStatus    = New(CodeInvalidRaceStatus, "invalid race status for this operation")
	ErrRaceNotAcceptingBets = New(CodeRaceNotAcceptingBets, "race is not accepting bets")
	ErrInvalidBetAmount     = New(CodeInvalidBetAmount, "bet amount out of range")
	ErrUserAlreadyBet       = New(CodeUserAlreadyBet, "user already has an active bet in this race")
	ErrBetNotFound          = New(CodeBetNotFound, "bet not found")
	ErrRaceNotCompleted     = New(CodeRaceNotCompleted, "race is not completed")
	ErrBetAlreadyClaimed    = New(CodeBetAlreadyClaimed, "bet already claimed")
	ErrBetNotLost           = New(CodeBetNotLost, "bet is not in lost status")
	ErrUserWon              = New(CodeUserWon, "winning bets cannot claim rakeback")
	ErrInsufficientEscrow   = New(CodeInsufficientEscrow, "race escrow balance is insufficient")
	ErrInvalidAmount        = New(CodeInvalidAmount, "amount must be positive")
	ErrInsufficientBalance  = New(CodeInsufficientBalance, "insufficient balance")
	ErrVaultNotFound        = New(CodeVaultNotFound, "vault not found")
	ErrDuplicateVault       = New(CodeDuplicateVault, "vault already initialized")
	ErrConflict             = New(CodeConflict, "concurrent update, resubmit")
	ErrInvalidArgument      = New(CodeInvalidArgument, "invalid argument")
)

func raceMeta(raceID string) map[string]string {
	return map[string]string{"race_id": raceID}
}

func betMeta(raceID string, user Pubkey) map[string]string {
	return map[string]string{"race_id": raceID, "user": user.String()}
}
