package dto

// AmountRequest é o corpo de depósito e saque; o usuário vem do X-Signer.
type AmountRequest struct {
	Amount uint64 `json:"amount"` // unidades base
}
