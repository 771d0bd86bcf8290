package dto

import "github.com/radieske/racers-escrow/internal/escrow"

type VaultResponse struct {
	Address        string `json:"address"`
	User           string `json:"user"`
	Balance        uint64 `json:"balance"`
	TotalDeposited uint64 `json:"total_deposited"`
	TotalWithdrawn uint64 `json:"total_withdrawn"`
}

func FromVault(addr escrow.Address, v *escrow.Vault) VaultResponse {
	return VaultResponse{
		Address:        addr.String(),
		User:           v.User.String(),
		Balance:        v.Balance,
		TotalDeposited: v.TotalDeposited,
		TotalWithdrawn: v.TotalWithdrawn,
	}
}
