package events

const (
	TypeVaultInitialized = "vault_initialized"
	TypeDeposited        = "deposited"
	TypeWithdrawn        = "withdrawn"
)

type VaultInitialized struct {
	User  string `json:"user"`
	Vault string `json:"vault"`
}

func (VaultInitialized) EventType() string { return TypeVaultInitialized }
func (VaultInitialized) Race() string      { return "" }

type Deposited struct {
	User       string `json:"user"`
	Amount     uint64 `json:"amount"`
	NewBalance uint64 `json:"new_balance"`
}

func (Deposited) EventType() string { return TypeDeposited }
func (Deposited) Race() string      { return "" }

type Withdrawn struct {
	User       string `json:"user"`
	Amount     uint64 `json:"amount"`
	NewBalance uint64 `json:"new_balance"`
}

func (Withdrawn) EventType() string { return TypeWithdrawn }
func (Withdrawn) Race() string      { return "" }
