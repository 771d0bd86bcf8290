package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/racers-escrow/internal/escrow"
	"github.com/radieske/racers-escrow/internal/escrow-service/metrics"
	"github.com/radieske/racers-escrow/internal/shared/httpx"
	"github.com/radieske/racers-escrow/internal/vault-service/dto"
)

// Vaults define as operações de cofre usadas pelo handler HTTP
type Vaults interface {
	InitializeVault(ctx context.Context, user escrow.Pubkey) (*escrow.Vault, error)
	Deposit(ctx context.Context, user escrow.Pubkey, amount uint64) (*escrow.Vault, error)
	Withdraw(ctx context.Context, user escrow.Pubkey, amount uint64) (*escrow.Vault, error)
	Vault(ctx context.Context, user escrow.Pubkey) (*escrow.Vault, error)
	VaultAddress(user escrow.Pubkey) (escrow.Address, error)
}

// Server expõe endpoints HTTP para o cofre do apostador
type Server struct {
	log     *zap.Logger
	vaults  Vaults
	metrics *metrics.Metrics
}

// NewServer instancia o servidor HTTP do cofre
func NewServer(log *zap.Logger, v Vaults, m *metrics.Metrics) *Server {
	return &Server{log: log, vaults: v, metrics: m}
}

// Router retorna o roteador HTTP com as rotas do cofre
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/vault", s.initialize)
	r.Post("/vault/deposit", s.deposit)
	r.Post("/vault/withdraw", s.withdraw)
	r.Get("/vault/{user}", s.getVault)
	return r
}

// initialize cria o cofre do chamador
func (s *Server) initialize(w http.ResponseWriter, r *http.Request) {
	user, ok := httpx.Signer(r)
	if !ok {
		httpx.Unauthenticated(w)
		return
	}
	v, err := s.vaults.InitializeVault(r.Context(), user)
	s.metrics.Observe("initialize_vault", err)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	s.writeVault(w, http.StatusCreated, v)
}

// deposit adiciona saldo ao cofre do chamador
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	s.move(w, r, "deposit", s.vaults.Deposit)
}

// withdraw retira saldo do cofre do chamador
func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	s.move(w, r, "withdraw", s.vaults.Withdraw)
}

func (s *Server) move(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, user escrow.Pubkey, amount uint64) (*escrow.Vault, error)) {
	user, ok := httpx.Signer(r)
	if !ok {
		httpx.Unauthenticated(w)
		return
	}
	var req dto.AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.BadRequest(w, "bad json")
		return
	}
	v, err := fn(r.Context(), user, req.Amount)
	s.metrics.Observe(op, err)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	s.metrics.AddVolume(op, req.Amount)
	s.writeVault(w, http.StatusOK, v)
}

// getVault retorna o cofre e o saldo do usuário
func (s *Server) getVault(w http.ResponseWriter, r *http.Request) {
	user, err := escrow.ParsePubkey(chi.URLParam(r, "user"))
	if err != nil {
		httpx.BadRequest(w, "invalid user key")
		return
	}
	v, err := s.vaults.Vault(r.Context(), user)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	s.writeVault(w, http.StatusOK, v)
}

func (s *Server) writeVault(w http.ResponseWriter, status int, v *escrow.Vault) {
	addr, err := s.vaults.VaultAddress(v.User)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	httpx.WriteJSON(w, status, dto.FromVault(addr, v))
}
