package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/racers-escrow/internal/escrow"
	"github.com/radieske/racers-escrow/internal/escrow-service/dto"
	"github.com/radieske/racers-escrow/internal/escrow-service/metrics"
	"github.com/radieske/racers-escrow/internal/shared/httpx"
)

// Escrow define as operações de corrida, aposta e liquidação usadas pelo handler
type Escrow interface {
	CreateRace(ctx context.Context, id string, round uint64, duration int64, authority escrow.Pubkey) (*escrow.Race, error)
	BeginCountdown(ctx context.Context, id string, caller escrow.Pubkey) (*escrow.Race, error)
	StartRace(ctx context.Context, id string, caller escrow.Pubkey) (*escrow.Race, error)
	FinishRace(ctx context.Context, id string, winner escrow.OutcomeID, seed uint64, caller escrow.Pubkey) (*escrow.Race, error)
	PlaceBet(ctx context.Context, raceID string, outcome escrow.OutcomeID, amount uint64, bettor escrow.Pubkey) (*escrow.Bet, *escrow.Race, error)
	ClaimWinnings(ctx context.Context, raceID string, bettor escrow.Pubkey) (*escrow.Claim, error)
	ClaimRakeback(ctx context.Context, raceID string, bettor escrow.Pubkey) (*escrow.Claim, error)

	Race(ctx context.Context, id string) (*escrow.Race, error)
	Summary(ctx context.Context, raceID string) (*escrow.Summary, error)
	Bet(ctx context.Context, raceID string, bettor escrow.Pubkey) (*escrow.Bet, error)
	Profile(ctx context.Context, wallet escrow.Pubkey) (*escrow.UserProfile, error)

	RaceAddress(raceID string) (escrow.Address, error)
	BetAddress(raceID string, bettor escrow.Pubkey) (escrow.Address, error)
}

// RaceCache é o cache de leitura de corridas; pode ser nil.
// Get devolve também a geração da corrida; Set com uma geração que já
// avançou é descartado sem erro.
type RaceCache interface {
	GetRace(ctx context.Context, raceID string, dst any) (bool, int64, error)
	SetRace(ctx context.Context, raceID string, gen int64, v any) error
	GetSummary(ctx context.Context, raceID string, dst any) (bool, int64, error)
	SetSummary(ctx context.Context, raceID string, gen int64, v any) error
}

// Server expõe o escrow de corridas via HTTP
type Server struct {
	log     *zap.Logger
	escrow  Escrow
	cache   RaceCache
	metrics *metrics.Metrics
}

func NewServer(log *zap.Logger, e Escrow, c RaceCache, m *metrics.Metrics) *Server {
	return &Server{log: log, escrow: e, cache: c, metrics: m}
}

// Router retorna o roteador HTTP com as rotas do escrow
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/races", s.createRace)
	r.Get("/races/{id}", s.getRace)
	r.Get("/races/{id}/summary", s.getSummary)
	r.Post("/races/{id}/countdown", s.beginCountdown)
	r.Post("/races/{id}/start", s.startRace)
	r.Post("/races/{id}/finish", s.finishRace)
	r.Post("/races/{id}/bets", s.placeBet)
	r.Get("/races/{id}/bets/{user}", s.getBet)
	r.Post("/races/{id}/claim", s.claimWinnings)
	r.Post("/races/{id}/rakeback", s.claimRakeback)
	r.Get("/users/{user}", s.getProfile)
	return r
}

func (s *Server) createRace(w http.ResponseWriter, r *http.Request) {
	caller, ok := httpx.Signer(r)
	if !ok {
		httpx.Unauthenticated(w)
		return
	}
	var req dto.CreateRaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.BadRequest(w, "bad json")
		return
	}

	race, err := s.escrow.CreateRace(r.Context(), req.ID, req.Round, req.Duration, caller)
	s.metrics.Observe("create_race", err)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	s.writeRace(w, http.StatusCreated, race)
}

func (s *Server) beginCountdown(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "begin_countdown", func(ctx context.Context, id string, caller escrow.Pubkey) (*escrow.Race, error) {
		return s.escrow.BeginCountdown(ctx, id, caller)
	})
}

func (s *Server) startRace(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "start_race", s.escrow.StartRace)
}

func (s *Server) finishRace(w http.ResponseWriter, r *http.Request) {
	var req dto.FinishRaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.BadRequest(w, "bad json")
		return
	}
	s.transition(w, r, "finish_race", func(ctx context.Context, id string, caller escrow.Pubkey) (*escrow.Race, error) {
		return s.escrow.FinishRace(ctx, id, escrow.OutcomeID(req.Winner), req.Seed, caller)
	})
}

// transition executa uma mudança de status assinada pela autoridade.
func (s *Server) transition(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, id string, caller escrow.Pubkey) (*escrow.Race, error)) {
	caller, ok := httpx.Signer(r)
	if !ok {
		httpx.Unauthenticated(w)
		return
	}
	race, err := fn(r.Context(), chi.URLParam(r, "id"), caller)
	s.metrics.Observe(op, err)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	s.writeRace(w, http.StatusOK, race)
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	bettor, ok := httpx.Signer(r)
	if !ok {
		httpx.Unauthenticated(w)
		return
	}
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.BadRequest(w, "bad json")
		return
	}

	raceID := chi.URLParam(r, "id")
	bet, race, err := s.escrow.PlaceBet(r.Context(), raceID, escrow.OutcomeID(req.Outcome), req.Amount, bettor)
	s.metrics.Observe("place_bet", err)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	s.metrics.AddVolume("stake", bet.Amount)

	addr, err := s.escrow.BetAddress(raceID, bettor)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, dto.PlaceBetResponse{
		Bet:      dto.FromBet(addr, bet),
		TotalPot: race.TotalPot,
	})
}

func (s *Server) claimWinnings(w http.ResponseWriter, r *http.Request) {
	s.claim(w, r, "claim_winnings", s.escrow.ClaimWinnings)
}

func (s *Server) claimRakeback(w http.ResponseWriter, r *http.Request) {
	s.claim(w, r, "claim_rakeback", s.escrow.ClaimRakeback)
}

func (s *Server) claim(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, raceID string, bettor escrow.Pubkey) (*escrow.Claim, error)) {
	bettor, ok := httpx.Signer(r)
	if !ok {
		httpx.Unauthenticated(w)
		return
	}
	c, err := fn(r.Context(), chi.URLParam(r, "id"), bettor)
	s.metrics.Observe(op, err)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	s.metrics.AddVolume("payout", c.Payout)
	s.metrics.AddVolume("rakeback", c.Rakeback)
	httpx.WriteJSON(w, http.StatusOK, dto.FromClaim(c))
}

// getRace consulta a corrida, preferencialmente do cache
func (s *Server) getRace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var (
		cached dto.RaceResponse
		gen    int64
	)
	if s.cache != nil {
		ok, g, _ := s.cache.GetRace(r.Context(), id, &cached)
		if ok {
			httpx.WriteJSON(w, http.StatusOK, cached)
			return
		}
		gen = g
	}

	race, err := s.escrow.Race(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	addr, err := s.escrow.RaceAddress(id)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	resp := dto.FromRace(addr, race)
	if s.cache != nil {
		if err := s.cache.SetRace(r.Context(), id, gen, resp); err != nil {
			s.log.Warn("race cache set failed", zap.String("race_id", id), zap.Error(err))
		}
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var (
		cached dto.SummaryResponse
		gen    int64
	)
	if s.cache != nil {
		ok, g, _ := s.cache.GetSummary(r.Context(), id, &cached)
		if ok {
			httpx.WriteJSON(w, http.StatusOK, cached)
			return
		}
		gen = g
	}

	sum, err := s.escrow.Summary(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	addr, err := s.escrow.RaceAddress(id)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	resp := dto.FromSummary(addr, sum)
	if s.cache != nil {
		if err := s.cache.SetSummary(r.Context(), id, gen, resp); err != nil {
			s.log.Warn("summary cache set failed", zap.String("race_id", id), zap.Error(err))
		}
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	raceID := chi.URLParam(r, "id")
	user, err := escrow.ParsePubkey(chi.URLParam(r, "user"))
	if err != nil {
		httpx.BadRequest(w, "invalid user key")
		return
	}
	bet, err := s.escrow.Bet(r.Context(), raceID, user)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	addr, err := s.escrow.BetAddress(raceID, user)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.FromBet(addr, bet))
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	user, err := escrow.ParsePubkey(chi.URLParam(r, "user"))
	if err != nil {
		httpx.BadRequest(w, "invalid user key")
		return
	}
	p, err := s.escrow.Profile(r.Context(), user)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.FromProfile(p))
}

func (s *Server) writeRace(w http.ResponseWriter, status int, race *escrow.Race) {
	addr, err := s.escrow.RaceAddress(race.ID)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	httpx.WriteJSON(w, status, dto.FromRace(addr, race))
}
