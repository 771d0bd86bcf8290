package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/racers-escrow/internal/escrow"
	"github.com/radieske/racers-escrow/internal/race-feed/dto"
	"github.com/radieske/racers-escrow/internal/shared/httpx"
)

type Snapshots interface {
	Get(ctx context.Context, raceID string) (*dto.RaceSnapshot, bool, error)
	Recent(ctx context.Context, limit int64) ([]dto.RaceSnapshot, error)
}

// API expõe os snapshots ao vivo das corridas e o websocket do feed
type API struct {
	Log   *zap.Logger
	Cache Snapshots
	WS    http.HandlerFunc
}

const defaultLimit = 20

// Router retorna o roteador HTTP com os endpoints do feed
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/races", a.listRaces)    // corridas mais recentes
	r.Get("/races/{id}", a.getRace) // snapshot de uma corrida
	if a.WS != nil {
		r.Get("/ws", a.WS)
	}
	return r
}

func (a *API) listRaces(w http.ResponseWriter, r *http.Request) {
	limit := int64(defaultLimit)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 || n > 100 {
			httpx.BadRequest(w, "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	list, err := a.Cache.Recent(r.Context(), limit)
	if err != nil {
		httpx.WriteError(w, a.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (a *API) getRace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, ok, err := a.Cache.Get(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, a.Log, err)
		return
	}
	if !ok {
		httpx.WriteError(w, a.Log, escrow.WithMetadata(escrow.CodeRaceNotFound, "race not in live feed", map[string]string{"race_id": id}))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s)
}
