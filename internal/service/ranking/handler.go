package ranking

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	svcErr "github.com/emberly-app/emberly/internal/errors"
	"github.com/emberly-app/emberly/internal/httpx"
)

// Registrar mounts the ranking endpoints on the shared router.
type Registrar struct {
	svc *Service
}

// NewRegistrar creates a Registrar for the ranking service.
func NewRegistrar(svc *Service) *Registrar {
	return &Registrar{svc: svc}
}

// Register attaches the ranking routes.
func (reg *Registrar) Register(r chi.Router) {
	r.Get("/users/{userID}/recommendations", reg.getRecommendations)
	r.Post("/users/{userID}/recommendations/refresh", reg.refreshRecommendations)
}

// getRecommendations serves the cached-or-fresh ranked list. An empty
// list is a success ("no more candidates"), distinct from error.
func (reg *Registrar) getRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	ranked, err := reg.svc.GetRankedUsers(r.Context(), userID)
	if err != nil {
		reg.svc.appCtx.Logger.Error("GetRankedUsers failed", "user_id", userID, "err", err)
		httpx.Error(w, err)
		return
	}
	httpx.OKList(w, http.StatusOK, ranked, len(ranked))
}

// refreshRecommendations drops the snapshot and recomputes immediately.
func (reg *Registrar) refreshRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	if err := reg.svc.Invalidate(r.Context(), userID); err != nil {
		httpx.Error(w, err)
		return
	}
	ranked, err := reg.svc.GetRankedUsers(r.Context(), userID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OKList(w, http.StatusOK, ranked, len(ranked))
}

func parseUserID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		return 0, svcErr.InvalidArgumentf("userID must be a valid uint64")
	}
	return id, nil
}
