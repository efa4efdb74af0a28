package profile

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	svcErr "github.com/emberly-app/emberly/internal/errors"
	"github.com/emberly-app/emberly/internal/httpx"
)

// Registrar mounts the profile endpoints on the shared router.
type Registrar struct {
	svc *Service
}

// NewRegistrar creates a Registrar for the profile service.
func NewRegistrar(svc *Service) *Registrar {
	return &Registrar{svc: svc}
}

// Register attaches the profile routes.
func (reg *Registrar) Register(r chi.Router) {
	r.Get("/users/{userID}/profile", reg.getProfile)
	r.Patch("/users/{userID}/profile", reg.updateProfile)
}

func (reg *Registrar) getProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	view, err := reg.svc.Get(r.Context(), userID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, view)
}

func (reg *Registrar) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	var in UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.Error(w, svcErr.InvalidArgumentf("invalid request body"))
		return
	}

	view, err := reg.svc.Update(r.Context(), userID, &in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, view)
}

func parseUserID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		return 0, svcErr.InvalidArgumentf("userID must be a valid uint64")
	}
	return id, nil
}
