package decision

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	svcErr "github.com/emberly-app/emberly/internal/errors"
	"github.com/emberly-app/emberly/internal/httpx"
)

const defaultPageSize = 20

// Registrar mounts the decision endpoints on the shared router.
type Registrar struct {
	svc *Service
}

// NewRegistrar creates a Registrar for the decision service.
func NewRegistrar(svc *Service) *Registrar {
	return &Registrar{svc: svc}
}

// Register attaches the decision routes.
func (reg *Registrar) Register(r chi.Router) {
	r.Post("/users/{userID}/likes", reg.putLike)
	r.Delete("/users/{userID}/likes/{receiverID}", reg.unlike)
	r.Post("/users/{userID}/passes", reg.putPass)
	r.Get("/users/{userID}/likes", reg.listLikedYou)
	r.Get("/users/{userID}/likes/count", reg.countLikedYou)
	r.Get("/users/{userID}/matches", reg.listMatches)
	r.Get("/users/{userID}/matches/events", reg.streamMatchEvents)
}

type decisionRequest struct {
	ReceiverID uint64 `json:"receiver_id"`
}

func (reg *Registrar) putLike(w http.ResponseWriter, r *http.Request) {
	senderID, req, err := parseDecision(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	result, err := reg.svc.PutLike(r.Context(), senderID, req.ReceiverID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, result)
}

func (reg *Registrar) putPass(w http.ResponseWriter, r *http.Request) {
	senderID, req, err := parseDecision(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}

	if err := reg.svc.PutPass(r.Context(), senderID, req.ReceiverID); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, nil)
}

func (reg *Registrar) unlike(w http.ResponseWriter, r *http.Request) {
	senderID, err := parsePathID(r, "userID")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	receiverID, err := parsePathID(r, "receiverID")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	if err := reg.svc.Unlike(r.Context(), senderID, receiverID); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, nil)
}

func (reg *Registrar) listLikedYou(w http.ResponseWriter, r *http.Request) {
	userID, err := parsePathID(r, "userID")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	var token *string
	if t := r.URL.Query().Get("pagination_token"); t != "" {
		token = &t
	}
	limit := defaultPageSize
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			httpx.Error(w, svcErr.InvalidArgumentf("limit must be a positive integer"))
			return
		}
		limit = n
	}

	likers, next, err := reg.svc.ListLikedYou(r.Context(), userID, token, limit)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, struct {
		Likers          []Liker `json:"likers"`
		PaginationToken *string `json:"next_pagination_token,omitempty"`
	}{Likers: likers, PaginationToken: next})
}

func (reg *Registrar) countLikedYou(w http.ResponseWriter, r *http.Request) {
	userID, err := parsePathID(r, "userID")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	count, err := reg.svc.CountLikedYou(r.Context(), userID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, struct {
		Count int64 `json:"count"`
	}{Count: count})
}

func (reg *Registrar) listMatches(w http.ResponseWriter, r *http.Request) {
	userID, err := parsePathID(r, "userID")
	if err != nil {
		httpx.Error(w, err)
		return
	}

	matches, err := reg.svc.ListMatches(r.Context(), userID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OKList(w, http.StatusOK, matches, len(matches))
}

// streamMatchEvents pushes match-created events for the user as
// server-sent events until the client disconnects.
func (reg *Registrar) streamMatchEvents(w http.ResponseWriter, r *http.Request) {
	userID, err := parsePathID(r, "userID")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.Error(w, svcErr.InvalidArgumentf("streaming unsupported"))
		return
	}

	events, cancel := reg.svc.appCtx.Bus.Subscribe(userID, 8)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte("event: match\ndata: " + string(payload) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func parseDecision(r *http.Request) (uint64, *decisionRequest, error) {
	senderID, err := parsePathID(r, "userID")
	if err != nil {
		return 0, nil, err
	}
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return 0, nil, svcErr.InvalidArgumentf("invalid request body")
	}
	if req.ReceiverID == 0 {
		return 0, nil, svcErr.InvalidArgumentf("receiver_id is required")
	}
	return senderID, &req, nil
}

func parsePathID(r *http.Request, name string) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, svcErr.InvalidArgumentf("%s must be a valid uint64", name)
	}
	return id, nil
}
