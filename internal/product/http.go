package product

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"ProductsAPI/pkg/kit"
)

const maxBodyBytes = 1 << 20

const (
	msgNotFound     = "Product not found"
	msgRequired     = "Name and price are required"
	msgRouteMissing = "Route not found"
	msgInvalidJSON  = "Invalid JSON body"
)

type Server struct {
	Store Store
	Log   *zap.Logger
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.list)
	r.Head("/", s.list)
	r.Post("/", s.create)
	r.Get("/{id}", s.get)
	r.Head("/{id}", s.get)
	r.Put("/{id}", s.update)
	r.Delete("/{id}", s.delete)

	return r
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	q := ListQuery{Search: r.URL.Query().Get("search")}

	var ok bool
	if q.Page, ok = positiveParam(w, r, "page", DefaultPage); !ok {
		return
	}
	if q.Limit, ok = positiveParam(w, r, "limit", DefaultLimit); !ok {
		return
	}

	page, err := s.Store.List(r.Context(), q)
	if err != nil {
		s.internalError(w, r, "list products failed", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, page)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := s.Store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		kit.WriteError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		s.internalError(w, r, "get product failed", err, zap.String("id", id))
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var d Draft
	if !s.decodeBody(w, r, &d) {
		return
	}

	p, err := s.Store.Create(r.Context(), d)
	if errors.Is(err, ErrValidation) {
		kit.WriteError(w, http.StatusBadRequest, msgRequired)
		return
	}
	if err != nil {
		s.internalError(w, r, "create product failed", err)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch Patch
	if !s.decodeBody(w, r, &patch) {
		return
	}

	p, err := s.Store.Update(r.Context(), id, patch)
	if errors.Is(err, ErrNotFound) {
		kit.WriteError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		s.internalError(w, r, "update product failed", err, zap.String("id", id))
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.Store.Delete(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		kit.WriteError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		s.internalError(w, r, "delete product failed", err, zap.String("id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error, fields ...zap.Field) {
	if s.Log != nil {
		s.Log.Error(msg, append(fields, zap.Error(err))...)
	}
	kit.WriteFault(w, http.StatusInternalServerError, "")
}

// decodeBody accepts an empty body as an empty object. Unknown fields are
// ignored.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		kit.WriteFault(w, http.StatusRequestEntityTooLarge, "request entity too large")
		return false
	}
	if s.Log != nil {
		s.Log.Info("invalid request body",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	kit.WriteFault(w, http.StatusBadRequest, msgInvalidJSON)
	return false
}

func positiveParam(w http.ResponseWriter, r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		kit.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s number: %s", key, raw))
		return 0, false
	}
	return n, true
}
