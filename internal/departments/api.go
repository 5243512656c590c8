package departments

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/roach88/resttest/internal/store"
)

// Handler serves the department API.
type Handler struct {
	deps     *store.Departments
	ids      IDGenerator
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler returns a handler whose queries run on q. A nil ids uses
// UUIDv7Generator; a nil logger discards logs.
func NewHandler(q store.Queryer, ids IDGenerator, logger *slog.Logger) *Handler {
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)

	return &Handler{
		deps:     store.NewDepartments(q),
		ids:      ids,
		validate: v,
		logger:   logger,
	}
}

// Router returns a chi router with request logging, panic recovery and the
// department routes mounted.
func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(h.requestLog)
	h.Routes(r)
	return r
}

// Routes mounts the department routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/departments", func(r chi.Router) {
		r.Get("/", h.handle(h.list))
		r.Post("/", h.handle(h.create))
		r.Get("/{id}", h.handle(h.read))
		r.Put("/{id}", h.handle(h.update))
		r.Delete("/{id}", h.handle(h.delete))
	})
}

// apiFunc is a handler that reports failures by returning them.
type apiFunc func(w http.ResponseWriter, r *http.Request) error

// handle translates errors returned by fn into JSON error responses.
func (h *Handler) handle(fn apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}
		status, detail := errorStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		} else {
			h.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
		}
		writeJSON(w, status, map[string]any{"error": detail})
	}
}

// requestLog logs one line per request.
func (h *Handler) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

// GET /api/departments/
func (h *Handler) list(w http.ResponseWriter, r *http.Request) error {
	orders, err := store.ParseOrder(r.URL.Query()["order_by"])
	if err != nil {
		return err
	}
	deps, err := h.deps.List(r.Context(), orders)
	if err != nil {
		return err
	}

	out := make([]DepartmentOut, len(deps))
	for i, d := range deps {
		out[i] = toOut(d)
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

// POST /api/departments/
func (h *Handler) create(w http.ResponseWriter, r *http.Request) error {
	in, err := h.decodeIn(r)
	if err != nil {
		return err
	}

	dep := store.Department{ID: h.ids.NewID(), Title: in.Title}
	if err := h.deps.Create(r.Context(), dep); err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, toOut(dep))
	return nil
}

// GET /api/departments/{id}
func (h *Handler) read(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	dep, err := h.deps.Get(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toOut(dep))
	return nil
}

// PUT /api/departments/{id}
//
// The department is looked up before the body is read, so an unknown id
// answers 404 whatever the body holds.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	dep, err := h.deps.Get(r.Context(), id)
	if err != nil {
		return err
	}

	in, err := h.decodeIn(r)
	if err != nil {
		return err
	}

	dep.Title = in.Title
	if err := h.deps.Update(r.Context(), dep); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toOut(dep))
	return nil
}

// DELETE /api/departments/{id}
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := h.deps.Delete(r.Context(), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) decodeIn(r *http.Request) (DepartmentIn, error) {
	var in DepartmentIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return DepartmentIn{}, decodeError(err)
	}
	if err := h.validate.Struct(in); err != nil {
		return DepartmentIn{}, structError(err)
	}
	return in, nil
}

// pathID parses the {id} segment. A malformed id matches no department.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, store.ErrNotFound
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}
