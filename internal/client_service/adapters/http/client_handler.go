package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aradsms/client_directory/internal/client_service/domain"
)

const MaxRequestBodySize = 1 << 20 // 1 MB

// ClientService is the part of app.Application the handler needs.
type ClientService interface {
	AddClient(ctx context.Context, fields domain.ContactFields) (*domain.Client, error)
	GetClient(ctx context.Context, id int64) (*domain.Client, bool, error)
	GetClients(ctx context.Context, ids []int64) (map[int64]*domain.Client, error)
	UpdateClient(ctx context.Context, client *domain.Client) (*domain.Client, error)
	DeleteClient(ctx context.Context, id int64) error
	AddPhoneNumber(ctx context.Context, id int64, number string) (*domain.Client, bool, error)
	DeletePhoneNumber(ctx context.Context, id int64, number string) (*domain.Client, bool, error)
	SearchClients(ctx context.Context, filter domain.SearchFilter) (map[int64]*domain.Client, bool, error)
}

type ClientHandler struct {
	service  ClientService
	logger   *slog.Logger
	validate *validator.Validate
}

func NewClientHandler(service ClientService, logger *slog.Logger, validate *validator.Validate) *ClientHandler {
	return &ClientHandler{
		service:  service,
		logger:   logger.With("component", "client_handler"),
		validate: validate,
	}
}

// NewRouter mounts the client routes and /metrics behind the standard middleware stack.
func NewRouter(h *ClientHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(chi_middleware.RequestID)
	r.Use(chi_middleware.RealIP)
	r.Use(chi_middleware.Recoverer)
	r.Use(PrometheusMetricsMiddleware)

	r.Handle("/metrics", promhttp.Handler())
	h.RegisterRoutes(r)
	return r
}

func (h *ClientHandler) RegisterRoutes(r chi.Router) {
	r.Route("/clients", func(r chi.Router) {
		r.Post("/", h.CreateClient)
		r.Get("/", h.GetClients)
		r.Get("/search", h.SearchClients)
		r.Route("/{clientID}", func(r chi.Router) {
			r.Get("/", h.GetClient)
			r.Put("/", h.UpdateClient)
			r.Delete("/", h.DeleteClient)
			r.Post("/phone-numbers", h.AddPhoneNumber)
			r.Delete("/phone-numbers/{number}", h.DeletePhoneNumber)
		})
	})
}

func (h *ClientHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var reqDTO ClientRequestDTO
	if !h.decodeAndValidate(w, r, &reqDTO, "CreateClient") {
		return
	}

	client, err := h.service.AddClient(ctx, reqDTO.toFields())
	if err != nil {
		h.writeError(w, r, err, "CreateClient")
		return
	}
	h.writeJSON(w, r, http.StatusCreated, toClientDTO(client))
}

func (h *ClientHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.clientID(w, r)
	if !ok {
		return
	}

	client, found, err := h.service.GetClient(ctx, id)
	if err != nil {
		h.writeError(w, r, err, "GetClient")
		return
	}
	if !found {
		h.writeMessage(w, http.StatusNotFound, fmt.Sprintf("client with ID=%d not found", id))
		return
	}
	h.writeJSON(w, r, http.StatusOK, toClientDTO(client))
}

// GetClients serves GET /clients?id=1&id=2. IDs that do not exist are left out.
func (h *ClientHandler) GetClients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rawIDs := r.URL.Query()["id"]
	ids := make([]int64, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.logger.WarnContext(ctx, "Invalid client ID in query", "id", raw)
			h.writeMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid client ID %q", raw))
			return
		}
		ids = append(ids, id)
	}

	clients, err := h.service.GetClients(ctx, ids)
	if err != nil {
		h.writeError(w, r, err, "GetClients")
		return
	}
	h.writeJSON(w, r, http.StatusOK, ClientsResponseDTO{Clients: toClientDTOs(clients)})
}

// SearchClients builds the filter from the known field query parameters.
// Other parameters are ignored; with none set no search is performed.
func (h *ClientHandler) SearchClients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	filter := domain.SearchFilter{}
	for _, field := range domain.SearchFields {
		if v := query.Get(string(field)); v != "" {
			filter[field] = v
		}
	}

	clients, performed, err := h.service.SearchClients(ctx, filter)
	if err != nil {
		h.writeError(w, r, err, "SearchClients")
		return
	}
	resp := SearchResponseDTO{Performed: performed, Clients: map[int64]ClientDTO{}}
	if performed {
		resp.Clients = toClientDTOs(clients)
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

func (h *ClientHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.clientID(w, r)
	if !ok {
		return
	}
	var reqDTO ClientRequestDTO
	if !h.decodeAndValidate(w, r, &reqDTO, "UpdateClient") {
		return
	}

	client, err := h.service.UpdateClient(ctx, domain.NewClient(id, reqDTO.toFields()))
	if err != nil {
		h.writeError(w, r, err, "UpdateClient")
		return
	}
	h.writeJSON(w, r, http.StatusOK, toClientDTO(client))
}

func (h *ClientHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.clientID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteClient(ctx, id); err != nil {
		h.writeError(w, r, err, "DeleteClient")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ClientHandler) AddPhoneNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.clientID(w, r)
	if !ok {
		return
	}
	var reqDTO PhoneNumberRequestDTO
	if !h.decodeAndValidate(w, r, &reqDTO, "AddPhoneNumber") {
		return
	}

	client, found, err := h.service.AddPhoneNumber(ctx, id, reqDTO.PhoneNumber)
	h.writePhoneNumberResult(w, r, id, client, found, err, "AddPhoneNumber")
}

func (h *ClientHandler) DeletePhoneNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.clientID(w, r)
	if !ok {
		return
	}
	number, err := pathParam(r, "number")
	if err != nil || number == "" {
		h.writeMessage(w, http.StatusBadRequest, "invalid phone number")
		return
	}

	client, found, err := h.service.DeletePhoneNumber(ctx, id, number)
	h.writePhoneNumberResult(w, r, id, client, found, err, "DeletePhoneNumber")
}

func (h *ClientHandler) writePhoneNumberResult(w http.ResponseWriter, r *http.Request, id int64, client *domain.Client, found bool, err error, operation string) {
	if err != nil {
		h.writeError(w, r, err, operation)
		return
	}
	if !found {
		h.writeMessage(w, http.StatusNotFound, fmt.Sprintf("client with ID=%d not found", id))
		return
	}
	h.writeJSON(w, r, http.StatusOK, toClientDTO(client))
}

// pathParam returns the decoded value of a route parameter. chi matches
// against r.URL.RawPath when it is set, so only then is the value still escaped.
func pathParam(r *http.Request, key string) (string, error) {
	value := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return value, nil
	}
	return url.PathUnescape(value)
}

func (h *ClientHandler) clientID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "clientID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Invalid client ID in path", "client_id", raw)
		h.writeMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid client ID %q", raw))
		return 0, false
	}
	return id, true
}

func (h *ClientHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any, operation string) bool {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(ctx, "Failed to decode request body", "operation", operation, "error", err)
		h.writeMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.StructCtx(ctx, dst); err != nil {
		h.logger.WarnContext(ctx, "Validation failed", "operation", operation, "error", err)
		h.writeMessage(w, http.StatusBadRequest, fmt.Sprintf("validation error: %s", err.Error()))
		return false
	}
	return true
}

// writeError maps application errors to HTTP status codes.
func (h *ClientHandler) writeError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	ctx := r.Context()
	logger := h.logger.With("operation", operation, "request_id", chi_middleware.GetReqID(ctx))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		logger.WarnContext(ctx, "Client not found", "error", err)
		h.writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConstraintViolation):
		logger.WarnContext(ctx, "Store rejected client data", "error", err)
		h.writeMessage(w, http.StatusUnprocessableEntity, "client data violates a store constraint")
	case errors.Is(err, domain.ErrUnknownSearchField):
		logger.WarnContext(ctx, "Unknown search field", "error", err)
		h.writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		logger.ErrorContext(ctx, "Unhandled error", "error", err)
		h.writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *ClientHandler) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to encode response", "error", err)
	}
}

func (h *ClientHandler) writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponseDTO{Error: message})
}
