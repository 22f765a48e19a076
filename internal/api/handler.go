// Package api serves the inventory and the reservation ledger over HTTP.
//
// Endpoints:
//
//	POST /reserve          {"port":9090,"service":"api"} or [9090,"api"]
//	POST /release          {"port":9090} or 9090
//	GET  /status/{port}
//	GET  /reservations
//	GET  /ports            ?query=&protocol=&state=&port_start=&port_end=&tags=&user=
//	GET  /health
//
// Ledger refusals answer 400 with a machine-readable code. A reservation that
// was applied but could not be saved still answers 200, with a warning.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/pranshuparmar/portman/internal/ledger"
	"github.com/pranshuparmar/portman/internal/proc"
	"github.com/pranshuparmar/portman/internal/query"
	"github.com/pranshuparmar/portman/pkg/model"
)

// Inventory is the read side the API needs.
type Inventory interface {
	Snapshot() (model.Snapshot, error)
	Filter(model.Snapshot, query.Predicate) []model.PortRecord
}

// Ledger is the reservation side the API needs.
type Ledger interface {
	Reserve(port uint16, service string) error
	Release(port uint16) error
	Service(port uint16) (string, bool)
	All() map[uint16]string
}

const maxBodyBytes = 64 << 10

// Error codes returned in the "error" field.
const (
	CodeAlreadyReserved     = "already_reserved"
	CodeNotReserved         = "not_reserved"
	CodePortInUse           = "port_in_use"
	CodeInvalid             = "invalid"
	CodePlatformUnavailable = "platform_unavailable"
	CodeInternal            = "internal"
)

type Handler struct {
	inventory Inventory
	ledger    Ledger
	logger    *slog.Logger
}

func NewHandler(inv Inventory, l Ledger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inventory: inv, ledger: l, logger: logger}
}

// Routes returns the API mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /reserve", h.HandleReserve)
	mux.HandleFunc("POST /release", h.HandleRelease)
	mux.HandleFunc("GET /status/{port}", h.HandleStatus)
	mux.HandleFunc("GET /reservations", h.HandleReservations)
	mux.HandleFunc("GET /ports", h.HandlePorts)
	mux.HandleFunc("GET /health", h.HandleHealth)
	return mux
}

type ReserveRequest struct {
	Port    uint16 `json:"port"`
	Service string `json:"service"`
}

// UnmarshalJSON accepts both {"port":..,"service":..} and [port, service].
func (r *ReserveRequest) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var tuple []json.RawMessage
		if err := json.Unmarshal(data, &tuple); err != nil {
			return err
		}
		if len(tuple) != 2 {
			return fmt.Errorf("expected [port, service], got %d elements", len(tuple))
		}
		if err := json.Unmarshal(tuple[0], &r.Port); err != nil {
			return fmt.Errorf("port: %w", err)
		}
		if err := json.Unmarshal(tuple[1], &r.Service); err != nil {
			return fmt.Errorf("service: %w", err)
		}
		return nil
	}

	type plain ReserveRequest
	return json.Unmarshal(data, (*plain)(r))
}

type ReleaseRequest struct {
	Port uint16 `json:"port"`
}

// UnmarshalJSON accepts both {"port":..} and a bare port number.
func (r *ReleaseRequest) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		return json.Unmarshal(data, &r.Port)
	}
	type plain ReleaseRequest
	return json.Unmarshal(data, (*plain)(r))
}

// Response is the body of every mutation and error reply.
type Response struct {
	Status  string `json:"status,omitempty"`
	Port    uint16 `json:"port,omitempty"`
	Service string `json:"service,omitempty"`
	Warning string `json:"warning,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type StatusResponse struct {
	Port     uint16 `json:"port"`
	Reserved bool   `json:"reserved"`
	Service  string `json:"service,omitempty"`
	Status   string `json:"status"`
}

func (h *Handler) HandleReserve(w http.ResponseWriter, r *http.Request) {
	var req ReserveRequest
	if err := decodeBody(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, CodeInvalid, "invalid request body: %v", err)
		return
	}

	err := h.ledger.Reserve(req.Port, req.Service)
	resp := Response{Status: "reserved", Port: req.Port, Service: req.Service}
	if !h.applyLedgerResult(w, err, &resp) {
		return
	}
	h.writeJSON(w, resp)
}

func (h *Handler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	var req ReleaseRequest
	if err := decodeBody(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, CodeInvalid, "invalid request body: %v", err)
		return
	}

	err := h.ledger.Release(req.Port)
	resp := Response{Status: "released", Port: req.Port}
	if !h.applyLedgerResult(w, err, &resp) {
		return
	}
	h.writeJSON(w, resp)
}

// applyLedgerResult reports whether the mutation took effect. Refusals are
// answered here; a persistence failure becomes a warning on resp.
func (h *Handler) applyLedgerResult(w http.ResponseWriter, err error, resp *Response) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, ledger.ErrPersistence) {
		resp.Warning = err.Error()
		return true
	}

	status, code := classify(err)
	h.sendError(w, status, code, "%v", err)
	return false
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrAlreadyReserved):
		return http.StatusBadRequest, CodeAlreadyReserved
	case errors.Is(err, ledger.ErrNotReserved):
		return http.StatusBadRequest, CodeNotReserved
	case errors.Is(err, ledger.ErrPortInUse):
		return http.StatusBadRequest, CodePortInUse
	case errors.Is(err, ledger.ErrInvalidPort), errors.Is(err, ledger.ErrInvalidService):
		return http.StatusBadRequest, CodeInvalid
	case errors.Is(err, proc.ErrPlatformUnavailable):
		return http.StatusServiceUnavailable, CodePlatformUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	port, err := query.ParsePort(r.PathValue("port"))
	if err != nil {
		h.sendError(w, http.StatusBadRequest, CodeInvalid, "%v", err)
		return
	}

	service, ok := h.ledger.Service(port)
	resp := StatusResponse{Port: port, Reserved: ok, Service: service, Status: "available"}
	if ok {
		resp.Status = "reserved"
	}
	h.writeJSON(w, resp)
}

func (h *Handler) HandleReservations(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.ledger.All())
}

func (h *Handler) HandlePorts(w http.ResponseWriter, r *http.Request) {
	p, err := query.ParsePredicate(r.URL.Query())
	if err != nil {
		h.sendError(w, http.StatusBadRequest, CodeInvalid, "%v", err)
		return
	}

	snap, err := h.inventory.Snapshot()
	if err != nil {
		// The snapshot holds whatever could be read.
		h.logger.Warn("partial socket snapshot", "error", err)
	}
	h.writeJSON(w, h.inventory.Filter(snap, p))
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, Response{Status: "ok"})
}

func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return errors.New("empty body")
	}
	return json.Unmarshal(data, v)
}

func (h *Handler) sendError(w http.ResponseWriter, status int, code, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Response{
		Error:   code,
		Message: fmt.Sprintf(format, args...),
	}); err != nil {
		h.logger.Warn("writing JSON error response", "error", err, "status", status)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(value); err != nil {
		h.logger.Warn("writing JSON response", "error", err)
	}
}
