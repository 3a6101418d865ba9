package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"kitchen-display/internal/domain"
	"kitchen-display/internal/orderapi/service"
)

type Handler struct {
	svc service.OrderAPIServiceInterface
}

func New(svc service.OrderAPIServiceInterface) *Handler {
	return &Handler{svc: svc}
}

func Router(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders/active", h.ListActive)
	mux.HandleFunc("PUT /orders/{order_id}/status", h.PutOrderStatus)
	mux.HandleFunc("PUT /items/{item_id}/status", h.PutItemStatus)
	mux.HandleFunc("GET /stats", h.Stats)
	return mux
}

type statusBody struct {
	Status string `json:"status"`
}

func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListActive(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) PutOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	o, err := h.svc.SetOrderStatus(r.Context(), r.PathValue("order_id"), domain.OrderStatus(body.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) PutItemStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	o, err := h.svc.SetItemStatus(r.Context(), r.PathValue("item_id"), domain.ItemStatus(body.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.StatsToday(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrPrecondition):
		writeProblem(w, http.StatusConflict, "precondition_failed", err.Error())
	default:
		writeProblem(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeProblem — единый формат ошибок (упрощённый Problem+JSON)
func writeProblem(w http.ResponseWriter, code int, typ, detail string) {
	writeJSON(w, code, map[string]any{
		"type":   typ,
		"title":  http.StatusText(code),
		"status": code,
		"detail": detail,
	})
}
