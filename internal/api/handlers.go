package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/ocakbasi/order-sync/internal/models"
	"github.com/ocakbasi/order-sync/internal/repository"
	apperrors "github.com/ocakbasi/order-sync/pkg/errors"
)

type ApiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Health represents the health check response
type Health struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// createOrderRequest is the payload for creating an order
type createOrderRequest struct {
	Source    string             `json:"source"`
	TableName *string            `json:"table_name,omitempty"`
	Items     []models.OrderItem `json:"items"`
}

// transitionRequest is the payload for a status transition. The status
// field accepts any known label, canonical or display, and is normalized
// before the state machine sees it.
type transitionRequest struct {
	Status    string `json:"status"`
	ChangedBy string `json:"changed_by"`
}

// healthCheckHandler handles the health check endpoint
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	health := Health{
		Status:    "ok",
		Version:   "0.1.0",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    health,
	})
}

// listOrdersHandler returns orders matching the query filters. Displays
// poll this endpoint with a status filter for their slice of the board.
func (s *Server) listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := repository.OrderFilter{
		IDEquals: r.URL.Query().Get("id"),
	}

	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, label := range strings.Split(raw, ",") {
			status, err := models.NormalizeStatus(label)

			if err != nil {
				s.respondWithError(w, http.StatusBadRequest, "Unknown status: "+label)
				return
			}

			filter.StatusIn = append(filter.StatusIn, status)
		}
	}

	if raw := r.URL.Query().Get("source"); raw != "" {
		for _, src := range strings.Split(raw, ",") {
			source := models.Source(strings.TrimSpace(src))

			if !models.ValidSource(source) {
				s.respondWithError(w, http.StatusBadRequest, "Unknown source: "+src)
				return
			}

			filter.SourceIn = append(filter.SourceIn, source)
		}
	}

	orders, err := s.orderService.ListOrders(ctx, filter)

	if err != nil {
		s.logger.Error("Failed to list orders", "error", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to list orders")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: orders})
}

// createOrderHandler creates a new order
func (s *Server) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createOrderRequest
	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	order, err := s.orderService.CreateOrder(ctx, models.Source(req.Source), req.TableName, req.Items)

	if err != nil {
		s.respondWithServiceError(w, err, "Failed to create order")
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: order})
}

// getOrderByIDHandler returns an order by ID
func (s *Server) getOrderByIDHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	order, err := s.orderService.GetOrder(ctx, id)

	if err != nil {
		s.respondWithServiceError(w, err, "Failed to get order")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: order})
}

// transitionOrderHandler applies a lifecycle transition to an order.
// Re-requesting the current status responds 200 with the unchanged order;
// a disallowed edge responds 409.
func (s *Server) transitionOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	var req transitionRequest
	decoder := json.NewDecoder(r.Body)

	if err := decoder.Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	status, err := models.NormalizeStatus(req.Status)

	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Unknown status: "+req.Status)
		return
	}

	order, err := s.orderService.ApplyTransition(ctx, id, status, req.ChangedBy)

	if err != nil {
		s.respondWithServiceError(w, err, "Failed to apply transition")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: order})
}

// printTicketHandler prints a ticket for an order. Print failures respond
// 502 and never touch the order's status.
func (s *Server) printTicketHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	if err := s.orderService.PrintTicket(ctx, id); err != nil {
		s.respondWithServiceError(w, err, "Failed to print ticket")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true})
}

// getStatusHistoryHandler returns the status log for an order
func (s *Server) getStatusHistoryHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	history, err := s.orderService.GetStatusHistory(ctx, id)

	if err != nil {
		s.respondWithServiceError(w, err, "Failed to get status history")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: history})
}

// respondWithServiceError maps a service error to an HTTP response,
// honoring the status code carried by AppError
func (s *Server) respondWithServiceError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, repository.ErrNotFound) {
		s.respondWithError(w, http.StatusNotFound, "Order not found")
		return
	}

	var appErr *apperrors.AppError

	if errors.As(err, &appErr) {
		s.respondWithError(w, appErr.StatusCode, appErr.Error())
		return
	}

	s.logger.Error(fallback, "error", err)
	s.respondWithError(w, http.StatusInternalServerError, fallback)
}

// respondWithError sends a JSON response with an error message
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, ApiResponse{
		Success: false,
		Error:   message,
	})
}

// respondWithJSON sends a JSON response
func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)

	if err != nil {
		s.logger.Error("Failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
