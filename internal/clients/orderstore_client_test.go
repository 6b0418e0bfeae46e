package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ocakbasi/order-sync/internal/models"
	"github.com/ocakbasi/order-sync/internal/repository"
	apperrors "github.com/ocakbasi/order-sync/pkg/errors"
	"github.com/ocakbasi/order-sync/pkg/logger"
)

func envelope(data interface{}) []byte {
	raw, _ := json.Marshal(data)
	out, _ := json.Marshal(map[string]interface{}{
		"success": true,
		"data":    json.RawMessage(raw),
	})
	return out
}

func errorEnvelope(message string) []byte {
	out, _ := json.Marshal(map[string]interface{}{
		"success": false,
		"error":   message,
	})
	return out
}

func TestListOrdersParsesEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/orders" {
			t.Errorf("path = %s", r.URL.Path)
		}

		if got := r.URL.Query().Get("status"); got != "pending,preparing" {
			t.Errorf("status query = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(envelope([]*models.Order{
			{ID: "ord-1", Source: models.SourceTable, Status: models.StatusPending, Seq: 1},
			{ID: "ord-2", Source: models.SourceOnline, Status: models.StatusPreparing, Seq: 2},
		}))
	}))
	defer server.Close()

	client := NewStoreClient(server.URL, logger.NewNop())

	orders, err := client.ListOrders(context.Background(), repository.OrderFilter{
		StatusIn: []models.Status{models.StatusPending, models.StatusPreparing},
	})

	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}

	if len(orders) != 2 || orders[0].ID != "ord-1" || orders[1].Status != models.StatusPreparing {
		t.Errorf("orders = %+v", orders)
	}
}

func TestApplyTransitionConflictIsNotRetried(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write(errorEnvelope("transition ready -> cancelled is not allowed"))
	}))
	defer server.Close()

	client := NewStoreClient(server.URL, logger.NewNop())

	_, err := client.ApplyTransition(context.Background(), "ord-1", models.StatusCancelled, "runner")

	if err == nil {
		t.Fatal("conflict response did not error")
	}

	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Errorf("error = %v, want ErrInvalidTransition", err)
	}

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("conflict was retried: %d calls", n)
	}
}

func TestServerErrorsAreRetriedThenSurfaceAsTransient(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewStoreClient(server.URL, logger.NewNop())

	_, err := client.ListOrders(context.Background(), repository.OrderFilter{})

	if err == nil {
		t.Fatal("persistent 500 did not error")
	}

	if !errors.Is(err, apperrors.ErrTransientFetch) {
		t.Errorf("error = %v, want ErrTransientFetch", err)
	}

	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("made %d calls, want 3 attempts", n)
	}
}

func TestTransientFailureRecoversWithinOneCall(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(envelope([]*models.Order{}))
	}))
	defer server.Close()

	client := NewStoreClient(server.URL, logger.NewNop())

	orders, err := client.ListOrders(context.Background(), repository.OrderFilter{})

	if err != nil {
		t.Fatalf("ListOrders failed after recovery: %v", err)
	}

	if len(orders) != 0 {
		t.Errorf("orders = %+v, want empty", orders)
	}

	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("made %d calls, want 2", n)
	}
}

func TestNotFoundSurfacesDirectly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write(errorEnvelope("Order not found"))
	}))
	defer server.Close()

	client := NewStoreClient(server.URL, logger.NewNop())

	_, err := client.ApplyTransition(context.Background(), "ord-missing", models.StatusReady, "cook")

	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestPrintFailureSurfacesAsPrintError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write(errorEnvelope("printer offline"))
	}))
	defer server.Close()

	client := NewStoreClient(server.URL, logger.NewNop())

	err := client.PrintTicket(context.Background(), "ord-1")

	if !errors.Is(err, apperrors.ErrPrintFailed) {
		t.Errorf("error = %v, want ErrPrintFailed", err)
	}
}
