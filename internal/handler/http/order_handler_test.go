package http_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handler "github.com/vasiliy-maslov/garment-costing/internal/handler/http"
	"github.com/vasiliy-maslov/garment-costing/internal/db"
	"github.com/vasiliy-maslov/garment-costing/internal/order"
)

type mockOrderService struct {
	CreateOrderFunc       func(ctx context.Context, in order.CreateInput) (*order.Order, error)
	GetOrderByIDFunc      func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	ListUserOrdersFunc    func(ctx context.Context, userID uuid.UUID) ([]order.Order, error)
	UpdateOrderStatusFunc func(ctx context.Context, id uuid.UUID, status order.Status) (*order.Order, error)
	DeleteOrderFunc       func(ctx context.Context, id uuid.UUID) error
}

func (m *mockOrderService) CreateOrder(ctx context.Context, in order.CreateInput) (*order.Order, error) {
	return m.CreateOrderFunc(ctx, in)
}

func (m *mockOrderService) CreateOrderTx(ctx context.Context, _ db.Querier, in order.CreateInput) (*order.Order, error) {
	return m.CreateOrderFunc(ctx, in)
}

func (m *mockOrderService) GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return m.GetOrderByIDFunc(ctx, id)
}

func (m *mockOrderService) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]order.Order, error) {
	return m.ListUserOrdersFunc(ctx, userID)
}

func (m *mockOrderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status order.Status) (*order.Order, error) {
	return m.UpdateOrderStatusFunc(ctx, id, status)
}

func (m *mockOrderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return m.DeleteOrderFunc(ctx, id)
}

func newOrderRouter(svc *mockOrderService) chi.Router {
	router := chi.NewRouter()
	handler.NewOrderHandler(svc).RegisterRoutes(router)
	return router
}

func TestOrderHandler_CreateOrder(t *testing.T) {
	bidID := uuid.FromStringOrNil("550e8400-e29b-41d4-a716-446655440000")
	body := `{
		"bidId": "550e8400-e29b-41d4-a716-446655440000",
		"exporterId": "123e4567-e89b-12d3-a456-426614174000",
		"manufacturerId": "123e4567-e89b-12d3-a456-426614174001",
		"machineId": "123e4567-e89b-12d3-a456-426614174002",
		"deadline": "2024-05-01T00:00:00Z"
	}`

	tests := []struct {
		name           string
		body           string
		createOrder    func(ctx context.Context, in order.CreateInput) (*order.Order, error)
		expectedStatus int
		expectedError  string
	}{
		{
			name: "success",
			body: body,
			createOrder: func(ctx context.Context, in order.CreateInput) (*order.Order, error) {
				return &order.Order{ID: uuid.Must(uuid.NewV4()), BidID: in.BidID, Status: order.StatusPending, Deadline: in.Deadline}, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "order exists",
			body: body,
			createOrder: func(ctx context.Context, in order.CreateInput) (*order.Order, error) {
				return nil, order.ErrOrderExists
			},
			expectedStatus: http.StatusConflict,
			expectedError:  "an order already exists for this bid",
		},
		{
			name: "machine not owned",
			body: body,
			createOrder: func(ctx context.Context, in order.CreateInput) (*order.Order, error) {
				return nil, order.ErrMachineNotOwned
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "machine does not belong to the manufacturer",
		},
		{
			name:           "invalid json",
			body:           `{invalid json}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid request payload",
		},
		{
			name:           "unknown status",
			body:           `{"bidId":"550e8400-e29b-41d4-a716-446655440000","exporterId":"123e4567-e89b-12d3-a456-426614174000","manufacturerId":"123e4567-e89b-12d3-a456-426614174001","machineId":"123e4567-e89b-12d3-a456-426614174002","deadline":"2024-05-01T00:00:00Z","status":"shipped"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Validation failed",
		},
		{
			name: "database failure",
			body: body,
			createOrder: func(ctx context.Context, in order.CreateInput) (*order.Order, error) {
				return nil, errors.New("service: create order: connection refused")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Failed to create order",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := &mockOrderService{
				CreateOrderFunc: func(ctx context.Context, in order.CreateInput) (*order.Order, error) {
					if tt.createOrder == nil {
						t.Fatal("CreateOrder must not be called")
					}
					assert.Equal(t, bidID, in.BidID)
					assert.True(t, in.Deadline.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
					return tt.createOrder(ctx, in)
				},
			}

			rr := doRequest(t, newOrderRouter(mockSvc), http.MethodPost, "/orders", tt.body, uuid.Nil)
			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, decodeError(t, rr))
			}
		})
	}
}

func TestOrderHandler_GetOrder(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	mockSvc := &mockOrderService{
		GetOrderByIDFunc: func(ctx context.Context, got uuid.UUID) (*order.Order, error) {
			if got == id {
				return &order.Order{ID: id, Status: order.StatusInProgress}, nil
			}
			return nil, order.ErrOrderNotFound
		},
	}
	router := newOrderRouter(mockSvc)

	rr := doRequest(t, router, http.MethodGet, "/orders/"+id.String(), nil, uuid.Nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"in_progress"`)

	rr = doRequest(t, router, http.MethodGet, "/orders/"+uuid.Must(uuid.NewV4()).String(), nil, uuid.Nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(t, router, http.MethodGet, "/orders/42", nil, uuid.Nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOrderHandler_UpdateOrderStatus(t *testing.T) {
	id := uuid.Must(uuid.NewV4())

	tests := []struct {
		name           string
		body           string
		update         func(ctx context.Context, id uuid.UUID, status order.Status) (*order.Order, error)
		expectedStatus int
	}{
		{
			name: "completed",
			body: `{"status":"Completed"}`,
			update: func(ctx context.Context, got uuid.UUID, status order.Status) (*order.Order, error) {
				assert.Equal(t, order.StatusCompleted, status)
				now := time.Now()
				return &order.Order{ID: got, Status: status, CompletionDate: &now}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown status",
			body:           `{"status":"shipped"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "illegal transition",
			body: `{"status":"pending"}`,
			update: func(ctx context.Context, got uuid.UUID, status order.Status) (*order.Order, error) {
				return nil, order.ErrInvalidStatusTransition
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := &mockOrderService{
				UpdateOrderStatusFunc: func(ctx context.Context, got uuid.UUID, status order.Status) (*order.Order, error) {
					if tt.update == nil {
						t.Fatal("UpdateOrderStatus must not be called")
					}
					return tt.update(ctx, got, status)
				},
			}

			rr := doRequest(t, newOrderRouter(mockSvc), http.MethodPut, "/orders/"+id.String()+"/status", tt.body, uuid.Nil)
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestOrderHandler_ListAndDelete(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	id := uuid.Must(uuid.NewV4())
	deleted := false
	mockSvc := &mockOrderService{
		ListUserOrdersFunc: func(ctx context.Context, got uuid.UUID) ([]order.Order, error) {
			assert.Equal(t, userID, got)
			return nil, nil
		},
		DeleteOrderFunc: func(ctx context.Context, got uuid.UUID) error {
			deleted = got == id
			return nil
		},
	}
	router := newOrderRouter(mockSvc)

	rr := doRequest(t, router, http.MethodGet, "/orders", nil, userID)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = doRequest(t, router, http.MethodDelete, "/orders/"+id.String(), nil, uuid.Nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.True(t, deleted)
}
