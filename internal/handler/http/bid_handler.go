package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/garment-costing/internal/bid"
)

type CreateBidRequest struct {
	ModuleType  string          `json:"moduleType" validate:"required"`
	ModuleID    uuid.UUID       `json:"moduleId" validate:"required"`
	Title       string          `json:"title" validate:"required,max=255"`
	Description string          `json:"description" validate:"max=4000"`
	Price       decimal.Decimal `json:"price"`
	Status      string          `json:"status" validate:"omitempty,oneof=Active Inactive"`
}

type EditBidRequest struct {
	Title       *string          `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=4000"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Status      *string          `json:"status,omitempty" validate:"omitempty,oneof=Active Inactive"`
}

type CreateResponseRequest struct {
	Price     decimal.Decimal `json:"price"`
	Message   string          `json:"message" validate:"max=4000"`
	MachineID uuid.UUID       `json:"machineId" validate:"required"`
	Deadline  time.Time       `json:"deadline" validate:"required"`
}

type BidHandler struct {
	bids     bid.Service
	validate *validator.Validate
}

func NewBidHandler(bids bid.Service) *BidHandler {
	return &BidHandler{
		bids:     bids,
		validate: newValidator(),
	}
}

func (h *BidHandler) RegisterRoutes(router chi.Router) {
	router.Get("/bids", h.handleListActiveBids)
	router.Get("/bids/mine", h.handleListMyBids)
	router.Post("/bids", h.handleCreateBid)
	router.Get("/bids/{id}", h.handleGetBid)
	router.Patch("/bids/{id}", h.handleEditBid)
	router.Post("/bids/{id}/deactivate", h.handleDeactivateBid)
	router.Post("/bids/{id}/responses", h.handleCreateResponse)
	router.Get("/bids/{id}/responses", h.handleListResponses)
	router.Post("/responses/{id}/accept", h.handleAcceptResponse)
	router.Post("/responses/{id}/reject", h.handleRejectResponse)
	router.Post("/responses/{id}/cancel", h.handleCancelResponse)
}

func (h *BidHandler) handleListActiveBids(w http.ResponseWriter, r *http.Request) {
	bids, err := h.bids.GetAllBids(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to list bids")
		return
	}
	if bids == nil {
		bids = []bid.Bid{}
	}
	respondWithJSON(w, http.StatusOK, bids)
}

func (h *BidHandler) handleListMyBids(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	bids, err := h.bids.ListUserBids(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list bids")
		return
	}
	if bids == nil {
		bids = []bid.Bid{}
	}
	respondWithJSON(w, http.StatusOK, bids)
}

func (h *BidHandler) handleCreateBid(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req CreateBidRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	created, err := h.bids.CreateBid(r.Context(), bid.CreateBidInput{
		UserID:      userID,
		ModuleType:  req.ModuleType,
		ModuleID:    req.ModuleID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Status:      bid.Status(req.Status),
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to create bid")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *BidHandler) handleGetBid(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	b, err := h.bids.GetBidByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get bid")
		return
	}
	respondWithJSON(w, http.StatusOK, b)
}

func (h *BidHandler) handleEditBid(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	var req EditBidRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	in := bid.EditBidInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
	}
	if req.Status != nil {
		status := bid.Status(*req.Status)
		in.Status = &status
	}

	edited, err := h.bids.EditBid(r.Context(), userID, id, in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to edit bid")
		return
	}
	respondWithJSON(w, http.StatusOK, edited)
}

func (h *BidHandler) handleDeactivateBid(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	b, err := h.bids.DeactivateBid(r.Context(), userID, id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to deactivate bid")
		return
	}
	respondWithJSON(w, http.StatusOK, b)
}

func (h *BidHandler) handleCreateResponse(w http.ResponseWriter, r *http.Request) {
	manufacturerID, ok := callerID(w, r)
	if !ok {
		return
	}
	bidID, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	var req CreateResponseRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	created, err := h.bids.CreateBidResponse(r.Context(), manufacturerID, bid.CreateResponseInput{
		BidID:     bidID,
		Price:     req.Price,
		Message:   req.Message,
		MachineID: req.MachineID,
		Deadline:  req.Deadline,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to create bid response")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *BidHandler) handleListResponses(w http.ResponseWriter, r *http.Request) {
	bidID, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	responses, err := h.bids.ListResponses(r.Context(), bidID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list bid responses")
		return
	}
	if responses == nil {
		responses = []bid.Response{}
	}
	respondWithJSON(w, http.StatusOK, responses)
}

func (h *BidHandler) handleAcceptResponse(w http.ResponseWriter, r *http.Request) {
	exporterID, ok := callerID(w, r)
	if !ok {
		return
	}
	responseID, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	o, err := h.bids.AcceptResponse(r.Context(), exporterID, responseID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to accept bid response")
		return
	}
	respondWithJSON(w, http.StatusCreated, o)
}

func (h *BidHandler) handleRejectResponse(w http.ResponseWriter, r *http.Request) {
	exporterID, ok := callerID(w, r)
	if !ok {
		return
	}
	responseID, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	resp, err := h.bids.RejectResponse(r.Context(), exporterID, responseID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to reject bid response")
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *BidHandler) handleCancelResponse(w http.ResponseWriter, r *http.Request) {
	manufacturerID, ok := callerID(w, r)
	if !ok {
		return
	}
	responseID, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	resp, err := h.bids.CancelResponse(r.Context(), manufacturerID, responseID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to cancel bid response")
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}
