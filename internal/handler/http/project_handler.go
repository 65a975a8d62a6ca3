package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/garment-costing/internal/project"
	"github.com/vasiliy-maslov/garment-costing/internal/stage"
)

type CreateProjectRequest struct {
	ID                *uuid.UUID `json:"id,omitempty"`
	ShirtType         string     `json:"shirtType" validate:"required,max=100"`
	FabricCategory    string     `json:"fabricCategory" validate:"required,max=100"`
	FabricSubCategory string     `json:"fabricSubCategory" validate:"required,max=100"`
	FabricSize        string     `json:"fabricSize" validate:"required,max=50"`
	LogoPosition      string     `json:"logoPosition" validate:"max=100"`
	PrintingStyle     string     `json:"printingStyle" validate:"max=100"`
	LogoSize          string     `json:"logoSize" validate:"max=50"`
	CuttingStyle      string     `json:"cuttingStyle" validate:"required,max=100"`
	Quantity          int        `json:"quantity" validate:"required,gt=0"`
}

// EditProjectRequest is partial. Logo fields may be sent as "" to drop the logo.
type EditProjectRequest struct {
	ShirtType         *string `json:"shirtType,omitempty" validate:"omitempty,min=1,max=100"`
	FabricCategory    *string `json:"fabricCategory,omitempty" validate:"omitempty,min=1,max=100"`
	FabricSubCategory *string `json:"fabricSubCategory,omitempty" validate:"omitempty,min=1,max=100"`
	FabricSize        *string `json:"fabricSize,omitempty" validate:"omitempty,min=1,max=50"`
	LogoPosition      *string `json:"logoPosition,omitempty" validate:"omitempty,max=100"`
	PrintingStyle     *string `json:"printingStyle,omitempty" validate:"omitempty,max=100"`
	LogoSize          *string `json:"logoSize,omitempty" validate:"omitempty,max=50"`
	CuttingStyle      *string `json:"cuttingStyle,omitempty" validate:"omitempty,min=1,max=100"`
	Quantity          *int    `json:"quantity,omitempty" validate:"omitempty,gt=0"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type ProjectHandler struct {
	projects project.Service
	stages   stage.Service
	validate *validator.Validate
}

func NewProjectHandler(projects project.Service, stages stage.Service) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
		stages:   stages,
		validate: newValidator(),
	}
}

func (h *ProjectHandler) RegisterRoutes(router chi.Router) {
	router.Post("/projects", h.handleCreateProject)
	router.Get("/projects", h.handleListProjects)
	router.Get("/projects/{id}", h.handleGetProject)
	router.Patch("/projects/{id}", h.handleEditProject)
	router.Delete("/projects/{id}", h.handleDeleteProject)
	router.Put("/stages/{kind}/{id}/status", h.handleUpdateStageStatus)
}

func (h *ProjectHandler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req CreateProjectRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	created, err := h.projects.CreateProject(r.Context(), project.CreateProjectInput{
		ID:                req.ID,
		UserID:            userID,
		ShirtType:         req.ShirtType,
		FabricCategory:    req.FabricCategory,
		FabricSubCategory: req.FabricSubCategory,
		FabricSize:        req.FabricSize,
		LogoPosition:      req.LogoPosition,
		PrintingStyle:     req.PrintingStyle,
		LogoSize:          req.LogoSize,
		CuttingStyle:      req.CuttingStyle,
		Quantity:          req.Quantity,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to create project")
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *ProjectHandler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	projects, err := h.projects.ListUserProjects(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list projects")
		return
	}
	if projects == nil {
		projects = []project.Project{}
	}
	respondWithJSON(w, http.StatusOK, projects)
}

func (h *ProjectHandler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	p, err := h.projects.GetProjectByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get project")
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *ProjectHandler) handleEditProject(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	var req EditProjectRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	edited, err := h.projects.EditProject(r.Context(), id, project.EditProjectInput{
		ShirtType:         req.ShirtType,
		FabricCategory:    req.FabricCategory,
		FabricSubCategory: req.FabricSubCategory,
		FabricSize:        req.FabricSize,
		LogoPosition:      req.LogoPosition,
		PrintingStyle:     req.PrintingStyle,
		LogoSize:          req.LogoSize,
		CuttingStyle:      req.CuttingStyle,
		Quantity:          req.Quantity,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to edit project")
		return
	}
	respondWithJSON(w, http.StatusOK, edited)
}

func (h *ProjectHandler) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.projects.DeleteProject(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectHandler) handleUpdateStageStatus(w http.ResponseWriter, r *http.Request) {
	kind, err := stage.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondWithServiceError(w, err, "Invalid stage kind")
		return
	}
	id, ok := urlUUID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	status, err := stage.ParseStatus(req.Status)
	if err != nil {
		respondWithServiceError(w, err, "Invalid stage status")
		return
	}

	rec, err := h.stages.UpdateStatus(r.Context(), kind, id, status)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update stage status")
		return
	}
	respondWithJSON(w, http.StatusOK, rec)
}
