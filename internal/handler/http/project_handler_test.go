package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	handler "github.com/vasiliy-maslov/garment-costing/internal/handler/http"
	"github.com/vasiliy-maslov/garment-costing/internal/project"
	"github.com/vasiliy-maslov/garment-costing/internal/rate"
	"github.com/vasiliy-maslov/garment-costing/internal/stage"
)

type MockProjectService struct {
	mock.Mock
}

func (m *MockProjectService) CreateProject(ctx context.Context, in project.CreateProjectInput) (*project.Project, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*project.Project), args.Error(1)
}

func (m *MockProjectService) EditProject(ctx context.Context, id uuid.UUID, in project.EditProjectInput) (*project.Project, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*project.Project), args.Error(1)
}

func (m *MockProjectService) DeleteProject(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProjectService) GetProjectByID(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*project.Project), args.Error(1)
}

func (m *MockProjectService) ListUserProjects(ctx context.Context, userID uuid.UUID) ([]project.Project, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]project.Project), args.Error(1)
}

type MockStageService struct {
	mock.Mock
}

func (m *MockStageService) UpdateStatus(ctx context.Context, kind stage.Kind, recordID uuid.UUID, status stage.Status) (*stage.Record, error) {
	args := m.Called(ctx, kind, recordID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stage.Record), args.Error(1)
}

func (m *MockStageService) Records(ctx context.Context, projectID uuid.UUID) ([]stage.Record, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]stage.Record), args.Error(1)
}

func newProjectRouter(projects *MockProjectService, stages *MockStageService) chi.Router {
	router := chi.NewRouter()
	handler.NewProjectHandler(projects, stages).RegisterRoutes(router)
	return router
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any, userID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		req.Header.Set(handler.UserIDHeader, userID.String())
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp.Error
}

func validCreateProject() handler.CreateProjectRequest {
	return handler.CreateProjectRequest{
		ShirtType:         "Polo",
		FabricCategory:    "Cotton",
		FabricSubCategory: "Single Jersey",
		FabricSize:        "M",
		CuttingStyle:      "regular",
		Quantity:          30,
	}
}

func TestProjectHandler_CreateProject_Success(t *testing.T) {
	projects := new(MockProjectService)
	userID := uuid.Must(uuid.NewV4())
	created := &project.Project{
		ID:                 uuid.Must(uuid.NewV4()),
		UserID:             userID,
		Status:             project.StatusActive,
		Quantity:           30,
		TotalEstimatedCost: decimal.RequireFromString("230340"),
	}

	projects.On("CreateProject", mock.Anything, mock.MatchedBy(func(in project.CreateProjectInput) bool {
		return in.UserID == userID && in.Quantity == 30 && in.CuttingStyle == "regular" && in.ID == nil
	})).Return(created, nil).Once()

	rr := doRequest(t, newProjectRouter(projects, new(MockStageService)), http.MethodPost, "/projects", validCreateProject(), userID)
	require.Equal(t, http.StatusCreated, rr.Code)

	var got project.Project
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, created.TotalEstimatedCost.Equal(got.TotalEstimatedCost))
	projects.AssertExpectations(t)
}

func TestProjectHandler_CreateProject_Errors(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())

	tests := []struct {
		name       string
		body       any
		userID     uuid.UUID
		serviceErr error
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing caller",
			body:       validCreateProject(),
			wantStatus: http.StatusUnauthorized,
			wantError:  "Missing or invalid X-User-ID header",
		},
		{
			name:       "malformed json",
			body:       `{invalid json}`,
			userID:     userID,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request payload",
		},
		{
			name:       "unknown field",
			body:       `{"shirtType":"Polo","colour":"red"}`,
			userID:     userID,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request payload",
		},
		{
			name:       "duplicate project",
			body:       validCreateProject(),
			userID:     userID,
			serviceErr: project.ErrDuplicateProject,
			wantStatus: http.StatusConflict,
			wantError:  "project already exists",
		},
		{
			name:       "rate missing",
			body:       validCreateProject(),
			userID:     userID,
			serviceErr: rate.ErrRateNotFound,
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "rate not found",
		},
		{
			name:       "internal failure is not leaked",
			body:       validCreateProject(),
			userID:     userID,
			serviceErr: errors.New("pq: connection reset by peer"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to create project",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			projects := new(MockProjectService)
			if tt.serviceErr != nil {
				projects.On("CreateProject", mock.Anything, mock.Anything).Return(nil, tt.serviceErr).Once()
			}

			rr := doRequest(t, newProjectRouter(projects, new(MockStageService)), http.MethodPost, "/projects", tt.body, tt.userID)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantError, decodeError(t, rr))
			projects.AssertExpectations(t)
		})
	}
}

func TestProjectHandler_CreateProject_ValidationDetails(t *testing.T) {
	projects := new(MockProjectService)
	req := validCreateProject()
	req.Quantity = 0
	req.ShirtType = ""

	rr := doRequest(t, newProjectRouter(projects, new(MockStageService)), http.MethodPost, "/projects", req, uuid.Must(uuid.NewV4()))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp handler.ValidationErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "Validation failed", resp.Error)
	assert.Contains(t, resp.Details, "quantity")
	assert.Contains(t, resp.Details, "shirtType")
	projects.AssertNotCalled(t, "CreateProject", mock.Anything, mock.Anything)
}

func TestProjectHandler_EditProject(t *testing.T) {
	projects := new(MockProjectService)
	id := uuid.Must(uuid.NewV4())
	edited := &project.Project{ID: id, Quantity: 60}

	projects.On("EditProject", mock.Anything, id, mock.MatchedBy(func(in project.EditProjectInput) bool {
		return in.Quantity != nil && *in.Quantity == 60 && in.ShirtType == nil &&
			in.LogoSize != nil && *in.LogoSize == ""
	})).Return(edited, nil).Once()

	rr := doRequest(t, newProjectRouter(projects, new(MockStageService)), http.MethodPatch, "/projects/"+id.String(),
		`{"quantity":60,"logoSize":""}`, uuid.Nil)
	require.Equal(t, http.StatusOK, rr.Code)
	projects.AssertExpectations(t)

	projects.On("EditProject", mock.Anything, id, mock.Anything).Return(nil, project.ErrProjectInactive).Once()
	rr = doRequest(t, newProjectRouter(projects, new(MockStageService)), http.MethodPatch, "/projects/"+id.String(),
		`{"quantity":61}`, uuid.Nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestProjectHandler_GetAndDelete(t *testing.T) {
	projects := new(MockProjectService)
	router := newProjectRouter(projects, new(MockStageService))
	id := uuid.Must(uuid.NewV4())

	rr := doRequest(t, router, http.MethodGet, "/projects/not-a-uuid", nil, uuid.Nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid id parameter", decodeError(t, rr))

	projects.On("GetProjectByID", mock.Anything, id).Return(nil, project.ErrProjectNotFound).Once()
	rr = doRequest(t, router, http.MethodGet, "/projects/"+id.String(), nil, uuid.Nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "project not found", decodeError(t, rr))

	projects.On("DeleteProject", mock.Anything, id).Return(nil).Once()
	rr = doRequest(t, router, http.MethodDelete, "/projects/"+id.String(), nil, uuid.Nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	projects.AssertExpectations(t)
}

func TestProjectHandler_ListProjects_EmptyArray(t *testing.T) {
	projects := new(MockProjectService)
	userID := uuid.Must(uuid.NewV4())
	projects.On("ListUserProjects", mock.Anything, userID).Return(nil, nil).Once()

	rr := doRequest(t, newProjectRouter(projects, new(MockStageService)), http.MethodGet, "/projects", nil, userID)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestProjectHandler_UpdateStageStatus(t *testing.T) {
	recordID := uuid.Must(uuid.NewV4())

	tests := []struct {
		name       string
		path       string
		body       string
		setup      func(m *MockStageService)
		wantStatus int
	}{
		{
			name: "posted",
			path: "/stages/cutting/" + recordID.String() + "/status",
			body: `{"status":"Posted"}`,
			setup: func(m *MockStageService) {
				m.On("UpdateStatus", mock.Anything, stage.Cutting, recordID, stage.StatusPosted).
					Return(&stage.Record{ID: recordID, Kind: stage.Cutting, Status: stage.StatusPosted}, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown kind",
			path:       "/stages/dyeing/" + recordID.String() + "/status",
			body:       `{"status":"posted"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown status",
			path:       "/stages/cutting/" + recordID.String() + "/status",
			body:       `{"status":"archived"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "inactive record",
			path: "/stages/LogoPrinting/" + recordID.String() + "/status",
			body: `{"status":"active"}`,
			setup: func(m *MockStageService) {
				m.On("UpdateStatus", mock.Anything, stage.LogoPrinting, recordID, stage.StatusActive).
					Return(nil, stage.ErrRecordInactive).Once()
			},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stages := new(MockStageService)
			if tt.setup != nil {
				tt.setup(stages)
			}

			rr := doRequest(t, newProjectRouter(new(MockProjectService), stages), http.MethodPut, tt.path, tt.body, uuid.Nil)
			assert.Equal(t, tt.wantStatus, rr.Code)
			stages.AssertExpectations(t)
		})
	}
}
