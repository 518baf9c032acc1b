package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domain "github.com/donaldgifford/pricely/pkg/types"
)

// UserProvider defines the service methods required by the users handler.
type UserProvider interface {
	CreateUser(ctx context.Context, username, email string) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// UserHandler handles user registration and lookup.
type UserHandler struct {
	svc UserProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(s UserProvider) *UserHandler {
	return &UserHandler{svc: s}
}

// CreateUserInput is the request body for registering a user.
type CreateUserInput struct {
	Body struct {
		Username string `json:"username" minLength:"1" example:"alice" doc:"Unique user name"`
		Email    string `json:"email" format:"email" example:"alice@example.com" doc:"Notification address"`
	}
}

// UserOutput is the response body for a single user.
type UserOutput struct {
	Body *domain.User
}

// GetUserInput is the request path for a user.
type GetUserInput struct {
	ID string `path:"id" doc:"User UUID"`
}

// Create registers a user.
func (h *UserHandler) Create(ctx context.Context, input *CreateUserInput) (*UserOutput, error) {
	u, err := h.svc.CreateUser(ctx, input.Body.Username, input.Body.Email)
	if err != nil {
		return nil, apiError("creating user", err)
	}
	return &UserOutput{Body: u}, nil
}

// Get returns a user by ID.
func (h *UserHandler) Get(ctx context.Context, input *GetUserInput) (*UserOutput, error) {
	u, err := h.svc.GetUser(ctx, input.ID)
	if err != nil {
		return nil, apiError("getting user", err)
	}
	return &UserOutput{Body: u}, nil
}

// RegisterUserRoutes registers user endpoints with the Huma API.
func RegisterUserRoutes(api huma.API, h *UserHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/api/v1/users",
		Summary:       "Create a user",
		Tags:          []string{"users"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict, http.StatusInternalServerError},
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}",
		Summary:     "Get a user by ID",
		Tags:        []string{"users"},
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.Get)
}
