package handlers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recipesimplifier/api/internal/domain/user"
	"github.com/recipesimplifier/api/internal/infrastructure/http/respond"
	"github.com/recipesimplifier/api/internal/infrastructure/security"
	"github.com/recipesimplifier/api/internal/ports/inbound"
	"github.com/recipesimplifier/api/pkg/errors"
)

// AdminAPIHandlers handles the operator endpoints
type AdminAPIHandlers struct {
	adminService inbound.AdminService
	validator    *security.Validator
	logger       *zap.Logger
}

// NewAdminAPIHandlers creates a new admin API handlers instance
func NewAdminAPIHandlers(adminService inbound.AdminService, validator *security.Validator, logger *zap.Logger) *AdminAPIHandlers {
	return &AdminAPIHandlers{
		adminService: adminService,
		validator:    validator,
		logger:       logger.Named("admin-api"),
	}
}

type SearchUserRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type SearchUserResponse struct {
	User *inbound.UserDetails `json:"user"`
}

type GrantLifetimeRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

type AddSubscriptionRequest struct {
	UserID               string `json:"userId" validate:"required,uuid"`
	StripeCustomerID     string `json:"stripeCustomerId,omitempty" validate:"max=255"`
	StripeSubscriptionID string `json:"stripeSubscriptionId,omitempty" validate:"max=255"`
}

type ManageAdminRequest struct {
	Action       string `json:"action" validate:"required"`
	TargetUserID string `json:"targetUserId" validate:"required,uuid"`
}

type AdminListResponse struct {
	AdminUsers []*user.User `json:"adminUsers"`
}

// CheckStatus handles GET /api/admin/check-status
func (h *AdminAPIHandlers) CheckStatus(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	status, err := h.adminService.CheckStatus(r.Context(), caller)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, status)
}

// SearchUser handles POST /api/admin/search-user
func (h *AdminAPIHandlers) SearchUser(w http.ResponseWriter, r *http.Request) {
	var req SearchUserRequest
	if err := h.decodeValid(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	details, err := h.adminService.SearchUser(r.Context(), req.Email)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, SearchUserResponse{User: details})
}

// GrantLifetime handles POST /api/admin/grant-lifetime
func (h *AdminAPIHandlers) GrantLifetime(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	var req GrantLifetimeRequest
	if err := h.decodeValid(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	if _, err := h.adminService.GrantLifetime(r.Context(), caller, uuid.MustParse(req.UserID)); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, MessageResponse{Success: true, Message: "Lifetime access granted successfully"})
}

// AddSubscription handles POST /api/admin/add-subscription
func (h *AdminAPIHandlers) AddSubscription(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	var req AddSubscriptionRequest
	if err := h.decodeValid(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	_, err = h.adminService.AddSubscription(r.Context(), caller, inbound.AddSubscriptionCommand{
		UserID:               uuid.MustParse(req.UserID),
		StripeCustomerID:     req.StripeCustomerID,
		StripeSubscriptionID: req.StripeSubscriptionID,
	})
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, MessageResponse{Success: true, Message: "Subscription added successfully"})
}

// ManageAdmin handles POST /api/admin/manage-admin
func (h *AdminAPIHandlers) ManageAdmin(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	var req ManageAdminRequest
	if err := h.decodeValid(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	action := user.AdminAction(req.Action)
	if err := h.adminService.ManageAdmin(r.Context(), caller, action, uuid.MustParse(req.TargetUserID)); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	verb := "revoked"
	if action == user.ActionGrantAdmin {
		verb = "granted"
	}
	respond.JSON(w, h.logger, http.StatusOK, MessageResponse{
		Success: true,
		Message: fmt.Sprintf("Admin access %s successfully", verb),
	})
}

// ListAdmins handles GET /api/admin/manage-admin
func (h *AdminAPIHandlers) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.adminService.ListAdmins(r.Context())
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, AdminListResponse{AdminUsers: admins})
}

func (h *AdminAPIHandlers) decodeValid(r *http.Request, dst interface{}) error {
	if err := decodeJSON(r, dst); err != nil {
		return err
	}
	if err := h.validator.Struct(dst); err != nil {
		if appErr, ok := errors.As(err); ok {
			return appErr
		}
		return err
	}
	return nil
}
