package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/recipesimplifier/api/internal/infrastructure/http/respond"
	"github.com/recipesimplifier/api/internal/ports/inbound"
)

// AccountAPIHandlers handles the caller's own account
type AccountAPIHandlers struct {
	accountService inbound.AccountService
	logger         *zap.Logger
}

// NewAccountAPIHandlers creates a new account API handlers instance
func NewAccountAPIHandlers(accountService inbound.AccountService, logger *zap.Logger) *AccountAPIHandlers {
	return &AccountAPIHandlers{
		accountService: accountService,
		logger:         logger.Named("account-api"),
	}
}

// EnsureUser handles POST /api/ensure-user
func (h *AccountAPIHandlers) EnsureUser(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	if _, err := h.accountService.EnsureUser(r.Context(), caller); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, MessageResponse{Success: true})
}

// GetAccount handles GET /api/account
func (h *AccountAPIHandlers) GetAccount(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	view, err := h.accountService.GetAccount(r.Context(), caller)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, view)
}
