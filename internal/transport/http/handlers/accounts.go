package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/halcyonsoft/halcyon/internal/usecase"
)

// AccountHandler exposes the sample accounts resource.
type AccountHandler struct {
	accounts *usecase.AccountService
	logger   *zap.Logger
}

// NewAccountHandler constructs an account handler.
func NewAccountHandler(accounts *usecase.AccountService, log *zap.Logger) *AccountHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountHandler{accounts: accounts, logger: log}
}

// RegisterRoutes binds the account routes to the provided router group.
func (h *AccountHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	r.GET("", h.List)
	r.POST("", h.Create)
	r.GET("/:account_id", h.Get)
	r.PUT("/:account_id", h.Update)
	r.DELETE("/:account_id", h.Delete)
}

// List returns every account.
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.accounts.List(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	payloads := make([]AccountPayload, 0, len(accounts))
	for _, account := range accounts {
		payloads = append(payloads, newAccountPayload(account))
	}

	c.JSON(http.StatusOK, NewResult(payloads))
}

// Get returns a single account.
func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}

	account, err := h.accounts.Get(c.Request.Context(), id)
	if err != nil {
		RespondWithMappedError(c, h.logger, err, notFoundCase(usecase.ErrAccountNotFound, "The account could not be found."))
		return
	}

	c.JSON(http.StatusOK, NewResult(newAccountPayload(*account)))
}

// Create stores a new account.
func (h *AccountHandler) Create(c *gin.Context) {
	var req AccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("name and type are required"))
		return
	}

	account, err := h.accounts.Create(c.Request.Context(), usecase.AccountInput{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Balance:     req.Balance,
	})
	if err != nil {
		RespondWithMappedError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, NewResult(newAccountPayload(*account)))
}

// Update replaces the editable fields of an account.
func (h *AccountHandler) Update(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}

	var req AccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("name and type are required"))
		return
	}

	account, err := h.accounts.Update(c.Request.Context(), id, usecase.AccountInput{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Balance:     req.Balance,
	})
	if err != nil {
		RespondWithMappedError(c, h.logger, err, notFoundCase(usecase.ErrAccountNotFound, "The account could not be found."))
		return
	}

	c.JSON(http.StatusOK, NewResult(newAccountPayload(*account)))
}

// Delete removes an account.
func (h *AccountHandler) Delete(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}

	if err := h.accounts.Delete(c.Request.Context(), id); err != nil {
		RespondWithMappedError(c, h.logger, err, notFoundCase(usecase.ErrAccountNotFound, "The account could not be found."))
		return
	}

	c.JSON(http.StatusOK, NewResult(MessageResponse{Message: "Account deleted."}))
}

func accountID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("account_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrors("account id must be numeric"))
		return 0, false
	}
	return id, true
}
