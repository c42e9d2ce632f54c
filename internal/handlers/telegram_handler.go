package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "lifeslice/internal/errors"
	"lifeslice/internal/services"
)

// TelegramHandler handles Telegram-related requests.
type TelegramHandler struct {
	telegramService services.TelegramServicer
	auditService    services.AuditServicer
}

// NewTelegramHandler creates a new TelegramHandler.
func NewTelegramHandler(telegramService services.TelegramServicer, auditService services.AuditServicer) *TelegramHandler {
	return &TelegramHandler{
		telegramService: telegramService,
		auditService:    auditService,
	}
}

// CompleteLinkRequest represents the request to complete linking
type CompleteLinkRequest struct {
	LinkCode          string `json:"link_code" binding:"required,len=6"`
	TelegramUserID    int64  `json:"telegram_user_id" binding:"required"`
	TelegramUsername  string `json:"telegram_username"`
	TelegramFirstName string `json:"telegram_first_name"`
}

// CommandRequest represents an inbound bot command relayed by the bot service.
type CommandRequest struct {
	TelegramUserID int64  `json:"telegram_user_id" binding:"required"`
	Text           string `json:"text" binding:"required,max=500"`
}

// GetLink retrieves the user's Telegram link status
// @Summary     Get Telegram link status
// @Description Get the current Telegram link for the authenticated user
// @Tags        telegram
// @Accept      json
// @Produce     json
// @Success     200 {object} object "Link information"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /telegram/link [get]
// @Security    BearerAuth
func (h *TelegramHandler) GetLink(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	link, err := h.telegramService.GetLinkByUserID(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"link": link,
	})
}

// GenerateCode generates a new link code for the user
// @Summary     Generate link code
// @Description Generate a new 6-character link code for linking a Telegram account
// @Tags        telegram
// @Accept      json
// @Produce     json
// @Success     200 {object} object "Link code generated"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /telegram/generate-code [post]
// @Security    BearerAuth
func (h *TelegramHandler) GenerateCode(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	link, err := h.telegramService.GenerateLinkCode(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "GENERATE_TELEGRAM_CODE", "telegram_link", link.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{
		"link_code":  link.LinkCode,
		"expires_at": link.LinkCodeExpiresAt,
	})
}

// Unlink unlinks the user's Telegram account
// @Summary     Unlink Telegram account
// @Description Remove the link between a Telegram account and this account
// @Tags        telegram
// @Accept      json
// @Produce     json
// @Success     200 {object} object "Success message"
// @Failure     404 {object} ErrorResponse "Not found"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /telegram/unlink [delete]
// @Security    BearerAuth
func (h *TelegramHandler) Unlink(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.telegramService.UnlinkAccount(userID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UNLINK_TELEGRAM", "telegram_link", "", c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{
		"message": "Telegram account unlinked successfully",
	})
}

// CompleteLink completes the linking process (called by bot service)
// @Summary     Complete Telegram linking
// @Description Complete the linking process by verifying the link code (internal endpoint)
// @Tags        internal
// @Accept      json
// @Produce     json
// @Param       request body CompleteLinkRequest true "Link completion data"
// @Success     200 {object} object "Success message"
// @Failure     400 {object} ErrorResponse "Invalid code or expired"
// @Failure     409 {object} ErrorResponse "Telegram already linked"
// @Router      /internal/telegram/complete-link [post]
// @Security    InternalSecret
func (h *TelegramHandler) CompleteLink(c *gin.Context) {
	var req CompleteLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if err := h.telegramService.CompleteLink(req.LinkCode, req.TelegramUserID, req.TelegramUsername, req.TelegramFirstName); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Telegram account linked successfully",
	})
}

// Command executes a bot command on behalf of a linked Telegram user (called
// by the bot service) and returns the reply text to send back.
// @Summary     Execute bot command
// @Description Parse and execute a Telegram command, returning the reply text (internal endpoint)
// @Tags        internal
// @Accept      json
// @Produce     json
// @Param       request body CommandRequest true "Command"
// @Success     200 {object} object "Reply text"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Account not linked"
// @Router      /internal/telegram/command [post]
// @Security    InternalSecret
func (h *TelegramHandler) Command(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	reply, err := h.telegramService.HandleCommand(req.TelegramUserID, req.Text)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reply": reply,
	})
}
