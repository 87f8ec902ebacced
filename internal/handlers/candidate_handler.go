package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

type CandidateHandler struct {
	BaseHandler
	service services.CandidateService
}

func NewCandidateHandler(service services.CandidateService, logger utils.Logger) *CandidateHandler {
	return &CandidateHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// Register creates a candidate or returns the one already known by telegram id
// @Summary Register a candidate
// @Tags candidates
// @Accept json
// @Produce json
// @Param request body services.RegisterCandidateRequest true "Registration"
// @Success 201 {object} models.Candidate "Created"
// @Success 200 {object} models.Candidate "Already registered"
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 409 {object} ErrorResponse "Phone already registered"
// @Router /candidates [post]
func (h *CandidateHandler) Register(c *gin.Context) {
	var req services.RegisterCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	candidate, created, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if !created {
		c.JSON(http.StatusOK, candidate)
		return
	}
	h.LogRequest(c, "Candidate registered", "candidate_id", candidate.ID, "cohort", req.CohortKind)
	c.JSON(http.StatusCreated, candidate)
}

// GetCandidate looks a candidate up by telegram id
// @Summary Get a candidate
// @Tags candidates
// @Produce json
// @Param telegram_id path int true "Telegram ID"
// @Success 200 {object} models.Candidate
// @Failure 404 {object} ErrorResponse "Candidate not found"
// @Router /candidates/{telegram_id} [get]
func (h *CandidateHandler) GetCandidate(c *gin.Context) {
	telegramID, ok := h.parseInt64Param(c, "telegram_id")
	if !ok {
		return
	}

	candidate, err := h.service.GetByTelegramID(c.Request.Context(), telegramID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, candidate)
}

// UpdateLanguage changes the interface language
// @Summary Change candidate language
// @Tags candidates
// @Accept json
// @Produce json
// @Param telegram_id path int true "Telegram ID"
// @Param request body services.UpdateLanguageRequest true "Language"
// @Success 200 {object} models.Candidate
// @Router /candidates/{telegram_id}/language [put]
func (h *CandidateHandler) UpdateLanguage(c *gin.Context) {
	telegramID, ok := h.parseInt64Param(c, "telegram_id")
	if !ok {
		return
	}

	var req services.UpdateLanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	candidate, err := h.service.UpdateLanguage(c.Request.Context(), telegramID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, candidate)
}

// UpdatePhone changes the contact number
// @Summary Change candidate phone
// @Tags candidates
// @Accept json
// @Produce json
// @Param telegram_id path int true "Telegram ID"
// @Param request body services.UpdatePhoneRequest true "Phone"
// @Success 200 {object} models.Candidate
// @Failure 409 {object} ErrorResponse "Phone already registered"
// @Router /candidates/{telegram_id}/phone [put]
func (h *CandidateHandler) UpdatePhone(c *gin.Context) {
	telegramID, ok := h.parseInt64Param(c, "telegram_id")
	if !ok {
		return
	}

	var req services.UpdatePhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	candidate, err := h.service.UpdatePhone(c.Request.Context(), telegramID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, candidate)
}
