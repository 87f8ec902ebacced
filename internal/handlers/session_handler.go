package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

type SessionHandler struct {
	BaseHandler
	service services.SessionService
}

func NewSessionHandler(service services.SessionService, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// RecordAnswerRequest is the body of the answer endpoint
type RecordAnswerRequest struct {
	QuestionID uint   `json:"question_id" binding:"required"`
	Answer     string `json:"answer" binding:"required"`
}

// SubmitRequest carries the client measured duration
type SubmitRequest struct {
	ElapsedSeconds *int `json:"elapsed_seconds"`
}

// ===== SESSION LIFECYCLE =====

// CreateSession starts an exam for a candidate
// @Summary Start an exam session
// @Description Select questions for the candidate's cohort and open a new session
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body services.CreateSessionRequest true "Session creation request"
// @Success 201 {object} services.SessionCreatedResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 404 {object} ErrorResponse "Candidate not found"
// @Failure 409 {object} ErrorResponse "Exam already completed"
// @Failure 422 {object} ErrorResponse "No eligible questions"
// @Router /sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req services.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	response, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Exam session created", "session_id", response.SessionID, "candidate_id", req.CandidateID)
	c.JSON(http.StatusCreated, response)
}

// GetCurrent returns the question at the session position
// @Summary Get the current question
// @Tags sessions
// @Produce json
// @Param token path string true "Session token"
// @Success 200 {object} services.SessionStateResponse
// @Failure 404 {object} ErrorResponse "Session not found"
// @Router /sessions/{token}/current [get]
func (h *SessionHandler) GetCurrent(c *gin.Context) {
	state, err := h.service.Current(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// RecordAnswer stores the candidate's choice for one question
// @Summary Record an answer
// @Tags sessions
// @Accept json
// @Produce json
// @Param token path string true "Session token"
// @Param request body RecordAnswerRequest true "Answer"
// @Success 204
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 404 {object} ErrorResponse "Session not found"
// @Failure 409 {object} ErrorResponse "Session already graded"
// @Router /sessions/{token}/answers [post]
func (h *SessionHandler) RecordAnswer(c *gin.Context) {
	var req RecordAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	symbol := models.NormalizeAnswer(req.Answer)
	if !symbol.IsValid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Answer must be one of A, B, C, D",
			Code:    "validation_failed",
		})
		return
	}

	if err := h.service.RecordAnswer(c.Request.Context(), c.Param("token"), req.QuestionID, symbol); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Answer records an optional answer and then navigates or submits
// @Summary Answer and move
// @Tags sessions
// @Accept json
// @Produce json
// @Param token path string true "Session token"
// @Param request body services.AnswerRequest true "Answer with action"
// @Success 200 {object} services.SessionStateResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 404 {object} ErrorResponse "Session not found"
// @Router /sessions/{token}/answer [post]
func (h *SessionHandler) Answer(c *gin.Context) {
	var req services.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	state, err := h.service.Answer(c.Request.Context(), c.Param("token"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// ===== NAVIGATION =====

// Next moves to the following question
// @Summary Next question
// @Tags sessions
// @Produce json
// @Param token path string true "Session token"
// @Success 200 {object} services.SessionStateResponse
// @Router /sessions/{token}/next [post]
func (h *SessionHandler) Next(c *gin.Context) {
	state, err := h.service.Advance(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// Prev moves to the preceding question
// @Summary Previous question
// @Tags sessions
// @Produce json
// @Param token path string true "Session token"
// @Success 200 {object} services.SessionStateResponse
// @Router /sessions/{token}/prev [post]
func (h *SessionHandler) Prev(c *gin.Context) {
	state, err := h.service.Retreat(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// ===== GRADING =====

// Submit grades the session. Repeated calls return the stored result.
// @Summary Submit the exam
// @Tags sessions
// @Accept json
// @Produce json
// @Param token path string true "Session token"
// @Param request body SubmitRequest false "Elapsed time"
// @Success 200 {object} services.ResultResponse
// @Failure 404 {object} ErrorResponse "Session not found"
// @Router /sessions/{token}/submit [post]
func (h *SessionHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid request payload",
				Details: err.Error(),
			})
			return
		}
	}

	result, err := h.service.Submit(c.Request.Context(), c.Param("token"), req.ElapsedSeconds)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Exam session submitted", "session_id", result.SessionID, "tier", result.Tier)
	c.JSON(http.StatusOK, result)
}

// GetResult returns the stored result of a graded session
// @Summary Get the exam result
// @Tags sessions
// @Produce json
// @Param token path string true "Session token"
// @Success 200 {object} services.ResultResponse
// @Failure 404 {object} ErrorResponse "Session not found"
// @Failure 409 {object} ErrorResponse "Session not graded"
// @Router /sessions/{token}/result [get]
func (h *SessionHandler) GetResult(c *gin.Context) {
	result, err := h.service.Result(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
