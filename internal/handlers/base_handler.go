package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/splitter"
	"github.com/SAP-F-2025/exam-service/internal/utils"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse wraps payloads of mutating endpoints
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries the helpers shared by every handler
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs through the request scoped logger
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Error(msg, append(args, "error", err)...)
}

// RespondWithError writes an error body and aborts the chain
func (h *BaseHandler) RespondWithError(c *gin.Context, status int, message string, details interface{}) {
	c.AbortWithStatusJSON(status, ErrorResponse{Message: message, Details: details})
}

// ===== PARAMETER PARSING =====

// parseIDParam writes a 400 and returns 0 when the parameter is not a positive id
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		details := "must be a positive integer"
		if err != nil {
			details = err.Error()
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: details,
		})
		return 0
	}
	return uint(id)
}

// parseInt64Param is parseIDParam for telegram ids
func (h *BaseHandler) parseInt64Param(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
		})
		return 0, false
	}
	return id, true
}

func (h *BaseHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	valueStr := c.Query(param)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// ===== ERROR MAPPING =====

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Code:    "validation_failed",
			Details: validationErrors,
		})
		return
	}

	if code, ok := uploadErrorCode(err); ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid question upload",
			Code:    code,
			Details: err.Error(),
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Validation failed", Code: "validation_failed", Details: err.Error()})
	case errors.Is(err, services.ErrAnswerForeignToSession):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Question is not part of this session", Code: "answer_foreign_to_session"})
	case errors.Is(err, services.ErrInvalidAction):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid session action", Code: "invalid_action"})

	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Session not found", Code: "session_not_found"})
	case errors.Is(err, services.ErrCandidateNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Candidate not found", Code: "candidate_not_found"})
	case errors.Is(err, services.ErrSubjectNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Subject not found", Code: "subject_not_found"})
	case errors.Is(err, services.ErrQuestionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Question not found", Code: "question_not_found"})

	case errors.Is(err, services.ErrAlreadyCompleted):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Candidate has already completed the exam", Code: "already_completed"})
	case errors.Is(err, services.ErrSessionAlreadyGraded):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Session is already graded", Code: "session_already_graded"})
	case errors.Is(err, services.ErrSessionNotGraded):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Session has not been graded yet", Code: "session_not_graded"})
	case errors.Is(err, services.ErrPhoneTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Phone number is already registered", Code: "phone_taken"})

	case errors.Is(err, services.ErrNoEligibleContent):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Message: "No questions are available for this candidate", Code: "no_eligible_content"})

	case errors.Is(err, services.ErrStorageFailed):
		h.LogError(c, err, "Question storage failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{Message: "Failed to store question documents", Code: "storage_failed"})

	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}

// uploadErrorCode names the splitter rejection behind err
func uploadErrorCode(err error) (string, bool) {
	codes := []struct {
		err  error
		code string
	}{
		{splitter.ErrPackageCorrupt, "package_corrupt"},
		{splitter.ErrXMLMalformed, "xml_malformed"},
		{splitter.ErrAnswerKeyInvalid, "answer_key_invalid"},
		{splitter.ErrSegmentCountMismatch, "segment_count_mismatch"},
		{splitter.ErrSegmentAnswerCountMismatch, "segment_answer_count_mismatch"},
		{splitter.ErrDelimiterRequired, "delimiter_required"},
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code, true
		}
	}
	return "", false
}
