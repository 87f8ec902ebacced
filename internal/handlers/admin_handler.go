package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/export"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

// MaxDocumentSize bounds one uploaded question document
const MaxDocumentSize = 20 << 20

const dateLayout = "2006-01-02"

type AdminHandler struct {
	BaseHandler
	questions services.QuestionService
	exports   services.ExportService
}

func NewAdminHandler(questions services.QuestionService, exports services.ExportService, logger utils.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler: NewBaseHandler(logger),
		questions:   questions,
		exports:     exports,
	}
}

// ===== QUESTION INGESTION =====

// ImportQuestions splits the uploaded documents into questions of a subject
// @Summary Upload question documents
// @Description One .docx per language in form fields uz, kaa and ru, an answer key and an optional delimiter
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Subject ID"
// @Param uz formData file false "Uzbek document"
// @Param kaa formData file false "Karakalpak document"
// @Param ru formData file false "Russian document"
// @Param answers formData string true "Answer key, e.g. ABCDA"
// @Param delimiter formData string false "Question delimiter"
// @Success 201 {object} services.ImportQuestionsResponse
// @Failure 400 {object} ErrorResponse "Invalid upload"
// @Failure 404 {object} ErrorResponse "Subject not found"
// @Failure 502 {object} ErrorResponse "Storage failed"
// @Router /admin/subjects/{id}/questions/upload [post]
func (h *AdminHandler) ImportQuestions(c *gin.Context) {
	subjectID := h.parseIDParam(c, "id")
	if subjectID == 0 {
		return
	}

	documents := make(map[models.Language][]byte, len(models.Languages))
	for _, lang := range models.Languages {
		data, err := readFormFile(c, string(lang))
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid " + string(lang) + " document",
				Details: err.Error(),
			})
			return
		}
		if data != nil {
			documents[lang] = data
		}
	}

	response, err := h.questions.Import(c.Request.Context(), &services.ImportQuestionsRequest{
		SubjectID: subjectID,
		Documents: documents,
		AnswerKey: c.PostForm("answers"),
		Delimiter: c.PostForm("delimiter"),
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Questions imported", "subject_id", subjectID, "created", response.Created)
	c.JSON(http.StatusCreated, response)
}

// SetQuestionActive enables or disables a question for selection
// @Summary Toggle a question
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Question ID"
// @Param request body services.SetActiveRequest true "Active flag"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse "Question not found"
// @Router /admin/questions/{id}/active [patch]
func (h *AdminHandler) SetQuestionActive(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		details := "active is required"
		if err != nil {
			details = err.Error()
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: details,
		})
		return
	}

	if err := h.questions.SetActive(c.Request.Context(), id, *req.Active); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Question updated"})
}

// ===== EXPORT =====

// ExportSessions streams the results workbook
// @Summary Export session results
// @Tags admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param status query string false "Session status"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD), inclusive"
// @Success 200 {file} file
// @Router /admin/exports/sessions [get]
func (h *AdminHandler) ExportSessions(c *gin.Context) {
	filters, err := sessionFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid filter",
			Details: err.Error(),
		})
		return
	}

	file, name, err := h.exports.Sessions(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Type", export.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Status(http.StatusOK)
	if err := file.Write(c.Writer); err != nil {
		h.LogError(c, err, "Failed to write workbook")
	}
}

// readFormFile returns nil when the field is absent
func readFormFile(c *gin.Context, field string) ([]byte, error) {
	header, err := c.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if header.Size > MaxDocumentSize {
		return nil, fmt.Errorf("document exceeds %d bytes", MaxDocumentSize)
	}

	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, MaxDocumentSize))
}

func sessionFilters(c *gin.Context) (repositories.SessionFilters, error) {
	var filters repositories.SessionFilters

	if status := c.Query("status"); status != "" {
		s := models.SessionStatus(status)
		switch s {
		case models.SessionNotStarted, models.SessionInProgress, models.SessionSubmitted, models.SessionGraded:
		default:
			return filters, fmt.Errorf("unknown status %q", status)
		}
		filters.Status = &s
	}
	if from := c.Query("from"); from != "" {
		t, err := time.ParseInLocation(dateLayout, from, time.Local)
		if err != nil {
			return filters, fmt.Errorf("from: %w", err)
		}
		filters.DateFrom = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.ParseInLocation(dateLayout, to, time.Local)
		if err != nil {
			return filters, fmt.Errorf("to: %w", err)
		}
		end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		filters.DateTo = &end
	}
	return filters, nil
}
