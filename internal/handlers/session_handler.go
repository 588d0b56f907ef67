package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edforge/test-session-service/internal/services"
	"github.com/edforge/test-session-service/internal/utils"
)

type SessionHandler struct {
	BaseHandler
	resolverService services.ResolverService
	sessionService  services.SessionService
	reportService   services.ReportService
	validator       *utils.Validator
	redirects       RedirectTargets
}

func NewSessionHandler(
	resolverService services.ResolverService,
	sessionService services.SessionService,
	reportService services.ReportService,
	validator *utils.Validator,
	logger utils.Logger,
	redirects RedirectTargets,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler:     NewBaseHandler(logger),
		resolverService: resolverService,
		sessionService:  sessionService,
		reportService:   reportService,
		validator:       validator,
		redirects:       redirects,
	}
}

// Resolve turns a topic into the session the user should drive.
func (h *SessionHandler) Resolve(c *gin.Context) {
	var req services.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := CurrentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Resolving test session", "topic_id", req.TopicID)

	resp, err := h.resolverService.Resolve(c.Request.Context(), req.TopicID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if resp.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// CreateSession starts a session for an explicitly chosen test.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req services.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
		return
	}

	userID, ok := CurrentUserID(c)
	if !ok {
		return
	}

	resp, err := h.resolverService.CreateForTest(c.Request.Context(), req.TestID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if resp.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// GetSession returns the full resumable view of a session.
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	userID, ok := CurrentUserID(c)
	if !ok {
		return
	}

	view, err := h.sessionService.Start(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// SubmitAnswer grades the answer for the session's current question.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}
	questionID := ParseUintParam(c, "question_id")
	if questionID == 0 {
		return
	}

	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := CurrentUserID(c)
	if !ok {
		return
	}

	result, err := h.sessionService.Submit(c.Request.Context(), sessionID, questionID, req.Payload, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportReport streams the xlsx report of a completed session.
func (h *SessionHandler) ExportReport(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	userID, ok := CurrentUserID(c)
	if !ok {
		return
	}

	data, err := h.reportService.ExportSessionReport(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="session-report.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// handleServiceError maps service errors onto HTTP statuses and the
// redirect contract.
func (h *SessionHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message:  "User not authenticated",
			Code:     "unauthenticated",
			Redirect: loginRedirect(h.redirects.LoginURL, c.Request.URL.RequestURI()),
		})

	case services.IsUnauthorized(err):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: err.Error(),
			Code:    "forbidden",
		})

	case errors.Is(err, services.ErrNoTestAvailable):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message:  "No test available for this topic",
			Code:     "no_test_available",
			Redirect: h.redirects.TestListingURL,
		})

	case errors.Is(err, services.ErrSessionCreationFailed):
		h.LogError(c, err, "Session creation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message:  "Could not create test session",
			Code:     "session_creation_failed",
			Redirect: h.redirects.ErrorPageURL,
		})

	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: err.Error(),
			Code:    "not_found",
		})

	case errors.Is(err, services.ErrSessionCompleted),
		errors.Is(err, services.ErrSessionNotActive),
		errors.Is(err, services.ErrDuplicateSubmission),
		errors.Is(err, services.ErrQuestionNotCurrent),
		errors.Is(err, services.ErrReportNotAvailable):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: err.Error(),
			Code:    "conflict",
		})

	case errors.Is(err, services.ErrInvalidPayload),
		errors.Is(err, services.ErrAnswerNotReady):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: err.Error(),
			Code:    "invalid_answer",
		})

	case services.IsRecoverable(err):
		h.LogError(c, err, "Answer evaluation failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Message: "Answer evaluation failed, the submission may be retried",
			Code:    "evaluation_failed",
		})

	default:
		h.LogError(c, err, "Unhandled service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message:  "Internal server error",
			Redirect: h.redirects.ErrorPageURL,
		})
	}
}
