package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edforge/test-session-service/internal/services"
	"github.com/edforge/test-session-service/internal/utils"
)

type TestHandler struct {
	BaseHandler
	resolverService services.ResolverService
}

func NewTestHandler(resolverService services.ResolverService, logger utils.Logger) *TestHandler {
	return &TestHandler{
		BaseHandler:     NewBaseHandler(logger),
		resolverService: resolverService,
	}
}

// TestSummary is the listing form of a test.
type TestSummary struct {
	ID            uint   `json:"id"`
	TopicID       uint   `json:"topic_id"`
	Title         string `json:"title"`
	QuestionCount int    `json:"question_count"`
}

// ListTests returns the topic's tests in the stored order.
func (h *TestHandler) ListTests(c *gin.Context) {
	topicID := ParseUintQuery(c, "topic_id")
	if topicID == 0 {
		return
	}

	tests, err := h.resolverService.ListTests(c.Request.Context(), topicID)
	if err != nil {
		h.LogError(c, err, "Failed to list tests", "topic_id", topicID)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Failed to list tests",
		})
		return
	}

	summaries := make([]TestSummary, 0, len(tests))
	for _, test := range tests {
		summaries = append(summaries, TestSummary{
			ID:            test.ID,
			TopicID:       test.TopicID,
			Title:         test.Title,
			QuestionCount: len(test.Questions),
		})
	}

	c.JSON(http.StatusOK, gin.H{"tests": summaries})
}
