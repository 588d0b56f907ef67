package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/edforge/test-session-service/internal/models"
	"github.com/edforge/test-session-service/internal/repositories"
)

// ReportService exports a completed session as an xlsx workbook.
type ReportService interface {
	ExportSessionReport(ctx context.Context, sessionID, userID string) ([]byte, error)
}

type reportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewReportService(repo repositories.Repository, logger *slog.Logger) ReportService {
	return &reportService{
		repo:   repo,
		logger: logger,
	}
}

func (s *reportService) ExportSessionReport(ctx context.Context, sessionID, userID string) ([]byte, error) {
	session, err := s.repo.Session().GetByID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.UserID != userID {
		return nil, NewPermissionError(userID, sessionID, "export_report", "not owned by user")
	}
	if session.Status != models.SessionCompleted {
		return nil, ErrReportNotAvailable
	}

	test, err := s.repo.Test().GetByIDWithQuestions(ctx, session.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	submissions, err := s.repo.Submission().GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get submissions: %w", err)
	}
	byQuestion := make(map[uint]*models.Submission, len(submissions))
	correct := 0
	for _, sub := range submissions {
		byQuestion[sub.QuestionID] = sub
		if sub.IsCorrect {
			correct++
		}
	}

	f := excelize.NewFile()
	sheetName := "Session Report"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"Position", "Question", "Kind", "Result", "Feedback", "Graded At",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, question := range test.Questions {
		row := []interface{}{
			question.Position,
			question.Title,
			string(question.Kind),
		}

		if sub, ok := byQuestion[question.ID]; ok {
			if sub.IsCorrect {
				row = append(row, "Correct")
			} else {
				row = append(row, "Incorrect")
			}
			if sub.Feedback != nil {
				row = append(row, *sub.Feedback)
			} else {
				row = append(row, "")
			}
			row = append(row, sub.GradedAt.Format("2006-01-02 15:04:05"))
		} else {
			row = append(row, "Not answered", "", "")
		}

		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	summaryRow := len(test.Questions) + 3
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryRow), "Score")
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryRow),
		fmt.Sprintf("%d / %d", correct, len(test.Questions)))
	if session.CompletedAt != nil {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryRow+1), "Completed At")
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryRow+1),
			session.CompletedAt.Format("2006-01-02 15:04:05"))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Session report exported",
		"session_id", sessionID,
		"user_id", userID,
		"questions", len(test.Questions))

	return buf.Bytes(), nil
}
