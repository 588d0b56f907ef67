package services

import (
	"log/slog"
	"time"

	"github.com/edforge/test-session-service/internal/cache"
	"github.com/edforge/test-session-service/internal/events"
	"github.com/edforge/test-session-service/internal/grading"
	"github.com/edforge/test-session-service/internal/repositories"
	"github.com/edforge/test-session-service/internal/utils"
)

type serviceManager struct {
	resolver   ResolverService
	session    SessionService
	evaluation EvaluationService
	report     ReportService
}

// NewServiceManager wires the full service graph from its external
// collaborators.
func NewServiceManager(
	repo repositories.Repository,
	gradingClient grading.Client,
	publisher events.EventPublisher,
	cacheService cache.CacheService,
	logger *slog.Logger,
	validator *utils.Validator,
	idleTimeout time.Duration,
) ServiceManager {
	evaluation := NewEvaluationService(gradingClient, logger)
	return &serviceManager{
		resolver:   NewResolverService(repo, publisher, logger, validator),
		session:    NewSessionService(repo, evaluation, publisher, cacheService, logger, idleTimeout),
		evaluation: evaluation,
		report:     NewReportService(repo, logger),
	}
}

func (m *serviceManager) Resolver() ResolverService     { return m.resolver }
func (m *serviceManager) Session() SessionService       { return m.session }
func (m *serviceManager) Evaluation() EvaluationService { return m.evaluation }
func (m *serviceManager) Report() ReportService         { return m.report }
