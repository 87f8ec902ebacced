package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/certificate"
	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/i18n"
	"github.com/SAP-F-2025/exam-service/internal/metrics"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/rendering"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/scoring"
	"github.com/SAP-F-2025/exam-service/internal/storage"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

// ExamConfig holds the exam rules shared by the services
type ExamConfig struct {
	QuestionsPerSubject int
	Policy              scoring.Policy
	DefaultDelimiter    string
	DefaultLanguage     models.Language
	ContactPhone        string
	CertificateTemplate string
	EventsTopic         string
	ResultCacheTTL      time.Duration
	// Location formats dates in messages and exports
	Location *time.Location
}

// Dependencies are the collaborators the services are built from. Any of
// them may be nil except Storage; nil collaborators disable their feature.
type Dependencies struct {
	Storage      storage.Provider
	Cache        *cache.CacheManager
	Renderer     *rendering.Cached
	Translator   *i18n.Translator
	Publisher    events.EventPublisher
	Certificates *certificate.Dispatcher
	Metrics      *metrics.Metrics
	// Notifier publishes post-grading events in the background; nil wraps Publisher
	Notifier *events.AsyncPublisher
	// Rand seeds question selection; nil uses the runtime source
	Rand *rand.Rand
	// Now is the clock; nil uses time.Now
	Now func() time.Time
}

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	Exam ExamConfig
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	deps      Dependencies
	config    ServiceManagerConfig

	// Service instances
	sessionService   SessionService
	questionService  QuestionService
	candidateService CandidateService
	exportService    ExportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, deps Dependencies, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		deps:      deps,
		config:    config,
	}
}

// NewDefaultServiceManager creates a service manager with the default exam rules
func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, deps Dependencies) ServiceManager {
	return NewServiceManager(db, repo, logger, validator, deps, DefaultServiceManagerConfig())
}

// DefaultServiceManagerConfig returns the default exam rules
func DefaultServiceManagerConfig() ServiceManagerConfig {
	return ServiceManagerConfig{
		Exam: ExamConfig{
			QuestionsPerSubject: 10,
			Policy:              scoring.DefaultPolicy(),
			DefaultDelimiter:    "###",
			DefaultLanguage:     models.LanguageUz,
			CertificateTemplate: certificate.DefaultTemplate,
			EventsTopic:         "exam.events",
			ResultCacheTTL:      cache.SessionCacheConfig.TTL,
			Location:            time.Local,
		},
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.config.Validate(); err != nil {
		return err
	}
	if sm.deps.Storage == nil {
		return fmt.Errorf("failed to initialize services: storage provider is required")
	}

	if sm.deps.Notifier == nil && sm.deps.Publisher != nil {
		sm.deps.Notifier = events.NewAsyncPublisher(sm.deps.Publisher, 5*time.Second, sm.logger)
	}

	sm.sessionService = NewSessionService(sm.repo, sm.db, sm.logger, sm.validator, sm.deps, sm.config.Exam)
	sm.logger.Info("Session service initialized")

	sm.questionService = NewQuestionService(sm.repo, sm.db, sm.logger, sm.validator, sm.deps, sm.config.Exam)
	sm.logger.Info("Question service initialized")

	sm.candidateService = NewCandidateService(sm.repo, sm.db, sm.logger, sm.validator)
	sm.logger.Info("Candidate service initialized")

	sm.exportService = NewExportService(sm.repo, sm.db, sm.logger, sm.config.Exam.Location, sm.deps.Now)
	sm.logger.Info("Export service initialized")

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

// Service getters
func (sm *serviceManager) Session() SessionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.sessionService
}

func (sm *serviceManager) Question() QuestionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.questionService
}

func (sm *serviceManager) Candidate() CandidateService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.candidateService
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.exportService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	// Redis is optional; only a configured but unreachable cache is unhealthy
	if sm.deps.Cache != nil {
		if err := sm.deps.Cache.HealthCheck(ctx); err != nil && !errors.Is(err, cache.ErrCacheNotAvailable) {
			return err
		}
	}

	return nil
}

// Shutdown waits for pending events and certificate requests, then closes the publisher.
// Database and cache connections belong to the repository manager.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.deps.Notifier != nil {
		sm.waitFor(ctx, "events", sm.deps.Notifier.Wait)
	}
	if sm.deps.Certificates != nil {
		sm.waitFor(ctx, "certificate requests", sm.deps.Certificates.Wait)
	}

	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

func (sm *serviceManager) waitFor(ctx context.Context, what string, wait func()) {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		sm.logger.Warn("Pending "+what+" abandoned", "error", ctx.Err())
	}
}

// ===== CONFIGURATION VALIDATION =====

// Validate validates the service manager configuration
func (config *ServiceManagerConfig) Validate() error {
	var errors []string

	if config.Exam.QuestionsPerSubject <= 0 {
		errors = append(errors, "questions per subject must be positive")
	}
	if config.Exam.Policy.PassThreshold < 0 || config.Exam.Policy.PassThreshold > 100 {
		errors = append(errors, "pass threshold must be within [0,100]")
	}
	if config.Exam.DefaultDelimiter == "" {
		errors = append(errors, "default delimiter is required")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}
