package tracker

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/taskfocus/taskfocus/internal/database"
	"github.com/taskfocus/taskfocus/internal/focus"
	"github.com/taskfocus/taskfocus/internal/models"
	"github.com/taskfocus/taskfocus/pkg/utils"
)

// DefaultBuffer is the number of transitions queued before new ones are dropped
const DefaultBuffer = 256

// Service journals focus transitions. It observes the manager on the UI
// thread and writes to the database from its own goroutine.
type Service struct {
	repo   *database.Repository
	logger *zap.Logger
	events chan focus.Transition

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	stopOnce sync.Once
	dropped  int
}

func NewService(repo *database.Repository, logger *zap.Logger, buffer int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Service{
		repo:     repo,
		logger:   logger.Named("tracker"),
		events:   make(chan focus.Transition, buffer),
		stopChan: make(chan struct{}),
	}
}

// ObserveTransition queues t without blocking the caller
func (s *Service) ObserveTransition(t focus.Transition) {
	select {
	case s.events <- t:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
		s.logger.Warn("journal queue full, dropping transition",
			zap.String("op", string(t.Op)),
			zap.String("task", t.TaskID))
	}
}

// Start writes queued transitions until ctx is done or Stop is called.
// Transitions still queued at that point are written before it returns.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("tracker is already running")
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("journal started")

	for {
		select {
		case <-ctx.Done():
			s.drain()
			s.logger.Info("journal stopped by context")
			return ctx.Err()

		case <-s.stopChan:
			s.drain()
			s.logger.Info("journal stopped")
			return nil

		case t := <-s.events:
			s.write(t)
		}
	}
}

func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Dropped returns how many transitions were lost to a full queue
func (s *Service) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *Service) drain() {
	for {
		select {
		case t := <-s.events:
			s.write(t)
		default:
			return
		}
	}
}

func (s *Service) write(t focus.Transition) {
	if t.Err != nil {
		s.storeError(t)
		return
	}

	event := &models.SessionEvent{
		Timestamp:      t.At,
		TaskID:         t.TaskID,
		TaskName:       t.TaskName,
		Operation:      string(t.Op),
		FromState:      t.From.String(),
		ToState:        t.To.String(),
		Tier:           t.Tier.String(),
		ElapsedMs:      utils.MillisOf(t.ElapsedMs),
		CompleteOnHome: t.CompleteOnHome,
		DurationMs:     t.Took.Milliseconds(),
	}

	if err := s.repo.Create(event); err != nil {
		s.logger.Error("failed to journal transition",
			zap.String("op", event.Operation),
			zap.String("task", event.TaskID),
			zap.Error(err))
	}
}

func (s *Service) storeError(t focus.Transition) {
	errorLog := &models.ErrorLog{
		Timestamp: t.At,
		Operation: string(t.Op),
		TaskID:    t.TaskID,
		ErrorMsg:  t.Err.Error(),
	}

	if dbErr := s.repo.CreateErrorLog(errorLog); dbErr != nil {
		s.logger.Error("failed to store error in database",
			zap.Error(dbErr),
			zap.NamedError("original", t.Err))
	}
}

var _ focus.Observer = (*Service)(nil)
