package audit

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// queueSize bounds the write-behind buffer. When it fills, entries are
// dropped with a warning rather than blocking trading operations.
const queueSize = 256

// Service records audit entries asynchronously. Record never fails and
// never blocks the caller; persistence happens on a background worker.
type Service struct {
	repo  *Repository
	queue chan *Log
	done  chan struct{}
	once  sync.Once
	log   zerolog.Logger
}

// NewService creates the audit service and starts its worker
func NewService(repo *Repository, log zerolog.Logger) *Service {
	s := &Service{
		repo:  repo,
		queue: make(chan *Log, queueSize),
		done:  make(chan struct{}),
		log:   log.With().Str("service", "audit").Logger(),
	}

	go s.worker()
	return s
}

// Record queues one audit entry. Values are serialized to JSON; a nil
// value leaves the column empty.
func (s *Service) Record(action, entityType string, entityID int64, before, after interface{}) {
	entry := &Log{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		OldValue:   marshal(s.log, before),
		NewValue:   marshal(s.log, after),
		CreatedAt:  time.Now().UTC(),
	}

	select {
	case s.queue <- entry:
	default:
		s.log.Warn().
			Str("action", action).
			Str("entity_type", entityType).
			Msg("Audit queue full, entry dropped")
	}
}

// Close stops accepting entries and flushes the queue
func (s *Service) Close() {
	s.once.Do(func() {
		close(s.queue)
		<-s.done
	})
}

func (s *Service) worker() {
	defer close(s.done)

	for entry := range s.queue {
		if err := s.repo.Create(entry); err != nil {
			s.log.Error().
				Err(err).
				Str("action", entry.Action).
				Msg("Failed to persist audit entry")
		}
	}
}

func marshal(log zerolog.Logger, v interface{}) string {
	if v == nil {
		return ""
	}

	data, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to serialize audit value")
		return ""
	}

	return string(data)
}
