package allocationservice

import (
	"context"
	"log/slog"

	"github.com/crossed-lances/tablemaster/app/eventbus"
	allocationdomain "github.com/crossed-lances/tablemaster/app/modules/allocation/domain"
	allocationmetrics "github.com/crossed-lances/tablemaster/app/modules/allocation/infrastructure/metrics"
	allocationdb "github.com/crossed-lances/tablemaster/app/modules/allocation/infrastructure/repositories"
	tournamentdb "github.com/crossed-lances/tablemaster/app/modules/tournament/infrastructure/repositories"
)

// AllocationService orchestrates allocation generation and post-generation
// edits. It is synchronous per invocation: no internal parallelism, no
// background work. Atomicity of multi-record updates is carried by the
// repository's transaction boundary.
type AllocationService struct {
	repo           allocationdb.Repository
	tournamentRepo tournamentdb.Repository
	eventBus       eventbus.EventBus
	logger         *slog.Logger
	metrics        allocationmetrics.Metrics
	calculator     *allocationdomain.CostCalculator
}

// NewAllocationService creates an AllocationService.
func NewAllocationService(
	repo allocationdb.Repository,
	tournamentRepo tournamentdb.Repository,
	bus eventbus.EventBus,
	logger *slog.Logger,
	metrics allocationmetrics.Metrics,
) *AllocationService {
	return &AllocationService{
		repo:           repo,
		tournamentRepo: tournamentRepo,
		eventBus:       bus,
		logger:         logger,
		metrics:        metrics,
		calculator:     allocationdomain.NewCostCalculator(),
	}
}

// publishEvent marshals and publishes a payload. Publication failures are
// logged and swallowed: the engine's result is already committed, and the
// notification surface must not fail the request.
func (s *AllocationService) publishEvent(ctx context.Context, topic string, payload interface{}) {
	if s.eventBus == nil {
		return
	}
	msg, err := eventbus.NewEventMessage(payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to marshal event",
			slog.String("topic", topic),
			slog.Any("error", err),
		)
		return
	}
	if err := s.eventBus.Publish(topic, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			slog.String("topic", topic),
			slog.String("message_id", msg.UUID),
			slog.Any("error", err),
		)
		return
	}
	s.logger.DebugContext(ctx, "Event published",
		slog.String("topic", topic),
		slog.String("message_id", msg.UUID),
	)
}

var _ Service = (*AllocationService)(nil)
