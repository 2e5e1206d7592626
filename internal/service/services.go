package service

import (
	"context"

	"github.com/yeonsu-dev/stagepass/internal/auth"
	redisx "github.com/yeonsu-dev/stagepass/internal/redis"
	"github.com/yeonsu-dev/stagepass/internal/repository"
	redisrepo "github.com/yeonsu-dev/stagepass/internal/repository/redis"
	"github.com/yeonsu-dev/stagepass/internal/service/catalog"
	"github.com/yeonsu-dev/stagepass/internal/service/query"
	"github.com/yeonsu-dev/stagepass/internal/service/reservation"
	"github.com/yeonsu-dev/stagepass/internal/service/users"
)

type Services struct {
	Users       *users.Service
	Catalog     *catalog.Service
	Reservation *reservation.Service
	Query       *query.Service
}

type Config struct {
	Users       users.Config
	Catalog     catalog.Config
	Reservation reservation.Config
}

// pubsubNotifier adapts the Redis change feed to the reservation engine's
// Notifier seam.
type pubsubNotifier struct {
	pubsub *redisx.ShowsPubSub
}

func (n pubsubNotifier) ShowChanged(ctx context.Context, showID int64) {
	_ = n.pubsub.PublishShowChanged(ctx, showID)
}

func NewServices(
	store repository.Store,
	cache *redisrepo.Cache,
	pubsub *redisx.ShowsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	tokens *auth.TokenManager,
	retryable reservation.IsRetryable,
	cfg Config,
) *Services {
	var notifier reservation.Notifier
	if pubsub != nil {
		notifier = pubsubNotifier{pubsub: pubsub}
	}

	return &Services{
		Users:       users.New(store, tokens, cfg.Users),
		Catalog:     catalog.New(store, cache, cfg.Catalog),
		Reservation: reservation.New(store, notifier, limiter, retryable, cfg.Reservation),
		Query:       query.New(store),
	}
}
