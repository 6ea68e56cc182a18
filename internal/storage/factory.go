package storage

import (
	"io"

	"go.uber.org/zap"

	"github.com/open-pageflow/pageflow/internal/config"
	"github.com/open-pageflow/pageflow/internal/pkg/dedupe"
	dedupe_memory "github.com/open-pageflow/pageflow/internal/pkg/dedupe/memory"
	dedupe_redis "github.com/open-pageflow/pageflow/internal/pkg/dedupe/redis"
	"github.com/open-pageflow/pageflow/internal/pkg/lock"
	lock_memory "github.com/open-pageflow/pageflow/internal/pkg/lock/memory"
	lock_redis "github.com/open-pageflow/pageflow/internal/pkg/lock/redis"
	"github.com/open-pageflow/pageflow/internal/pkg/queue"
	queue_memory "github.com/open-pageflow/pageflow/internal/pkg/queue/memory"
	queue_redis "github.com/open-pageflow/pageflow/internal/pkg/queue/redis"
	"github.com/open-pageflow/pageflow/internal/pkg/ratelimiter"
	limiter_memory "github.com/open-pageflow/pageflow/internal/pkg/ratelimiter/memory"
	limiter_redis "github.com/open-pageflow/pageflow/internal/pkg/ratelimiter/redis"
	"github.com/open-pageflow/pageflow/internal/pkg/statestore"
	state_memory "github.com/open-pageflow/pageflow/internal/pkg/statestore/memory"
	state_redis "github.com/open-pageflow/pageflow/internal/pkg/statestore/redis"
	"github.com/open-pageflow/pageflow/internal/storage/postgres"
	storage_redis "github.com/open-pageflow/pageflow/internal/storage/redis"
	"github.com/open-pageflow/pageflow/internal/storage/sqlite"
)

type Repositories struct {
	Account    AccountRepository
	Page       PageRepository
	Subscriber SubscriberRepository
	Flow       FlowRepository
	Automation AutomationRepository
	Broadcast  BroadcastRepository
	Message    MessageRepository

	RedisClient *storage_redis.Client // Pode ser nil se Redis estiver desabilitado
	EventQueue  queue.Queue
	RateLimiter ratelimiter.Limiter
	Deduper     dedupe.Deduper
	StateStore  statestore.Store
	Locks       lock.Provider
}

func NewRepositories(cfg config.Config, log *zap.Logger) (*Repositories, error) {
	log.Info("inicializando repositórios",
		zap.String("driver", cfg.Storage.Driver),
	)

	repos := &Repositories{}

	// Inicializa Redis apenas se explicitamente habilitado
	if cfg.Redis.Enabled {
		log.Info("inicializando Redis...")
		storeRedis, err := storage_redis.New(cfg.Redis, log)
		if err != nil {
			log.Error("erro ao conectar com Redis", zap.Error(err))
			return nil, err
		}

		rdb := storeRedis.RDB()
		repos.RedisClient = storeRedis
		repos.EventQueue = queue_redis.NewQueue(rdb, "webhook:events")
		repos.RateLimiter = limiter_redis.NewLimiter(rdb)
		repos.Deduper = dedupe_redis.NewDeduper(rdb, "webhook:seen")
		repos.StateStore = state_redis.NewStore(rdb, "oauth:state")
		repos.Locks = lock_redis.NewProvider(rdb)
		log.Info("Redis conectado, fila, dedupe, state e locks configurados")
	} else {
		log.Info("usando implementações em memória (Redis desabilitado)")
		repos.EventQueue = queue_memory.NewQueue(cfg.Webhook.QueueBuffer)
		repos.RateLimiter = limiter_memory.NewLimiter()
		repos.Deduper = dedupe_memory.NewDeduper()
		repos.StateStore = state_memory.NewStore()
		repos.Locks = lock_memory.NewProvider()
	}

	switch cfg.Storage.Driver {
	case "sqlite", "":
		log.Debug("criando conexão com SQLite")
		db, err := sqlite.New(cfg.Storage.DataDir, log)
		if err != nil {
			log.Error("erro ao conectar com SQLite", zap.Error(err))
			return nil, err
		}

		log.Info("repositórios SQLite criados com sucesso", zap.String("data_dir", cfg.Storage.DataDir))
		repos.Account = sqlite.NewAccountRepository(db)
		repos.Page = wrapPageRepo(sqlite.NewPageRepository(db), cfg)
		repos.Subscriber = sqlite.NewSubscriberRepository(db)
		repos.Flow = sqlite.NewFlowRepository(db)
		repos.Automation = sqlite.NewAutomationRepository(db)
		repos.Broadcast = sqlite.NewBroadcastRepository(db)
		repos.Message = sqlite.NewMessageRepository(db)
		return repos, nil

	case "postgres":
		log.Debug("criando conexão com PostgreSQL")
		db, err := postgres.New(cfg.DB, log)
		if err != nil {
			log.Error("erro ao conectar com PostgreSQL", zap.Error(err))
			return nil, err
		}

		log.Info("repositórios PostgreSQL criados com sucesso")
		repos.Account = postgres.NewAccountRepository(db)
		repos.Page = wrapPageRepo(postgres.NewPageRepository(db), cfg)
		repos.Subscriber = postgres.NewSubscriberRepository(db)
		repos.Flow = postgres.NewFlowRepository(db)
		repos.Automation = postgres.NewAutomationRepository(db)
		repos.Broadcast = postgres.NewBroadcastRepository(db)
		repos.Message = postgres.NewMessageRepository(db)
		return repos, nil

	default:
		log.Error("driver de storage desconhecido",
			zap.String("driver", cfg.Storage.Driver),
		)
		return nil, &ErrUnknownDriver{Driver: cfg.Storage.Driver}
	}
}

// Close libera os recursos de infraestrutura: goroutines de limpeza das
// implementações em memória e a conexão Redis quando houver.
func (r *Repositories) Close() error {
	var firstErr error
	for _, c := range []any{r.Deduper, r.StateStore, r.EventQueue} {
		if closer, ok := c.(io.Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	if r.RedisClient != nil {
		if err := r.RedisClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func wrapPageRepo(inner PageRepository, cfg config.Config) PageRepository {
	if cfg.Security.TokenEncKey == "" {
		return inner
	}
	return NewEncryptedPageRepository(inner, cfg.Security.TokenEncKey)
}

type ErrUnknownDriver struct {
	Driver string
}

func (e *ErrUnknownDriver) Error() string {
	return "storage: driver desconhecido: " + e.Driver
}
