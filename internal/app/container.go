// Package app wires the bounded contexts together into a runnable service.
package app

import (
	"context"
	"fmt"
	"log/slog"

	availabilityServices "github.com/caniken03/vioconcierge/internal/availability/application/services"
	calendarApp "github.com/caniken03/vioconcierge/internal/calendar/application"
	calendarDomain "github.com/caniken03/vioconcierge/internal/calendar/domain"
	"github.com/caniken03/vioconcierge/internal/calendar/infrastructure/bookingapi"
	"github.com/caniken03/vioconcierge/internal/calendar/infrastructure/schedulinglink"
	notificationApp "github.com/caniken03/vioconcierge/internal/notification/application"
	notificationDomain "github.com/caniken03/vioconcierge/internal/notification/domain"
	"github.com/caniken03/vioconcierge/internal/notification/infrastructure/channels"
	"github.com/caniken03/vioconcierge/internal/notification/infrastructure/tokenstore"
	"github.com/caniken03/vioconcierge/internal/rescheduling/application/commands"
	reschedulingServices "github.com/caniken03/vioconcierge/internal/rescheduling/application/services"
	"github.com/caniken03/vioconcierge/internal/rescheduling/application/workflow"
	reschedulingDomain "github.com/caniken03/vioconcierge/internal/rescheduling/domain"
	reschedulingPersistence "github.com/caniken03/vioconcierge/internal/rescheduling/infrastructure/persistence"
	"github.com/caniken03/vioconcierge/internal/responsiveness/application/consumers"
	responsivenessServices "github.com/caniken03/vioconcierge/internal/responsiveness/application/services"
	responsivenessDomain "github.com/caniken03/vioconcierge/internal/responsiveness/domain"
	sharedApplication "github.com/caniken03/vioconcierge/internal/shared/application"
	"github.com/caniken03/vioconcierge/internal/shared/infrastructure/eventbus"
	"github.com/caniken03/vioconcierge/internal/shared/infrastructure/migrations"
	"github.com/caniken03/vioconcierge/internal/shared/infrastructure/outbox"
	sharedPersistence "github.com/caniken03/vioconcierge/internal/shared/infrastructure/persistence"
	"github.com/caniken03/vioconcierge/pkg/config"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Infrastructure
	DB          *pgxpool.Pool
	RedisClient *redis.Client

	// Repositories
	RequestRepo reschedulingDomain.RequestRepository
	ContactRepo reschedulingDomain.ContactRepository
	TenantRepo  reschedulingDomain.TenantConfigRepository
	CallLogRepo reschedulingDomain.CallLogRepository
	OutboxRepo  outbox.Repository

	// Shared plumbing
	UnitOfWork      sharedApplication.UnitOfWork
	EventPublisher  eventbus.Publisher
	OutboxProcessor *outbox.Processor

	// Calendar
	CalendarRegistry *calendarApp.ProviderRegistry
	CalendarWriter   *calendarApp.BookingWriter

	// Notification
	TokenStore      notificationDomain.TokenStore
	TokenService    *notificationApp.TokenService
	DispatchService *notificationApp.DispatchService

	// Services
	SlotGenerator   *availabilityServices.SlotGenerator
	SlotFinder      *reschedulingServices.SlotFinder
	Scorer          *responsivenessServices.Scorer
	ExpirySweeper   *reschedulingServices.ExpirySweeper
	ReminderSweeper *reschedulingServices.ReminderSweeper

	// Workflow
	Engine *workflow.Engine

	// Command handlers
	CreateRequest           *commands.CreateRequestHandler
	ProcessWorkflow         *commands.ProcessWorkflowHandler
	ConfirmReschedule       *commands.ConfirmRescheduleHandler
	CancelRequest           *commands.CancelRequestHandler
	ProcessCustomerResponse *commands.ProcessCustomerResponseHandler
	RecordCallOutcome       *commands.RecordCallOutcomeHandler
}

// NewContainer builds the production container: PostgreSQL persistence, a
// Redis token store, and the RabbitMQ event publisher.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	var publisher eventbus.Publisher
	if cfg.RabbitMQURL != "" {
		publisher, err = eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			pool.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
	} else {
		publisher = eventbus.NewNoopPublisher(logger)
	}

	c := &Container{
		Config:      cfg,
		Logger:      logger,
		DB:          pool,
		RedisClient: redisClient,

		RequestRepo: reschedulingPersistence.NewPostgresRequestRepository(pool),
		ContactRepo: reschedulingPersistence.NewPostgresContactRepository(pool),
		TenantRepo:  reschedulingPersistence.NewPostgresTenantRepository(pool),
		CallLogRepo: reschedulingPersistence.NewPostgresCallLogRepository(pool),
		OutboxRepo:  outbox.NewPostgresRepository(pool),

		UnitOfWork:     sharedPersistence.NewPostgresUnitOfWork(pool),
		EventPublisher: publisher,
		TokenStore:     tokenstore.NewRedisStore(redisClient),
	}

	if err := c.wire(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// NewLocalContainer builds an in-memory container: no external services,
// memory repositories, and an in-process event bus in place of RabbitMQ.
// Used for local mode and tests.
func NewLocalContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	bus := eventbus.NewInProcessEventBus(logger)

	c := &Container{
		Config: cfg,
		Logger: logger,

		RequestRepo: reschedulingPersistence.NewMemoryRequestRepository(),
		ContactRepo: reschedulingPersistence.NewMemoryContactRepository(),
		TenantRepo:  reschedulingPersistence.NewMemoryTenantRepository(),
		CallLogRepo: reschedulingPersistence.NewMemoryCallLogRepository(),
		OutboxRepo:  outbox.NewMemoryRepository(),

		UnitOfWork:     sharedPersistence.NewNoopUnitOfWork(),
		EventPublisher: bus,
		TokenStore:     tokenstore.NewMemoryStore(),
	}

	if err := c.wire(); err != nil {
		return nil, err
	}

	bus.RegisterConsumer(consumers.NewPatternConsumer(
		contactStatsSource{contacts: c.ContactRepo},
		c.Scorer,
		logger,
	))
	return c, nil
}

// contactStatsSource adapts the contact repository to the narrow read the
// responsiveness consumer needs.
type contactStatsSource struct {
	contacts reschedulingDomain.ContactRepository
}

func (s contactStatsSource) Stats(ctx context.Context, contactID, tenantID uuid.UUID) (responsivenessDomain.ContactStats, error) {
	contact, err := s.contacts.FindByID(ctx, contactID, tenantID)
	if err != nil {
		return responsivenessDomain.ContactStats{}, err
	}
	return contact.Stats, nil
}

// wire assembles the services and handlers on top of the chosen
// infrastructure.
func (c *Container) wire() error {
	cfg := c.Config

	// Calendar providers, each behind a circuit breaker.
	c.CalendarRegistry = calendarApp.NewProviderRegistry()
	c.CalendarRegistry.Register(calendarDomain.ProviderBookingAPI, func() (calendarDomain.Provider, error) {
		client := bookingapi.NewClient(cfg.BookingAPIBaseURL, cfg.CalendarTimeout, c.Logger)
		return calendarApp.NewResilientProvider(client, calendarApp.DefaultBreakerConfig(), c.Logger), nil
	})
	c.CalendarRegistry.Register(calendarDomain.ProviderSchedulingLink, func() (calendarDomain.Provider, error) {
		client := schedulinglink.NewClient(cfg.SchedLinkBaseURL, cfg.CalendarTimeout, c.Logger)
		return calendarApp.NewResilientProvider(client, calendarApp.DefaultBreakerConfig(), c.Logger), nil
	})
	c.CalendarWriter = calendarApp.NewBookingWriter(c.CalendarRegistry)

	// Slot generation.
	generatorConfig := availabilityServices.DefaultGeneratorConfig()
	if cfg.SlotSearchDays > 0 {
		generatorConfig.SearchDays = cfg.SlotSearchDays
	}
	c.SlotGenerator = availabilityServices.NewSlotGenerator(generatorConfig)
	c.SlotFinder = reschedulingServices.NewSlotFinder(c.SlotGenerator, c.CalendarRegistry, c.Logger)

	// Responsiveness.
	c.Scorer = responsivenessServices.NewScorer()

	// Notification.
	c.TokenService = notificationApp.NewTokenService(c.TokenStore, cfg.TokenTTL, cfg.ReminderTokenTTL, c.Logger)
	adapters, err := c.buildChannelAdapters()
	if err != nil {
		return err
	}
	c.DispatchService = notificationApp.NewDispatchService(c.TokenService, adapters, c.Logger)

	// Workflow engine.
	processors := []workflow.StageProcessor{
		workflow.NewCustomerRequestProcessor(c.Logger),
		workflow.NewAvailabilityCheckProcessor(c.SlotFinder, c.Logger),
		workflow.NewConfirmationProcessor(c.DispatchService, c.Scorer, c.Logger),
		workflow.NewCalendarUpdateProcessor(c.CalendarWriter, c.Logger),
	}
	c.Engine = workflow.NewEngine(processors, c.RequestRepo, c.OutboxRepo, c.UnitOfWork, c.Logger)

	// Command handlers.
	c.CreateRequest = commands.NewCreateRequestHandler(c.RequestRepo, c.ContactRepo, c.TenantRepo, c.OutboxRepo, c.UnitOfWork, c.Engine, c.Logger)
	c.ProcessWorkflow = commands.NewProcessWorkflowHandler(c.RequestRepo, c.ContactRepo, c.TenantRepo, c.UnitOfWork, c.Engine, c.Logger)
	c.ConfirmReschedule = commands.NewConfirmRescheduleHandler(c.RequestRepo, c.ContactRepo, c.TenantRepo, c.OutboxRepo, c.UnitOfWork, c.Engine, c.Logger)
	c.CancelRequest = commands.NewCancelRequestHandler(c.RequestRepo, c.ContactRepo, c.OutboxRepo, c.UnitOfWork, c.Logger)
	c.ProcessCustomerResponse = commands.NewProcessCustomerResponseHandler(c.TokenService, c.ConfirmReschedule, c.CancelRequest, c.Logger)
	c.RecordCallOutcome = commands.NewRecordCallOutcomeHandler(c.ContactRepo, c.CallLogRepo, c.UnitOfWork, c.Logger)

	// Background services.
	c.ExpirySweeper = reschedulingServices.NewExpirySweeper(c.RequestRepo, c.ContactRepo, c.OutboxRepo, c.UnitOfWork, cfg.RequestRetention, c.Logger)
	c.ReminderSweeper = reschedulingServices.NewReminderSweeper(c.RequestRepo, c.ContactRepo, c.TenantRepo, c.DispatchService, c.OutboxRepo, c.UnitOfWork, cfg.ReminderAfter, c.Logger)
	c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, outbox.ProcessorConfig{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxRetries:   cfg.OutboxMaxRetries,
	}, c.Logger)

	return nil
}

// buildChannelAdapters creates the delivery adapters for every configured
// channel. Email is always built; SMS and voice only when a gateway is set.
func (c *Container) buildChannelAdapters() ([]notificationDomain.Adapter, error) {
	cfg := c.Config

	email, err := channels.NewEmailAdapter(channels.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		LinkBase: cfg.ResponseLinkBase,
	}, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("build email adapter: %w", err)
	}
	adapters := []notificationDomain.Adapter{email}

	if cfg.SMSGatewayURL != "" {
		adapters = append(adapters, channels.NewSMSAdapter(channels.SMSGatewayConfig{
			BaseURL:  cfg.SMSGatewayURL,
			APIKey:   cfg.SMSGatewayKey,
			Sender:   cfg.SMSSender,
			LinkBase: cfg.ResponseLinkBase,
		}, c.Logger))
	}
	if cfg.VoiceGatewayURL != "" {
		adapters = append(adapters, channels.NewVoiceAdapter(channels.VoiceGatewayConfig{
			BaseURL: cfg.VoiceGatewayURL,
			APIKey:  cfg.VoiceGatewayKey,
			Caller:  cfg.VoiceCaller,
		}, c.Logger))
	}
	return adapters, nil
}

// Close releases external resources.
func (c *Container) Close() {
	if c.OutboxProcessor != nil {
		c.OutboxProcessor.Stop()
	}
	if closer, ok := c.EventPublisher.(interface{ Close() error }); ok && closer != nil {
		_ = closer.Close()
	}
	if c.RedisClient != nil {
		_ = c.RedisClient.Close()
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
