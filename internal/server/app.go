// Package server wires configuration, stores, scheduling and transports into
// the processes that serve the todo API: the long-running HTTP server, the
// SQS aging worker and the two Lambda handlers.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrijs2005/gophtodo/internal/awsx"
	"github.com/dmitrijs2005/gophtodo/internal/logging"
	"github.com/dmitrijs2005/gophtodo/internal/server/aging"
	"github.com/dmitrijs2005/gophtodo/internal/server/api"
	"github.com/dmitrijs2005/gophtodo/internal/server/config"
	"github.com/dmitrijs2005/gophtodo/internal/server/httpserver"
	"github.com/dmitrijs2005/gophtodo/internal/server/metrics"
	"github.com/dmitrijs2005/gophtodo/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophtodo/internal/server/scheduler"
	"github.com/dmitrijs2005/gophtodo/internal/server/services"

	gs "github.com/dmitrijs2005/gophtodo/internal/server/grpc"
)

const (
	memoryQueueSize = 256
	agingHealthName = "aging"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	awsCfg    aws.Config
	repos     repomanager.RepositoryManager
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	scheduler scheduler.Scheduler
	queue     *aging.MemoryQueue
	todos     *services.TodoService
	profiles  *services.ProfileService
	processor *aging.Processor
	router    *api.Router
}

// NewApp builds every component named by c. Stores are opened and migrated
// here so a Lambda pays the cost once per cold start.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(c.LogBackend, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	awsCfg, err := awsx.LoadAWSConfig(ctx,
		awsx.WithRegion(c.AWSRegion),
		awsx.WithEndpoint(c.AWSEndpoint),
		awsx.WithStaticCredentials(c.AWSAccessKeyID, c.AWSSecretAccessKey),
	)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	if c.DBSecretARN != "" {
		if err := config.ResolveDatabaseDSN(ctx, c, awsx.NewSecretsManager(awsCfg)); err != nil {
			return nil, err
		}
	}

	repos, err := repomanager.New(c, awsCfg)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	app := &App{
		config:   c,
		logger:   logger,
		awsCfg:   awsCfg,
		repos:    repos,
		registry: registry,
		metrics:  m,
	}

	switch c.SchedulerBackend {
	case config.SchedulerEventBridge:
		app.scheduler = scheduler.NewEventBridge(awsx.NewScheduler(awsCfg), c.QueueARN, c.SchedulerRoleARN, c.ScheduleGroup, logger)
	default:
		app.queue = aging.NewMemoryQueue(memoryQueueSize, logger)
		app.scheduler = scheduler.NewLocal(app.queue, logger)
	}

	app.todos = services.NewTodoService(repos.Todos(), app.scheduler, logger,
		services.WithAgingDelay(c.AgingDelay),
		services.WithMetrics(m),
	)
	app.profiles = services.NewProfileService(repos.Profiles(), logger)
	app.processor = aging.NewProcessor(app.todos, logger, m)
	app.router = api.NewRouter(c.ResourceName, app.todos, app.profiles, logger, m)

	logger.Info(ctx, "app initialized",
		"store", c.StoreBackend, "scheduler", c.SchedulerBackend, "resource", c.ResourceName)

	return app, nil
}

// APIGatewayHandler serves the router behind API Gateway.
func (app *App) APIGatewayHandler() api.APIGatewayHandler {
	return api.NewAPIGatewayHandler(app.router)
}

// SQSHandler consumes the aging queue as a Lambda event source.
func (app *App) SQSHandler() aging.SQSHandler {
	return aging.NewSQSHandler(app.processor, app.config.PartialBatchResponse)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// runAll starts every task and cancels the rest as soon as one fails.
func (app *App) runAll(ctx context.Context, cancelFunc context.CancelFunc, tasks map[string]func(context.Context) error) {
	var wg sync.WaitGroup

	for name, task := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := task(ctx); err != nil {
				app.logger.Error(ctx, "task failed", "task", name, "error", err)
				cancelFunc()
			}
		}()
	}

	wg.Wait()
}

// Run serves the HTTP API and the health endpoint until a signal arrives.
// With the local scheduler the aging queue is consumed in the same process.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	health := gs.NewGRPCServer(app.config.HealthAddr, app.logger)
	httpSrv := httpserver.New(app.config.HTTPAddr, app.router, metrics.Handler(app.registry),
		app.config.SecretKey, app.config.ShutdownTimeout, app.logger)

	tasks := map[string]func(context.Context) error{
		"http":   httpSrv.Run,
		"health": health.Run,
	}
	if app.queue != nil {
		tasks["aging"] = func(ctx context.Context) error { return app.queue.Run(ctx, app.processor) }
	} else {
		health.SetServing(agingHealthName, false)
	}

	app.runAll(ctx, cancelFunc, tasks)
	app.Close(ctx)
}

// RunWorker consumes the SQS aging queue until a signal arrives.
func (app *App) RunWorker(ctx context.Context) error {

	if app.config.QueueURL == "" {
		return fmt.Errorf("worker needs a queue URL")
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting aging worker...")

	app.initSignalHandler(cancelFunc)

	health := gs.NewGRPCServer(app.config.HealthAddr, app.logger)
	health.SetServing(agingHealthName, true)
	consumer := aging.NewSQSConsumer(awsx.NewSQS(app.awsCfg), app.config.QueueURL, app.config.QueueWaitTime, app.processor, app.logger)

	app.runAll(ctx, cancelFunc, map[string]func(context.Context) error{
		"health": health.Run,
		"sqs":    consumer.Run,
	})
	app.Close(ctx)
	return nil
}

// Close stops local timers and releases store connections.
func (app *App) Close(ctx context.Context) {
	if l, ok := app.scheduler.(*scheduler.Local); ok {
		l.Stop()
	}
	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "close store", "error", err)
	}
}
