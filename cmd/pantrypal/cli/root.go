package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joeshaw/envdecode"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pantrypal"
	"pantrypal/app"
	"pantrypal/events"
	"pantrypal/gateway"
	"pantrypal/inventory"
	"pantrypal/session"
	"pantrypal/slack"
	"pantrypal/suggest"
	"pantrypal/suggest/bedrock"
	"pantrypal/suggest/mock"
	"pantrypal/suggest/ollama"
)

type globalFlags struct {
	logLevel string
	debug    bool
	user     string
	driver   string
	backend  string
}

// env is everything a command needs once setup has run.
type env struct {
	flags    *globalFlags
	deps     app.Deps
	app      *app.App
	registry *prometheus.Registry
	tracer   trace.Tracer
	cleanup  []func() error
}

// rootCmd builds the command tree. The returned env must be closed after Execute.
func rootCmd() (*cobra.Command, *env) {
	flags := &globalFlags{}
	e := &env{flags: flags}

	cmd := &cobra.Command{
		Use:           "pantrypal",
		Short:         "Track a household pantry and shopping cart",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd.Context())
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.BoolVar(&flags.debug, "debug", false, "Log every response dumped with go-spew")
	pf.StringVar(&flags.user, "user", "", "User id (overrides PANTRY_USER_ID)")
	pf.StringVar(&flags.driver, "gateway", "", "Document store: memory, file, sqlite, postgres, s3 (overrides GATEWAY_DRIVER)")
	pf.StringVar(&flags.backend, "backend", "", "Suggestion backend: bedrock, ollama, mock (overrides SUGGEST_BACKEND)")

	cmd.AddCommand(
		collectionCmd(e, "pantry", pantrypal.CollectionPantries),
		collectionCmd(e, "cart", pantrypal.CollectionCarts),
		transferCmd(e),
		suggestCmd(e),
		importCmd(e),
		notifyCmd(e),
		serveCmd(e),
	)
	return cmd, e
}

// decodeEnv is envdecode.Decode that tolerates a struct with nothing set.
func decodeEnv(target any) error {
	if err := envdecode.Decode(target); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("SETUP: Failed to decode: %w", err)
	}
	return nil
}

func (e *env) setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(e.flags.logLevel)})))

	var (
		modelConfig   pantrypal.ModelConfig
		appConfig     pantrypal.AppConfig
		gatewayConfig pantrypal.GatewayConfig
		notifyConfig  pantrypal.NotifyConfig
		userConfig    pantrypal.UserConfig
	)
	for _, target := range []any{&modelConfig, &appConfig, &gatewayConfig, &notifyConfig, &userConfig} {
		if err := decodeEnv(target); err != nil {
			return err
		}
	}
	if e.flags.driver != "" {
		gatewayConfig.Driver = e.flags.driver
	}
	if e.flags.backend != "" {
		appConfig.SuggestBackend = e.flags.backend
	}
	if e.flags.user != "" {
		userConfig.ID = e.flags.user
	}

	tracerProvider, meterProvider, otelShutdown, err := pantrypal.InitOtel(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	e.cleanup = append(e.cleanup, func() error { return otelShutdown(context.Background()) })
	e.tracer = tracerProvider.Tracer(pantrypal.TracerNameCLI)

	store, closeStore, err := gateway.OpenStore(ctx, gatewayConfig)
	if err != nil {
		return err
	}
	e.cleanup = append(e.cleanup, closeStore)

	e.registry = prometheus.NewRegistry()
	e.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := gateway.NewMetrics(e.registry)
	if err != nil {
		return fmt.Errorf("failed to register gateway metrics: %w", err)
	}

	gen, err := newGenerator(ctx, appConfig, modelConfig)
	if err != nil {
		return err
	}

	logger, err := e.mutationLogger(appConfig.MutationLogPath, userConfig.ID)
	if err != nil {
		return err
	}

	opts := inventory.Options{
		Logger: logger,
		Tracer: tracerProvider.Tracer(pantrypal.TracerNameInventory),
		Meter:  meterProvider.Meter(pantrypal.TracerNameInventory),
	}
	if appConfig.NATSURL != "" {
		pub, err := events.Connect(appConfig.NATSURL, appConfig.NATSSubjectPrefix)
		if err != nil {
			return err
		}
		e.cleanup = append(e.cleanup, func() error { pub.Close(); return nil })
		opts.Notifier = pub
	}

	deps := app.Deps{
		Gateway:   gateway.Instrument(gateway.New(store), metrics),
		Generator: gen,
		Options:   opts,
	}
	if notifyConfig.SlackWebhookURL != "" {
		deps.Slack = slack.NewClient(notifyConfig.SlackWebhookURL, http.DefaultClient)
		deps.SlackChannel = notifyConfig.SlackChannel
	}
	e.deps = deps
	e.app = app.New(deps)

	if userConfig.ID != "" {
		id := session.Identity{ID: userConfig.ID, Email: userConfig.Email, DisplayName: userConfig.DisplayName}
		if err := e.app.SignIn(ctx, id); err != nil {
			return err
		}
	}
	slog.Debug("SETUP: Ready", "gateway", gatewayConfig.Driver, "backend", appConfig.SuggestBackend, "user_id", userConfig.ID)
	return nil
}

func (e *env) mutationLogger(dir, userID string) (pantrypal.MutationLogger, error) {
	if dir == "" {
		return pantrypal.NewNoOpMutationLogger(), nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create mutation log dir: %w", err)
	}
	f, err := os.OpenFile(pantrypal.NewMutationLogFilePath(dir, userID), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open mutation log file: %w", err)
	}
	logger := pantrypal.NewFileMutationLogger(f)
	e.cleanup = append(e.cleanup, func() error {
		return errors.Join(logger.Flush(), f.Close())
	})
	return logger, nil
}

// close runs cleanups in reverse order.
func (e *env) close() error {
	var errs []error
	for i := len(e.cleanup) - 1; i >= 0; i-- {
		errs = append(errs, e.cleanup[i]())
	}
	e.cleanup = nil
	return errors.Join(errs...)
}

func newGenerator(ctx context.Context, appConfig pantrypal.AppConfig, modelConfig pantrypal.ModelConfig) (suggest.Generator, error) {
	switch appConfig.SuggestBackend {
	case "mock":
		return mock.NewGenerator(), nil
	case "ollama":
		return ollama.NewGenerator(ollama.Opts{
			BaseEndpoint: appConfig.BaseOllamaEndpoint,
			ModelID:      modelConfig.ModelID,
			HTTPClient:   http.DefaultClient,
		})
	case "bedrock", "":
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return bedrock.NewGenerator(bedrockruntime.NewFromConfig(awsCfg), bedrock.Options{
			ModelID:     modelConfig.ModelID,
			MaxTokens:   modelConfig.MaxTokens,
			Temperature: modelConfig.Temperature,
			TopP:        modelConfig.TopP,
		}), nil
	default:
		return nil, fmt.Errorf("unknown suggestion backend %q", appConfig.SuggestBackend)
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// run dispatches req and prints the response as indented JSON. The response is printed even
// when the action fails so remote failures stay visible.
func (e *env) run(cmd *cobra.Command, req app.Request) error {
	tracer := e.tracer
	if tracer == nil {
		tracer = otel.Tracer(pantrypal.TracerNameCLI)
	}
	ctx, span := tracer.Start(cmd.Context(), "CLI."+cmd.CommandPath(), trace.WithAttributes(
		attribute.String("action", req.Action),
		attribute.String("collection", req.Collection),
	))
	defer span.End()

	resp, err := e.app.Handle(ctx, req)
	if err != nil {
		span.RecordError(err)
	}
	if e.flags.debug {
		slog.Info("RESULT: Response", "action", req.Action, "dump", pantrypal.Sdump(resp))
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(resp); encErr != nil {
		return errors.Join(err, encErr)
	}
	return err
}
