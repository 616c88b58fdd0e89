package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joeshaw/envdecode"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pantrypal"
	"pantrypal/app"
	"pantrypal/events"
	"pantrypal/gateway"
	"pantrypal/inventory"
	"pantrypal/slack"
	"pantrypal/suggest/bedrock"
)

func main() {
	ctx := context.Background()

	var modelConfig pantrypal.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}
	var appConfig pantrypal.AppConfig
	if err := envdecode.Decode(&appConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}
	var gatewayConfig pantrypal.GatewayConfig
	if err := envdecode.Decode(&gatewayConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}
	var notifyConfig pantrypal.NotifyConfig
	if err := envdecode.Decode(&notifyConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	store, closeStore, err := gateway.OpenStore(ctx, gatewayConfig)
	if err != nil {
		log.Fatalf("SETUP: Failed to open document store: %s", err)
	}
	defer closeStore() // nolint: errcheck

	brc, err := newBedrockRuntimeClient(ctx)
	if err != nil {
		log.Fatalf("SETUP: Failed to create Bedrock client: %s", err)
	}
	gen := bedrock.NewGenerator(brc, bedrock.Options{
		ModelID:     modelConfig.ModelID,
		MaxTokens:   modelConfig.MaxTokens,
		Temperature: modelConfig.Temperature,
		TopP:        modelConfig.TopP,
	})

	tracerProvider, meterProvider, otelShutdown, err := pantrypal.InitOtel(ctx)
	if err != nil {
		log.Fatalf("SETUP: Failed to initialize OpenTelemetry: %s", err)
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	opts := inventory.Options{
		Logger: pantrypal.NewStdoutMutationLogger(),
		Tracer: tracerProvider.Tracer(pantrypal.TracerNameInventory),
		Meter:  meterProvider.Meter(pantrypal.TracerNameInventory),
	}
	if appConfig.NATSURL != "" {
		pub, err := events.Connect(appConfig.NATSURL, appConfig.NATSSubjectPrefix)
		if err != nil {
			slog.Error("SETUP: Change notifications disabled", "error", err)
		} else {
			defer pub.Close()
			opts.Notifier = pub
		}
	}

	deps := app.Deps{
		Gateway:   gateway.New(store),
		Generator: gen,
		Options:   opts,
	}
	if notifyConfig.SlackWebhookURL != "" {
		deps.Slack = slack.NewClient(notifyConfig.SlackWebhookURL, http.DefaultClient)
		deps.SlackChannel = notifyConfig.SlackChannel
	}
	pool, err := app.NewPool(deps, appConfig.PoolSize)
	if err != nil {
		log.Fatalf("SETUP: Failed to create user pool: %s", err)
	}
	slog.Info("SETUP: Handler ready", "gateway", gatewayConfig.Driver, "model", modelConfig.ModelID)

	tracer := tracerProvider.Tracer(pantrypal.TracerNameLambda)
	fn := func(ctx context.Context, req app.Request) (app.Response, error) {
		ctx, span := tracer.Start(ctx, "Lambda.Handle", trace.WithAttributes(
			attribute.String("action", req.Action),
			attribute.String("collection", req.Collection),
			attribute.String("user.id", req.User.ID),
		))
		defer span.End()

		if req.User.ID == "" {
			return app.Response{}, errors.New("user.id is required")
		}
		resp, err := pool.Handle(ctx, req)
		if err != nil {
			span.RecordError(err)
			slog.Error("RESULT: Error handling action", "action", req.Action, "error", err)
		}
		return resp, err
	}

	lambda.Start(fn)
}

func newBedrockRuntimeClient(ctx context.Context) (*bedrockruntime.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
	if err != nil {
		return nil, err
	}
	return bedrockruntime.NewFromConfig(awsCfg), nil
}
