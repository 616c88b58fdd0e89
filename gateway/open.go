package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"pantrypal"
)

// OpenStore builds the DocStore selected by cfg.Driver. The returned close function releases
// any connection the store holds.
func OpenStore(ctx context.Context, cfg pantrypal.GatewayConfig) (DocStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), noop, nil

	case "file", "":
		slog.Info("SETUP: File document store", "root", cfg.FileRoot)
		return NewFileStore(cfg.FileRoot), noop, nil

	case "sqlite":
		st, err := NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		slog.Info("SETUP: SQLite document store", "path", cfg.SQLitePath)
		return st, st.Close, nil

	case "postgres":
		st, err := NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		slog.Info("SETUP: Postgres document store")
		return st, st.Close, nil

	case "s3":
		if cfg.S3Bucket == "" {
			return nil, noop, fmt.Errorf("missing S3 config: GATEWAY_S3_BUCKET must be set")
		}
		client, err := newS3Client(ctx, cfg)
		if err != nil {
			return nil, noop, err
		}
		slog.Info("SETUP: S3 document store", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
		return NewS3Store(client, cfg.S3Bucket, cfg.S3Prefix), noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown gateway driver %q", cfg.Driver)
	}
}

func newS3Client(ctx context.Context, cfg pantrypal.GatewayConfig) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
