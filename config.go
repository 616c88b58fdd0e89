package pantrypal

type ModelConfig struct {
	ModelID     string  `env:"MODEL_ID,default=us.anthropic.claude-3-7-sonnet-20250219-v1:0"`
	MaxTokens   int32   `env:"MAX_TOKENS,default=2048"`
	Temperature float32 `env:"TEMPERATURE,default=0.7"`
	TopP        float32 `env:"TOP_P,default=0.95"`
}

type AppConfig struct {
	SuggestBackend     string `env:"SUGGEST_BACKEND,default=bedrock"`
	BaseOllamaEndpoint string `env:"BASE_OLLAMA_ENDPOINT,default=http://localhost:11434"`
	MutationLogPath    string `env:"MUTATION_LOG_PATH"`
	NATSURL            string `env:"NATS_URL"`
	NATSSubjectPrefix  string `env:"NATS_SUBJECT_PREFIX,default=pantrypal"`
	PoolSize           int    `env:"POOL_SIZE,default=256"`
}

// GatewayConfig selects and configures the document store behind both collections.
type GatewayConfig struct {
	Driver      string `env:"GATEWAY_DRIVER,default=file"`
	FileRoot    string `env:"GATEWAY_FILE_ROOT,default=artifacts/documents"`
	SQLitePath  string `env:"GATEWAY_SQLITE_PATH,default=artifacts/pantrypal.db"`
	PostgresDSN string `env:"GATEWAY_POSTGRES_DSN,default=postgres://localhost/pantrypal?sslmode=disable"`
	S3Bucket    string `env:"GATEWAY_S3_BUCKET"`
	S3Prefix    string `env:"GATEWAY_S3_PREFIX,default=documents"`
	S3Endpoint  string `env:"GATEWAY_S3_ENDPOINT"`
	S3AccessKey string `env:"GATEWAY_S3_ACCESS_KEY"`
	S3SecretKey string `env:"GATEWAY_S3_SECRET_KEY"`
}

type NotifyConfig struct {
	SlackWebhookURL string `env:"SLACK_WEBHOOK_URL"`
	SlackChannel    string `env:"SLACK_CHANNEL,default=#groceries"`
}

// UserConfig is the identity the CLI signs in with.
type UserConfig struct {
	ID          string `env:"PANTRY_USER_ID"`
	Email       string `env:"PANTRY_USER_EMAIL"`
	DisplayName string `env:"PANTRY_USER_NAME"`
}
