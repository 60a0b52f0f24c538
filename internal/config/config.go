package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config is the process-wide configuration, parsed once at startup and
// threaded explicitly into constructors. Business code never reads the
// environment directly; gateway secrets in particular only travel through
// the per-gateway config structs built from this.
type Config struct {
	Port int `env:"PORT" envDefault:"8080"`

	AWSRegion          string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" envDefault:"local"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" envDefault:"local"`
	DynamoDBEndpoint   string `env:"DYNAMODB_ENDPOINT"`
	TransactionsTable  string `env:"TRANSACTIONS_TABLE" envDefault:"transactions"`

	// GatewayTimeout bounds every outbound provider call; a call that
	// exceeds it is reported as a transport failure, never as a decline.
	GatewayTimeout time.Duration `env:"PAYMENT_GATEWAY_TIMEOUT" envDefault:"15s"`

	PaystackSecretKey string `env:"PAYSTACK_SECRET_KEY"`
	PaystackBaseURL   string `env:"PAYSTACK_BASE_URL" envDefault:"https://api.paystack.co"`

	FlutterwaveSecretKey     string `env:"FLUTTERWAVE_SECRET_KEY"`
	FlutterwaveWebhookSecret string `env:"FLUTTERWAVE_WEBHOOK_SECRET"`
	FlutterwaveBaseURL       string `env:"FLUTTERWAVE_BASE_URL" envDefault:"https://api.flutterwave.com"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}
