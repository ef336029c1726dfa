package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the client's runtime settings, loaded from SHOP_*
// environment variables.
type Config struct {
	APIBaseURL      string        `envconfig:"API_BASE_URL" default:"http://localhost:5000/api"`
	HTTPTimeout     time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`
	CredentialsPath string        `envconfig:"CREDENTIALS_PATH" default:"shop-session.db"`
	DeliveryFee     float64       `envconfig:"DELIVERY_FEE" default:"500"`
	PaymentPoll     time.Duration `envconfig:"PAYMENT_POLL" default:"2s"`
	PaymentTimeout  time.Duration `envconfig:"PAYMENT_TIMEOUT" default:"90s"`
	SimulatePayment bool          `envconfig:"SIMULATE_PAYMENT" default:"false"`
	LogJSON         bool          `envconfig:"LOG_JSON" default:"false"`
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("shop", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
