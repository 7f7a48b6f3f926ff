package device

import "time"

// Config holds the vendor API settings.
type Config struct {
	BaseURL  string        `env:"DEVICE_API_URL" envDefault:"https://do.pishock.com/api"`
	Username string        `env:"DEVICE_API_USERNAME"`
	APIKey   string        `env:"DEVICE_API_KEY"`
	AppName  string        `env:"DEVICE_APP_NAME" envDefault:"hapticqueue"`
	Timeout  time.Duration `env:"DEVICE_API_TIMEOUT" envDefault:"10s"`
	DryRun   bool          `env:"DEVICE_DRY_RUN" envDefault:"false"`
}
