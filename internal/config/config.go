package config

import "github.com/kelseyhightower/envconfig"

// Config is the process configuration, read from the environment after
// godotenv has loaded any .env file.
type Config struct {
	SpreadsheetID   string `envconfig:"SPREADSHEET_ID" required:"true"`
	SheetName       string `envconfig:"SHEET_NAME" default:"Log"`
	CredentialsFile string `envconfig:"GOOGLE_CREDENTIALS_FILE" default:"credentials.json"`
	DryRun          bool   `envconfig:"DRY_RUN" default:"false"`
	Port            int    `envconfig:"PORT" default:"3000"`
}

func New() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}
