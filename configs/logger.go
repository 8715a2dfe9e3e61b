package configs

type Logger struct {
	AppName string `env:"LOGGER_APP_NAME" envDefault:"dao_governance_pool"`
	URL     string `env:"LOGGER_LOKI_URL"`
}
