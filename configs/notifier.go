package configs

type Notifier struct {
	TelegramToken  string `env:"NOTIFIER_TELEGRAM_TOKEN"`
	TelegramChatID int64  `env:"NOTIFIER_TELEGRAM_CHAT_ID"`
}
