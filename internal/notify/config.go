package notify

import (
	"encoding/json"
	"fmt"
	"os"
)

// AlertConfig holds the user-facing alert settings. It lives in a small
// JSON file next to the data so the web UI, scheduler and worker all see
// the same state.
type AlertConfig struct {
	TelegramToken  string  `json:"telegram_token"`
	TelegramChatID string  `json:"telegram_chat_id"`
	WhatsappNumber string  `json:"whatsapp_number"`
	EmailAddr      string  `json:"email_addr"`
	AppPassword    string  `json:"app_password"`
	BudgetUSD      float64 `json:"budget_usd,omitempty"`
	LastScan       string  `json:"last_scan,omitempty"`
}

// TelegramConfigured reports whether both token and chat id are set.
func (c *AlertConfig) TelegramConfigured() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

// MailConfigured reports whether mailbox credentials are present.
func (c *AlertConfig) MailConfigured() bool {
	return c.EmailAddr != "" && c.AppPassword != ""
}

// LoadAlertConfig reads the alert config file. A missing or unreadable
// file yields an empty config, not an error.
func LoadAlertConfig(path string) *AlertConfig {
	cfg := &AlertConfig{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return &AlertConfig{}
	}
	return cfg
}

// SaveAlertConfig writes the alert config file.
func SaveAlertConfig(path string, cfg *AlertConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal alert config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write alert config: %w", err)
	}
	return nil
}
