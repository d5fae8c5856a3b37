package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	SlackBotToken   string `yaml:"slack_bot_token"`
	SlackAppToken   string `yaml:"slack_app_token"`
	ReportChannelID string `yaml:"report_channel_id"`

	KaspiAPIURL    string `yaml:"kaspi_api_url"`
	KaspiAuthToken string `yaml:"kaspi_auth_token"`

	SMTPHost      string   `yaml:"smtp_host"`
	SMTPPort      int      `yaml:"smtp_port"`
	EmailFrom     string   `yaml:"email_from"`
	EmailFromName string   `yaml:"email_from_name"`
	EmailPassword string   `yaml:"email_password"`
	EmailTo       []string `yaml:"email_to"`
	EmailCC       []string `yaml:"email_cc"`

	// Daily trigger times, HH:MM in the business zone (UTC+5).
	OverdueReportTime string `yaml:"overdue_report_time"`
	PendingReportTime string `yaml:"pending_report_time"`

	DBPath    string `yaml:"db_path"`
	ExportDir string `yaml:"export_dir"`

	// StoreMapping translates raw pickup-point ids to display names.
	// Ids absent from the mapping pass through unchanged.
	StoreMapping map[string]string `yaml:"store_mapping"`
}

// totalRowKey is the localized label of the statistics total row; it is
// resolved through the store mapping like any other key.
const totalRowKey = "Итого"

var defaultStoreMapping = map[string]string{
	"14576033_9005": "Karaganda Tair",
	"14576033_9020": "Almaty Mart",
	"14576033_9003": "Almaty Aport",
	"14576033_9080": "Astana InStreet",
	"14576033_9078": "Aktobe InStreet",
	"14576033_9077": "Almaty InStreet",
	"14576033_9004": "Shym Bayan Sulu",
	"14576033_9104": "Astana Reebok",
	"14576033_9006": "Astana Asia Park",
	"14576033_9041": "Almaty Warehouse",
	totalRowKey:     "Total",
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	envOverride(&cfg.ReportChannelID, "REPORT_CHANNEL_ID")
	envOverride(&cfg.KaspiAPIURL, "KASPI_API_URL")
	envOverride(&cfg.KaspiAuthToken, "KASPI_AUTH_TOKEN")
	envOverride(&cfg.SMTPHost, "SMTP_HOST")
	envOverrideInt(&cfg.SMTPPort, "SMTP_PORT")
	envOverride(&cfg.EmailFrom, "EMAIL_FROM")
	envOverride(&cfg.EmailFromName, "EMAIL_FROM_NAME")
	envOverride(&cfg.EmailPassword, "EMAIL_PASSWORD")
	envOverrideList(&cfg.EmailTo, "EMAIL_TO")
	envOverrideList(&cfg.EmailCC, "EMAIL_CC")
	envOverride(&cfg.OverdueReportTime, "OVERDUE_REPORT_TIME")
	envOverride(&cfg.PendingReportTime, "PENDING_REPORT_TIME")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.ExportDir, "EXPORT_DIR")

	// Defaults
	if cfg.KaspiAPIURL == "" {
		cfg.KaspiAPIURL = "https://kaspi.kz/shop/api/v2/orders"
	}
	if cfg.SMTPHost == "" {
		cfg.SMTPHost = "smtp.office365.com"
	}
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 587
	}
	if cfg.EmailFromName == "" {
		cfg.EmailFromName = "OMS Report Bot"
	}
	if cfg.OverdueReportTime == "" {
		cfg.OverdueReportTime = "18:00"
	}
	if cfg.PendingReportTime == "" {
		cfg.PendingReportTime = "10:00"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./kaspibot.db"
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "./exports"
	}
	if len(cfg.StoreMapping) == 0 {
		cfg.StoreMapping = defaultStoreMapping
	}

	// Validate required fields
	required := map[string]string{
		"slack_bot_token":  cfg.SlackBotToken,
		"slack_app_token":  cfg.SlackAppToken,
		"kaspi_auth_token": cfg.KaspiAuthToken,
	}
	for name, val := range required {
		if val == "" {
			log.Fatalf("Required config '%s' is not set (via config.yaml or env var)", name)
		}
	}

	if _, _, err := parseClock(cfg.OverdueReportTime); err != nil {
		log.Fatalf("invalid overdue_report_time '%s': %v", cfg.OverdueReportTime, err)
	}
	if _, _, err := parseClock(cfg.PendingReportTime); err != nil {
		log.Fatalf("invalid pending_report_time '%s': %v", cfg.PendingReportTime, err)
	}
	if cfg.EmailConfigured() {
		if cfg.EmailFrom == "" || cfg.EmailPassword == "" {
			log.Fatalf("email_to is set but email_from/email_password are not")
		}
	}

	return cfg
}

// EmailConfigured reports whether scheduled email delivery can run.
func (c Config) EmailConfigured() bool {
	return len(c.EmailTo) > 0
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideList(field *[]string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = nil
		for _, item := range strings.Split(val, ",") {
			item = strings.TrimSpace(item)
			if item != "" {
				*field = append(*field, item)
			}
		}
	}
}

func parseClock(s string) (int, int, error) {
	var hour, min int
	_, err := fmt.Sscanf(s, "%d:%d", &hour, &min)
	if err != nil {
		return 0, 0, err
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("time out of range: %02d:%02d", hour, min)
	}
	return hour, min, nil
}
