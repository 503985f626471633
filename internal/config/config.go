package config

import "strings"

// AppConfig holds application-level settings.
type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

// GhostConfig holds Ghost Content and Admin API settings.
type GhostConfig struct {
	AdminURL      string `mapstructure:"admin_url"`
	WebsiteURL    string `mapstructure:"website_url"`
	ContentAPIKey string `mapstructure:"content_api_key"`
	AdminAPIKey   string `mapstructure:"admin_api_key"` // "<id>:<hex secret>"
	Newsletter    string `mapstructure:"newsletter"`    // newsletter slug, required when several are active
	TestEmail     string `mapstructure:"test_email"`
	Timeout       string `mapstructure:"timeout"` // duration string, e.g., "20s"
}

// PostmarkConfig holds Postmark credentials.
type PostmarkConfig struct {
	ServerToken   string `mapstructure:"server_token"`
	MessageStream string `mapstructure:"message_stream"`
}

// ResendConfig holds Resend credentials.
type ResendConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSL      bool   `mapstructure:"ssl"`
}

// MailConfig controls the sender identity and the delivery provider.
type MailConfig struct {
	Provider      string         `mapstructure:"provider"` // postmark, resend or smtp
	FromName      string         `mapstructure:"from_name"`
	FromEmail     string         `mapstructure:"from_email"`
	ReplyTo       string         `mapstructure:"reply_to"`
	SupportEmail  string         `mapstructure:"support_email"`
	FooterAddress string         `mapstructure:"footer_address"`
	WebsiteDomain string         `mapstructure:"website_domain"` // used for UTM tagging
	Postmark      PostmarkConfig `mapstructure:"postmark"`
	Resend        ResendConfig   `mapstructure:"resend"`
	SMTP          SMTPConfig     `mapstructure:"smtp"`
}

// RedisConfig holds redis connection settings. An empty Addr disables the store.
type RedisConfig struct {
	Addr        string `mapstructure:"addr"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	SettingsTTL string `mapstructure:"settings_ttl"`
}

// OpenAIConfig enables generated preheaders when APIKey is set.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// ScheduleConfig controls the schedule command.
type ScheduleConfig struct {
	Cron string `mapstructure:"cron"`
	Send bool   `mapstructure:"send"` // live send on each tick; dry run otherwise
}

// NewsletterConfig controls post selection and rendering.
type NewsletterConfig struct {
	TemplatePath string   `mapstructure:"template_path"` // empty uses the embedded template
	PreviewPath  string   `mapstructure:"preview_path"`  // dry-run HTML preview output
	DaysBack     int      `mapstructure:"days_back"`
	FeaturedOnly bool     `mapstructure:"featured_only"`
	FilterTags   []string `mapstructure:"filter_tags"`
	UTM          bool     `mapstructure:"utm"`           // tag links with mail.website_domain; on unless set to false
	Interval     string   `mapstructure:"interval"`      // daily, weekly or monthly; dates the issue
	AutoInterval bool     `mapstructure:"auto_interval"` // derive days_back from the publishing pace
	ArchiveURL   string   `mapstructure:"archive_url"`   // past issues link; defaults to <website>/newsletters
}

// Config is the top-level configuration structure.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Ghost      GhostConfig      `mapstructure:"ghost"`
	Mail       MailConfig       `mapstructure:"mail"`
	Redis      RedisConfig      `mapstructure:"redis"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Newsletter NewsletterConfig `mapstructure:"newsletter"`
}

// FillDefaults applies default values if not provided.
func (c *Config) FillDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	c.Ghost.AdminURL = strings.TrimRight(c.Ghost.AdminURL, "/")
	if c.Ghost.WebsiteURL == "" {
		c.Ghost.WebsiteURL = c.Ghost.AdminURL
	}
	c.Ghost.WebsiteURL = strings.TrimRight(c.Ghost.WebsiteURL, "/")
	if c.Ghost.Timeout == "" {
		c.Ghost.Timeout = "20s"
	}
	if c.Mail.Provider == "" {
		c.Mail.Provider = "postmark"
	}
	c.Mail.Provider = strings.ToLower(strings.TrimSpace(c.Mail.Provider))
	if c.Mail.Postmark.MessageStream == "" {
		c.Mail.Postmark.MessageStream = "broadcast"
	}
	if c.Mail.SMTP.Port == 0 {
		c.Mail.SMTP.Port = 587
	}
	if c.Mail.FooterAddress == "" {
		c.Mail.FooterAddress = c.Mail.FromName
	}
	if c.Redis.SettingsTTL == "" {
		c.Redis.SettingsTTL = "24h"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 9 * * 1"
	}
	if c.Newsletter.DaysBack == 0 {
		c.Newsletter.DaysBack = 30
	}
	if c.Newsletter.Interval == "" {
		c.Newsletter.Interval = "weekly"
	}
	if c.Newsletter.PreviewPath == "" {
		c.Newsletter.PreviewPath = "./debug_newsletter.html"
	}
}
