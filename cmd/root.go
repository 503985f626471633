package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"ghost-newsletter/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	envFile string
	appCfg  config.Config
)

// rootCmd is the base command called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ghost-newsletter",
	Short: "Send the latest Ghost post as an email newsletter",
	Long: "Fetches the latest post from a Ghost site, styles it with the site's branding and " +
		"newsletter settings, and delivers it through Postmark, Resend or SMTP. " +
		"Runs are dry runs unless --send is given.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
}

// legacyEnv maps config keys to the flat variable names older deployments use.
var legacyEnv = map[string]string{
	"ghost.admin_url":              "GHOST_ADMIN_URL",
	"ghost.website_url":            "GHOST_WEBSITE_URL",
	"ghost.content_api_key":        "GHOST_CONTENT_API_KEY",
	"ghost.admin_api_key":          "GHOST_ADMIN_API_KEY",
	"ghost.test_email":             "GHOST_TEST_EMAIL",
	"mail.postmark.server_token":   "POSTMARK_SERVER_TOKEN",
	"mail.postmark.message_stream": "POSTMARK_MESSAGE_STREAM",
	"mail.from_name":               "FROM_NAME",
	"mail.from_email":              "FROM_EMAIL",
	"mail.website_domain":          "WEBSITE_DOMAIN",
	"mail.footer_address":          "GHOST_NEWSLETTER_ADDRESS",
	"mail.resend.api_key":          "RESEND_API_KEY",
	"openai.api_key":               "OPENAI_API_KEY",
}

// configKeys lists every key that may come from the environment.
var configKeys = []string{
	"app.log_level",
	"ghost.admin_url", "ghost.website_url", "ghost.content_api_key", "ghost.admin_api_key",
	"ghost.newsletter", "ghost.test_email", "ghost.timeout",
	"mail.provider", "mail.from_name", "mail.from_email", "mail.reply_to", "mail.support_email",
	"mail.footer_address", "mail.website_domain",
	"mail.postmark.server_token", "mail.postmark.message_stream",
	"mail.resend.api_key",
	"mail.smtp.host", "mail.smtp.port", "mail.smtp.username", "mail.smtp.password", "mail.smtp.ssl",
	"redis.addr", "redis.username", "redis.password", "redis.db", "redis.settings_ttl",
	"openai.api_key", "openai.model", "openai.base_url",
	"schedule.cron", "schedule.send",
	"newsletter.template_path", "newsletter.preview_path", "newsletter.days_back",
	"newsletter.featured_only", "newsletter.filter_tags", "newsletter.utm",
	"newsletter.interval", "newsletter.auto_interval", "newsletter.archive_url",
}

func initConfig() {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "error reading %s: %v\n", envFile, err)
			os.Exit(1)
		}
	}

	v := viper.GetViper()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/ghost-newsletter")
		v.AddConfigPath("configs")
	}

	v.SetDefault("newsletter.utm", true)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range configKeys {
		names := []string{strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
		if legacy, ok := legacyEnv[key]; ok {
			names = append(names, legacy)
		}
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			fmt.Fprintf(os.Stderr, "error binding env for %s: %v\n", key, err)
			os.Exit(1)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			fmt.Fprintf(os.Stderr, "error reading config: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", v.ConfigFileUsed())
	}

	if err := v.Unmarshal(&appCfg); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing config: %v\n", err)
		os.Exit(1)
	}

	appCfg.FillDefaults()
	setupLogging(appCfg.App.LogLevel)
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// GetConfig exposes the loaded configuration to subcommands.
func GetConfig() config.Config {
	return appCfg
}
