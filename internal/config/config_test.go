package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFillDefaults(t *testing.T) {
	var c Config
	c.Ghost.AdminURL = "https://blog.example.com/"
	c.Mail.FromName = "Example Weekly"
	c.FillDefaults()

	assert.Equal(t, "info", c.App.LogLevel)
	assert.Equal(t, "https://blog.example.com", c.Ghost.AdminURL)
	assert.Equal(t, "https://blog.example.com", c.Ghost.WebsiteURL)
	assert.Equal(t, "postmark", c.Mail.Provider)
	assert.Equal(t, "broadcast", c.Mail.Postmark.MessageStream)
	assert.Equal(t, "Example Weekly", c.Mail.FooterAddress)
	assert.Equal(t, 30, c.Newsletter.DaysBack)
	assert.Equal(t, "weekly", c.Newsletter.Interval)
	assert.Equal(t, 587, c.Mail.SMTP.Port)
}

func TestFillDefaultsKeepsExplicitValues(t *testing.T) {
	c := Config{
		Ghost: GhostConfig{AdminURL: "https://admin.example.com", WebsiteURL: "https://www.example.com/"},
		Mail:  MailConfig{Provider: " Resend ", FooterAddress: "1 Main St"},
	}
	c.FillDefaults()

	assert.Equal(t, "https://www.example.com", c.Ghost.WebsiteURL)
	assert.Equal(t, "resend", c.Mail.Provider)
	assert.Equal(t, "1 Main St", c.Mail.FooterAddress)
}
