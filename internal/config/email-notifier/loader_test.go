package email_notifier_config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("LINKS_APP_URL", "https://app.example/")
	t.Setenv("SMTP_ADDR", "mailhog:1025")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example", cfg.Links.AppURL)
	assert.Equal(t, "mailhog:1025", cfg.SMTP.Addr)
	assert.Equal(t, "warden.email.requested", cfg.In.Topic)
	assert.Equal(t, "email-notifier", cfg.In.GroupID)
}
