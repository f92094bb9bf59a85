package notifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/NordCoder/Warden/internal/config/email-notifier"
	"github.com/NordCoder/Warden/internal/obs/retry"
)

func TestHost(t *testing.T) {
	assert.Equal(t, "smtp.example.com", host("smtp.example.com:587"))
	assert.Equal(t, "::1", host("[::1]:25"))
	assert.Equal(t, "mailhog", host("mailhog"))
}

func TestMailer_RejectsHeaderInjection(t *testing.T) {
	m := New(config.SMTP{Addr: "127.0.0.1:1", From: "noreply@example.com"})

	err := m.Send(context.Background(), "a@x.com\r\nBcc: evil@x.com", "hi", "body")
	require.ErrorIs(t, err, retry.ErrPermanent)

	err = m.Send(context.Background(), "a@x.com", "hi\nBcc: evil@x.com", "body")
	require.ErrorIs(t, err, retry.ErrPermanent)
}
