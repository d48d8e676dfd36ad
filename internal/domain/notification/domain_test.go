package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeverityNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, SeverityWarning, SeverityWarning.Normalize())
	assert.Equal(t, SeverityInfo, Severity("").Normalize())
	assert.Equal(t, SeverityInfo, Severity("fatal").Normalize())
}

func TestNotificationExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, (&Notification{}).Expired(now))
	assert.False(t, (&Notification{ExpiresAt: &future}).Expired(now))
	assert.True(t, (&Notification{ExpiresAt: &past}).Expired(now))
	assert.True(t, (&Notification{ExpiresAt: &now}).Expired(now))
}
