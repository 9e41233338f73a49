package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tempmail/playground/internal/config"
	"tempmail/playground/internal/session"
)

func TestSessionConfig(t *testing.T) {
	cfg := sessionConfig(config.SessionConfig{
		BaseExpiry:            600 * time.Second,
		Extension:             300 * time.Second,
		AutoRefreshPeriod:     30 * time.Second,
		BackgroundMin:         2 * time.Minute,
		BackgroundMax:         5 * time.Minute,
		BackgroundProbability: 0.3,
		HistoryLimit:          10,
		GenerateDelay:         800 * time.Millisecond,
		RefreshDelay:          600 * time.Millisecond,
		DeleteDelay:           700 * time.Millisecond,
		InitialMailDelay:      2 * time.Second,
		Seed:                  42,
		QueueSize:             256,
	})

	assert.Equal(t, session.DefaultConfig(), cfg)
}
