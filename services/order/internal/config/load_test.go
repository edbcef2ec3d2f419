package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGatewayBudget(t *testing.T) {
	t.Parallel()
	cases := []struct {
		budget, write, want time.Duration
	}{
		{20 * time.Second, 30 * time.Second, 20 * time.Second},
		{40 * time.Second, 30 * time.Second, 25 * time.Second},
		{0, 30 * time.Second, 25 * time.Second},
		{10 * time.Second, 4 * time.Second, 2 * time.Second},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, GatewayBudget(tc.budget, tc.write), "budget=%s write=%s", tc.budget, tc.write)
	}
}

func TestLoad_CapsGatewayBudgetBelowWriteTimeout(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/orders")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("AUTH_URL", "http://auth:8080")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test")
	t.Setenv("RAZORPAY_KEY_SECRET", "shh")
	t.Setenv("GATEWAY_TIMEOUT", "10s")
	t.Setenv("GATEWAY_MAX_RETRIES", "3")
	t.Setenv("GATEWAY_BUDGET", "40s")
	t.Setenv("HTTP_WRITE_TIMEOUT", "30s")

	cfg := Load()
	require.Equal(t, 25*time.Second, cfg.GatewayBudget)
	require.Less(t, cfg.GatewayBudget, cfg.WriteTimeout)
}
