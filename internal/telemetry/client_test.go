package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/guardiansim/ges-core/internal/infrastructure/config"
)

func TestConnect_Disabled(t *testing.T) {
	cfg := config.TelemetryConfig{Enabled: false}

	if _, err := Connect(cfg); !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	c := &Client{}

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestDeviceMetric_DisconnectedIsNoop(t *testing.T) {
	c := &Client{}

	// Must not panic with no write API behind it.
	c.DeviceMetric("Device-93BC", "battery_voltage", 3598.4)
	c.WritePoint("simulation_runs", nil, map[string]interface{}{"clock_seconds": 1.0})
	c.Flush()
}

func TestClose_NilClientIsNoop(t *testing.T) {
	c := &Client{}

	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}
