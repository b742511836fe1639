// Package config decodes the generic map-shaped configuration used by
// both process entry points (cmd/accessd, cmd/gatewayd), the way the
// teacher decodes every service's config block with mapstructure
// (e.g. internal/grpc/services/gateway/gateway.go's parseConfig).
package config

import (
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Decode decodes the generic map m into dst, which must be a pointer to
// a struct tagged with `mapstructure:"..."`.
func Decode(m map[string]interface{}, dst interface{}) error {
	if err := mapstructure.Decode(m, dst); err != nil {
		return errors.Wrap(err, "config: error decoding configuration")
	}
	return nil
}

// SubstituteTenant replaces the {TenantId} placeholder in a connection
// string template with tenantID, per spec §6's process invocation
// contract for BASE_CONNECTION_STRING.
func SubstituteTenant(template, tenantID string) string {
	return strings.ReplaceAll(template, "{TenantId}", tenantID)
}

// BackendConfig is the configuration a tenant backend process
// (cmd/accessd) receives via flags/env, per spec §6.
type BackendConfig struct {
	TenantID             string `mapstructure:"tenant_id"`
	GRPCPort             int    `mapstructure:"grpc_port"`
	BaseConnectionString string `mapstructure:"base_connection_string"`
	StoreDriver          string `mapstructure:"store_driver"`
	CommandQueueSize     int    `mapstructure:"command_queue_size"`
}

// ConnectionString resolves the tenant-scoped DSN for this backend.
func (c BackendConfig) ConnectionString() string {
	return SubstituteTenant(c.BaseConnectionString, c.TenantID)
}

// GatewayConfig is the configuration the gateway process (cmd/gatewayd)
// receives, per spec §4.8-§4.9.
type GatewayConfig struct {
	ListenAddr            string `mapstructure:"listen_addr"`
	BackendProgram        string `mapstructure:"backend_program"`
	BaseConnectionString  string `mapstructure:"base_connection_string"`
	PortRangeMin          int    `mapstructure:"port_range_min"`
	PortRangeMax          int    `mapstructure:"port_range_max"`
	StartupTimeoutSeconds int    `mapstructure:"startup_timeout_seconds"`
	HealthProbeSeconds    int    `mapstructure:"health_probe_seconds"`
}
