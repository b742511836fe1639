// Command gatewayd is the gateway process (spec §4.8-§4.9, C8/C9): it
// supervises one backend process per active tenant, routes incoming
// requests to the right one, and exposes the whole thing as a single
// REST endpoint.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nimbusgate/accessgraph/cmd/gatewayd/runtime"
	"github.com/nimbusgate/accessgraph/pkg/config"
	"github.com/nimbusgate/accessgraph/pkg/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	v := viper.New()
	v.SetEnvPrefix("GATEWAYD")
	v.AutomaticEnv()

	var exitCode int

	cmd := &cobra.Command{
		Use:           "gatewayd",
		Short:         "gatewayd routes tenant requests to supervised accessd backends",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = v.BindPFlags(cmd.Flags())

			cfg := config.GatewayConfig{
				ListenAddr:            v.GetString("listen-addr"),
				BackendProgram:        v.GetString("backend-program"),
				BaseConnectionString:  v.GetString("connection-string"),
				PortRangeMin:          v.GetInt("port-range-min"),
				PortRangeMax:          v.GetInt("port-range-max"),
				StartupTimeoutSeconds: v.GetInt("startup-timeout-seconds"),
				HealthProbeSeconds:    v.GetInt("health-probe-seconds"),
			}

			logger := log.New("gatewayd", os.Stderr)
			err := runtime.Run(context.Background(), cfg, logger)
			exitCode = runtime.ExitCode(err)
			return err
		},
	}

	cmd.Flags().String("listen-addr", ":8080", "address the gateway's REST surface listens on")
	cmd.Flags().String("backend-program", "accessd", "backend binary the supervisor execs per tenant")
	cmd.Flags().String("connection-string", "sqlite:///var/lib/accessgraph/{TenantId}.db", "connection string template passed to each backend")
	cmd.Flags().Int("port-range-min", 20000, "lowest port the supervisor allocates to a backend")
	cmd.Flags().Int("port-range-max", 29999, "highest port the supervisor allocates to a backend")
	cmd.Flags().Int("startup-timeout-seconds", 30, "how long a freshly spawned backend has to become healthy")
	cmd.Flags().Int("health-probe-seconds", 5, "interval between supervisor health probes")

	if err := cmd.Execute(); err != nil {
		return 1
	}
	return exitCode
}
