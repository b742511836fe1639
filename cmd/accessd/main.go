// Command accessd is the tenant backend process (spec §4.5/§6): the
// gateway execs one instance per active tenant, passing its identity
// and listen port as both flags and environment variables. It owns
// exactly one tenant's graph for its lifetime and exits 0 only on a
// clean shutdown.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nimbusgate/accessgraph/cmd/accessd/runtime"
	"github.com/nimbusgate/accessgraph/pkg/config"
	"github.com/nimbusgate/accessgraph/pkg/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	_ = v.BindEnv("tenant_id", "TENANT_ID")
	_ = v.BindEnv("grpc_port", "GRPC_PORT")
	_ = v.BindEnv("base_connection_string", "BASE_CONNECTION_STRING")

	var exitCode int

	cmd := &cobra.Command{
		Use:           "accessd",
		Short:         "accessd serves one tenant's access-control graph over gRPC",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, _ := cmd.Flags().GetString("tenant")
			port, _ := cmd.Flags().GetInt("port")
			storeDriver, _ := cmd.Flags().GetString("store-driver")
			queueSize, _ := cmd.Flags().GetInt("command-queue-size")

			if tenantID == "" {
				tenantID = v.GetString("tenant_id")
			}
			if port == 0 {
				port = v.GetInt("grpc_port")
			}

			cfg := config.BackendConfig{
				TenantID:             tenantID,
				GRPCPort:             port,
				BaseConnectionString: v.GetString("base_connection_string"),
				StoreDriver:          storeDriver,
				CommandQueueSize:     queueSize,
			}

			logger := log.New("accessd", os.Stderr)
			err := runtime.Run(context.Background(), cfg, logger)
			exitCode = runtime.ExitCode(err)
			return err
		},
	}

	cmd.Flags().String("tenant", "", "tenant id this process serves (or TENANT_ID)")
	cmd.Flags().Int("port", 0, "gRPC listen port (or GRPC_PORT)")
	cmd.Flags().String("store-driver", "sqlite3", "database/sql driver for this tenant's store")
	cmd.Flags().Int("command-queue-size", 256, "bounded command queue capacity")

	if err := cmd.Execute(); err != nil {
		return 1
	}
	return exitCode
}
