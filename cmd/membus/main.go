// The membus command builds a bus-attached memory slave, drives every port
// group with its own randomized burst agent, and reports the outcome.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "membus",
	Short: "Drive randomized burst traffic against a memory slave.",
	Long: `membus builds a memory slave with a configurable number of ` +
		`independent port groups sharing one byte store, drives every group ` +
		`with its own randomized burst agent, and checks each response ` +
		`against a software mirror. A monitoring dashboard can watch the ` +
		`run live.`,
	Run: func(cmd *cobra.Command, _ []string) {
		runTraffic(cmd)
	},
}

func init() {
	flags := rootCmd.Flags()

	flags.Int("ports", 1,
		"number of port groups, each driven by its own agent")
	flags.Int("writes", 1000, "write bursts per agent")
	flags.Int("reads", 1000, "read bursts per agent")
	flags.Int("addr-width", 20, "address width in bits")
	flags.Int("data-width", 32, "data channel width in bits")
	flags.Int("id-width", 4, "transaction ID width in bits")
	flags.Int("user-width", 4, "user sideband width in bits")
	flags.Int("max-beats", 8, "longest burst the agents generate")
	flags.Int("port-buf-size", 1, "capacity of every channel port queue")
	flags.String("uninit", "dontcare",
		"value policy for never-written bytes "+
			"(dontcare, zero, one, or random)")
	flags.Bool("warn-uninit", false, "log every read of a never-written byte")
	flags.Bool("clear-error-on-access", false,
		"reset injected errors once they have been observed")
	flags.Int64("seed", 1, "seed of the traffic and slave randomizers")
	flags.Bool("parallel", false, "use the parallel event engine")
	flags.Bool("no-monitor", false, "run without the monitoring server")
	flags.Int("monitor-port", 0, "port of the monitoring server")
	flags.Bool("open-dashboard", false,
		"open the monitoring dashboard in the default browser")
	flags.Float64("perf-period", 0,
		"performance metric period in seconds, 0 turns analysis off")
	flags.String("output", "",
		"name of the output database, without the .sqlite3 suffix")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func main() {
	// A .env file can carry environment defaults such as MEMBUS_MONITOR_DEV.
	_ = godotenv.Load()

	Execute()
}
