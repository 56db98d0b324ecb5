package cmd

import (
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"

	"github.com/mensylisir/esxm/cmd/esxm/cmd/certs"
	"github.com/mensylisir/esxm/cmd/esxm/cmd/cluster"
	"github.com/mensylisir/esxm/pkg/common"
	"github.com/mensylisir/esxm/pkg/logger"
)

var (
	verboseFlag bool
	yesFlag     bool
	envFileFlag string
)

var rootCmd = &cobra.Command{
	Use:   "esxm",
	Short: "esxm manages a docker-based Elasticsearch/Kibana/Fleet cluster.",
	Long: figure.NewFigure("esxm", "", true).String() + `
esxm stands up, scales and manages a multi-node Elasticsearch cluster with
Kibana and a Fleet server, all running as docker containers. Bring-up is a
sequence of idempotent phases, so any command can safely be re-run after an
interruption.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		opts := logger.DefaultOptions()
		opts.Verbose = verboseFlag
		logger.Init(opts)
	},
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&yesFlag, "yes", "y", false, "Assume yes to all prompts and run non-interactively")
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", common.DefaultEnvFile, "Path to the key/value configuration file")

	rootCmd.AddCommand(cluster.ClusterCmd)
	certs.AddCertsCommand(rootCmd)
}
