package certs

import (
	"github.com/spf13/cobra"

	"github.com/mensylisir/esxm/pkg/certs"
	"github.com/mensylisir/esxm/pkg/logger"
)

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Import a certificate bundle from a directory or tar.gz",
	Long: `Load the certificate bundle exported from the master into this host's
bundle volume, creating the volume if needed. Required before 'esxm
cluster add-node'. Re-running overwrites the bundle contents.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bundleID, rt, cleanup, err := loadBundleContext(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := certs.NewTransfer(rt).Import(cmd.Context(), args[0], bundleID); err != nil {
			return err
		}
		logger.Get().Successf("Bundle imported from %s into %q", args[0], bundleID)
		return nil
	},
}

func init() {
	CertsCmd.AddCommand(importCmd)
}
