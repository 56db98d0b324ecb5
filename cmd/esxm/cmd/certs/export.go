package certs

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mensylisir/esxm/pkg/certs"
	"github.com/mensylisir/esxm/pkg/common"
	"github.com/mensylisir/esxm/pkg/logger"
)

var exportDest string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the certificate bundle to a directory and archive",
	Long: `Copy the cluster's certificate bundle out of its docker volume into a
staging directory and pack it as a tar.gz. Carry the archive to each host
that will join the cluster and import it there.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bundleID, rt, cleanup, err := loadBundleContext(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := certs.NewTransfer(rt).Export(cmd.Context(), bundleID, exportDest); err != nil {
			return err
		}
		archive := filepath.Join(filepath.Dir(exportDest), common.CertsArchiveName)
		logger.Get().Successf("Bundle %q exported to %s and %s", bundleID, exportDest, archive)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDest, "dest", filepath.Join(".", common.CertsExportDirName), "Destination staging directory")
	CertsCmd.AddCommand(exportCmd)
}
