package cluster

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mensylisir/esxm/pkg/backup"
	"github.com/mensylisir/esxm/pkg/common"
	"github.com/mensylisir/esxm/pkg/config"
	"github.com/mensylisir/esxm/pkg/logger"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Archive the ./data directories into a tar.gz",
	Long: `Pack the per-service data directories into a timestamped tar.gz next to
the invocation. Containers keep running; for a consistent snapshot stop
them first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Get()

		cfg, err := config.Load(flagString(cmd, "env-file"), common.RoleMaster)
		if err != nil {
			return err
		}

		res, err := backup.Run(cfg.ClusterName, filepath.Join(".", common.DataDirName), ".", !flagBool(cmd, "verbose"))
		if err != nil {
			return err
		}
		log.Successf("Backup written to %s (%d bytes)", res.ArchivePath, res.SizeBytes)
		return nil
	},
}

func init() {
	ClusterCmd.AddCommand(backupCmd)
}
