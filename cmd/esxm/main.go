package main

import (
	"os"

	"github.com/mensylisir/esxm/cmd/esxm/cmd"
	"github.com/mensylisir/esxm/pkg/logger"
)

func main() {
	if err := cmd.Execute(); err != nil {
		logger.Errorf("%v", err)
		logger.SyncGlobal()
		os.Exit(1)
	}
	logger.SyncGlobal()
}
