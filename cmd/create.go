package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cmdCreate = &cobra.Command{
	Use:   "create <dir...>",
	Short: "Create incremental backups of one or more directories",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()

		failed := 0
		for _, dir := range args {
			entry, err := store.CreateBackup(dir)
			if err != nil {
				logrus.WithFields(logrus.Fields{"path": dir}).Errorf("cannot create backup: %v", err)
				failed++
				continue
			}
			if entry != nil {
				logrus.Printf("created backup %s for %s", entry.ID(), entry.Path)
			}
		}

		if failed > 0 {
			logrus.Fatalf("%d of %d backups failed", failed, len(args))
		}
	},
}
