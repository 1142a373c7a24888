package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cmdRestoreTargetDir string
	cmdRestore          = &cobra.Command{
		Use:   "restore <id...>",
		Short: "Restore backups",
		Long: "Restore backups. For each id, the whole chain of the owning directory up to the\n" +
			"identified entry is replayed, oldest first. Without --target-dir, each entry is\n" +
			"restored into its original source directory.",
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			store := openStore()

			failed := 0
			for _, id := range args {
				err := store.Restore(id, cmdRestoreTargetDir)
				if err != nil {
					logrus.WithFields(logrus.Fields{"id": id}).Errorf("cannot restore: %v", err)
					failed++
				}
			}

			if failed > 0 {
				logrus.Fatalf("%d of %d restores failed", failed, len(args))
			}
		},
	}
)

func init() {
	cmdRestore.Flags().StringVarP(&cmdRestoreTargetDir, "target-dir", "d", "", "restore into this directory instead of the original one")
}
