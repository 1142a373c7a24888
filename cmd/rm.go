package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cmdRmAll bool
	cmdRm    = &cobra.Command{
		Use:   "rm <id...>",
		Short: "Remove backups",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			store := openStore()

			failed := 0
			for _, id := range args {
				err := store.Remove(id, cmdRmAll)
				if err != nil {
					logrus.WithFields(logrus.Fields{"id": id}).Errorf("cannot remove: %v", err)
					failed++
				}
			}

			err := store.Save()
			if err != nil {
				logrus.Fatal(err)
			}

			if failed > 0 {
				logrus.Fatalf("%d of %d removals failed", failed, len(args))
			}
		},
	}
)

func init() {
	cmdRm.Flags().BoolVarP(&cmdRmAll, "all", "a", false, "remove every backup of the directory the id belongs to")
}
