package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cmdListJSON bool

type listRecord struct {
	ID        string  `json:"id"`
	Path      string  `json:"path"`
	Timestamp float64 `json:"timestamp"`
	FileCount int     `json:"file_count"`
	Date      string  `json:"date"`
}

var cmdList = &cobra.Command{
	Use:   "list",
	Short: "List backups",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()

		if !cmdListJSON {
			fmt.Println(store.FormatList())
			return
		}

		records := make([]listRecord, 0, len(store.Entries()))
		for _, e := range store.Entries() {
			records = append(records, listRecord{
				ID:        e.ID(),
				Path:      e.Path,
				Timestamp: e.Timestamp,
				FileCount: e.FileCount,
				Date:      e.DateString(),
			})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err := enc.Encode(records)
		if err != nil {
			logrus.Fatal(err)
		}
	},
}

func init() {
	cmdList.Flags().BoolVarP(&cmdListJSON, "json", "j", false, "machine-readable output")
}
