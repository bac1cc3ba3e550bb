package commands

import (
	"bookprice-pipeline/internal/cryptobox"
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(decryptCmd)
}

// openExistingBox never creates a key, a missing key means nothing could have
// been encrypted with it.
func openExistingBox() (*cryptobox.Box, error) {
	key, err := cryptobox.ReadKey(cfg.Crypto.KeyFile)
	if err != nil {
		return nil, err
	}
	return cryptobox.New(key)
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt <token>...",
	Short: "Decrypts tokens created by the pipeline.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		box, err := openExistingBox()
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Token", "Value"})

		failed := 0
		for _, token := range args {
			value, err := box.Decrypt(token)
			switch {
			case errors.Is(err, cryptobox.ErrAuthentication):
				failed++
				t.AppendRow(table.Row{shorten(token, 32), "authentication failed"})
			case err != nil:
				return err
			case value == nil:
				t.AppendRow(table.Row{shorten(token, 32), "(empty)"})
			default:
				t.AppendRow(table.Row{shorten(token, 32), *value})
			}
		}
		t.Render()

		if failed > 0 {
			return fmt.Errorf("%d of %d tokens failed authentication: %w", failed, len(args), cryptobox.ErrAuthentication)
		}
		return nil
	},
}
