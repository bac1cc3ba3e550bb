package commands

import (
	"bookprice-pipeline/internal/cryptobox"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(keygenCmd)
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Creates the encryption key if it does not exist yet.",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Crypto.KeyFile
		_, err := os.Stat(path)
		existed := err == nil
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		_, err = cryptobox.Open(path)
		if err != nil {
			return err
		}

		if existed {
			fmt.Fprintf(cmd.OutOrStdout(), "key already exists at %s\n", path)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created key at %s\n", path)
		return nil
	},
}
