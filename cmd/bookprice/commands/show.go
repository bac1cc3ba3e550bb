package commands

import (
	"bookprice-pipeline/internal/cryptobox"
	"bookprice-pipeline/internal/pipeline"
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	showDecrypt bool
	showFile    string
)

func init() {
	showCmd.Flags().BoolVar(&showDecrypt, "decrypt", false, "Decrypt the wholesale cost of every record.")
	showCmd.Flags().StringVar(&showFile, "file", "", "The artifact to show, defaults to output.file.")
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show [--decrypt] [--file <path>]",
	Short: "Prints the records of an output artifact.",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := showFile
		if path == "" {
			path = cfg.Output.File
		}
		records, err := pipeline.ReadArtifact(path)
		if err != nil {
			return err
		}

		var box *cryptobox.Box
		if showDecrypt {
			box, err = openExistingBox()
			if err != nil {
				return err
			}
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"#", "Title", "Retail (USD)", "Wholesale (USD)"})
		for i, record := range records {
			t.AppendRow(table.Row{
				i + 1,
				shorten(record.BookTitle, 48),
				record.RetailPriceUSD.StringFixed(2),
				wholesaleCell(box, record.WholesaleCostSecret),
			})
		}
		t.AppendFooter(table.Row{"", fmt.Sprintf("%d records", len(records))})
		t.Render()
		return nil
	},
}

func wholesaleCell(box *cryptobox.Box, secret *string) string {
	if secret == nil {
		return "-"
	}
	if box == nil {
		return "(encrypted)"
	}
	value, err := box.DecryptDecimal(*secret)
	if errors.Is(err, cryptobox.ErrAuthentication) {
		return "(foreign key)"
	}
	if err != nil {
		return fmt.Sprintf("(%v)", err)
	}
	if value == nil {
		return "-"
	}
	return value.StringFixed(2)
}
