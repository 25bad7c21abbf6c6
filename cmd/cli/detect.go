package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kosarica/receipt-service/internal/receipt"
)

// detectCmd represents the detect command
var detectCmd = &cobra.Command{
	Use:   "detect <file>",
	Short: "Detect which retailer a receipt came from",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	in, err := readInput(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	r := receipt.DetectRetailer(in.tokens())
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", r.DisplayName(), r)
	return nil
}
