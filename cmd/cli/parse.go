package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kosarica/receipt-service/internal/receipt"
)

var (
	parseRetailer string
	parseOutput   string
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse OCR output from a receipt into line items",
	Long: `Parse OCR output from a store receipt. The file holds either the recognized
text, one line per printed line, or (with a .json extension) an array of
positioned text fragments. Use - to read text from stdin.

The retailer is detected from the text unless --retailer is given.`,
	Example: `  receipt-service parse ./receipt.txt
  receipt-service parse ./observations.json --retailer target
  cat receipt.txt | receipt-service parse - --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVar(&parseRetailer, "retailer", "", "Retailer hint (walmart, target, costco, ...)")
	parseCmd.Flags().StringVar(&parseOutput, "output", "table", "Output format: table or json")
}

func runParse(cmd *cobra.Command, args []string) error {
	in, err := readInput(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	parser := receipt.NewParser(logger)
	data := in.parse(parser, receipt.ParseRetailer(parseRetailer))

	logger.Info().
		Str("retailer", string(data.Retailer)).
		Int("items", len(data.Items)).
		Msg("Parsed receipt")

	switch strings.ToLower(parseOutput) {
	case "json":
		return writeJSON(cmd.OutOrStdout(), data)
	case "table":
		outputParseTable(cmd.OutOrStdout(), data)
		return nil
	default:
		return fmt.Errorf("invalid output format: %s (use 'table' or 'json')", parseOutput)
	}
}

func outputParseTable(out io.Writer, data *receipt.ScannedReceiptData) {
	store := data.Retailer.DisplayName()
	if data.StoreName != nil {
		store = *data.StoreName
	}
	fmt.Fprintf(out, "\nReceipt from %s\n", store)
	fmt.Fprintln(out, strings.Repeat("-", 60))

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "#\tItem\tCode\tPrice\n")
	fmt.Fprintf(w, "-\t----\t----\t-----\n")
	for i, item := range data.Items {
		code := "-"
		if item.HasSKU() {
			code = *item.SKU
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, item.Name, code, receipt.FormatCents(item.Price))
	}
	w.Flush()

	fmt.Fprintln(out, strings.Repeat("-", 60))
	fmt.Fprintf(out, "Items total: %s\n", receipt.FormatCents(data.ItemsTotal()))
	if data.TotalAmount != nil {
		fmt.Fprintf(out, "Receipt total: %s\n", receipt.FormatCents(*data.TotalAmount))
	}
}
