package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kosarica/receipt-service/internal/providers"
	"github.com/kosarica/receipt-service/internal/receipt"
	"github.com/kosarica/receipt-service/internal/report"
	"github.com/kosarica/receipt-service/internal/validation"
)

var (
	validateRetailer  string
	validateTolerance float64
	validateOutput    string
	validateOut       string
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Parse a receipt and compare its prices with online prices",
	Long: `Parse a receipt and look up the current online price of every item using
the configured price providers. Items charged above the online price by more
than the tolerance are flagged as possible or significant overcharges.

Press Ctrl-C to stop; items validated so far are discarded.`,
	Example: `  receipt-service validate ./receipt.txt
  receipt-service validate ./receipt.txt --tolerance 0.05 --output json
  receipt-service validate ./receipt.txt --output xlsx --out report.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateRetailer, "retailer", "", "Retailer hint (walmart, target, costco, ...)")
	validateCmd.Flags().Float64Var(&validateTolerance, "tolerance", 0, "Tolerance as a fraction of the online price (default from config)")
	validateCmd.Flags().StringVar(&validateOutput, "output", "table", "Output format: table, json or xlsx")
	validateCmd.Flags().StringVar(&validateOut, "out", "", "Write output to this file instead of stdout (required for xlsx)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(validateOutput)
	switch format {
	case "table", "json":
	case "xlsx":
		if validateOut == "" {
			return fmt.Errorf("--out is required for xlsx output")
		}
	default:
		return fmt.Errorf("invalid output format: %s (use 'table', 'json' or 'xlsx')", validateOutput)
	}

	in, err := readInput(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	data := in.parse(receipt.NewParser(logger), receipt.ParseRetailer(validateRetailer))
	items := validation.ItemsFromReceipt(data)
	logger.Info().
		Str("retailer", string(data.Retailer)).
		Int("items", len(items)).
		Msg("Parsed receipt")

	tolerance := cfg.Validation.Tolerance
	if validateTolerance > 0 {
		tolerance = validateTolerance
	}

	set := providers.NewSetFromConfig(cfg, logger)
	validator := validation.NewValidator(set, validation.Options{
		Tolerance:       tolerance,
		ProviderTimeout: cfg.Validation.ProviderTimeout,
	}, logger)

	summary, err := validator.ValidateReceipt(cmd.Context(), items, data.Retailer, func(p validation.Progress) {
		logger.Info().
			Int("completed", p.Completed).
			Int("total", p.Total).
			Str("item", p.Last.Item.Name).
			Str("status", string(p.Last.Status)).
			Msgf("Validated %.0f%%", p.Fraction*100)
	})
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if validateOut != "" {
		f, err := os.Create(validateOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", validateOut, err)
		}
		defer f.Close()
		out = f
	}

	switch format {
	case "json":
		err = writeJSON(out, summary)
	case "xlsx":
		err = report.WriteXLSX(out, summary)
	default:
		outputValidationTable(out, summary)
	}
	if err != nil {
		return err
	}
	if validateOut != "" {
		logger.Info().Str("file", validateOut).Msg("Report written")
	}
	return nil
}

func outputValidationTable(out io.Writer, s *validation.ValidationSummary) {
	fmt.Fprintf(out, "\nPrice check for %s (%s)\n", s.Retailer.DisplayName(), s.RunID)
	fmt.Fprintln(out, strings.Repeat("-", 80))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Item\tReceipt\tOnline\tDiff\tStatus\tConfidence\n")
	fmt.Fprintf(w, "----\t-------\t------\t----\t------\t----------\n")
	for _, r := range s.Results {
		online, diff := "-", "-"
		if r.OnlinePrice != nil {
			online = receipt.FormatCents(*r.OnlinePrice)
			diff = fmt.Sprintf("%+.1f%%", r.PercentDifference)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Item.Name,
			receipt.FormatCents(r.Item.Price),
			online,
			diff,
			r.Status.DisplayName(),
			r.Confidence.DisplayName(),
		)
	}
	w.Flush()

	fmt.Fprintln(out, strings.Repeat("-", 80))
	fmt.Fprintf(out, "Overall: %s\n", s.OverallStatus.DisplayName())
	fmt.Fprintf(out, "Validated: %d of %d\n", s.ValidatedCount(), len(s.Results))
	if len(s.FlaggedItems) > 0 {
		fmt.Fprintf(out, "Flagged: %d, potential overcharge %s\n", len(s.FlaggedItems), receipt.FormatCents(s.TotalPotentialOvercharge))
	}
}
