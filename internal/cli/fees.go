package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"reconciler/internal/models"
	"reconciler/internal/repository"
	"reconciler/pkg/utils"
)

// NewFeesCommand создаёт группу команд fees: ставки комиссии в fee_schedule
func NewFeesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fees",
		Short: "Manage per-asset platform fee rates",
		Long: `Per-asset fee rates stored in fee_schedule override PLATFORM_FEE_OVERRIDES
and PLATFORM_FEE_RATE. They are reloaded at the start of every pass.`,
	}

	cmd.AddCommand(newFeesListCommand(rootOpts))
	cmd.AddCommand(newFeesSetCommand(rootOpts))
	cmd.AddCommand(newFeesDeleteCommand(rootOpts))

	return cmd
}

func newFeesListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show effective fee rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := repository.Open(cmd.Context(), rootOpts.Config.Database)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to connect to database", err)
			}
			defer db.Close()

			stored, err := repository.NewFeeScheduleRepository(db).GetAll(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read fee schedule", err)
			}

			return printFees(cmd.OutOrStdout(), rootOpts.Config.Fees.DefaultRate, rootOpts.Config.Fees.Overrides, stored)
		},
	}
}

func newFeesSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "set <asset> <rate>",
		Short:   "Set the fee rate for a base asset",
		Example: "  reconciler fees set BTC 0.004",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			asset, err := parseAsset(args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "invalid asset", err)
			}
			rate, err := parseFeeRate(args[1])
			if err != nil {
				return WrapExitError(ExitFailure, "invalid rate", err)
			}

			db, err := repository.Open(cmd.Context(), rootOpts.Config.Database)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to connect to database", err)
			}
			defer db.Close()

			if err := repository.NewFeeScheduleRepository(db).Set(cmd.Context(), asset, rate); err != nil {
				return WrapExitError(ExitFailure, "failed to store fee rate", err)
			}
			utils.L().Info("fee rate stored", utils.Asset(asset), utils.Amount("rate", rate))
			return nil
		},
	}
}

func newFeesDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <asset>",
		Short: "Remove the stored fee rate for a base asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asset, err := parseAsset(args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "invalid asset", err)
			}

			db, err := repository.Open(cmd.Context(), rootOpts.Config.Database)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to connect to database", err)
			}
			defer db.Close()

			if err := repository.NewFeeScheduleRepository(db).Delete(cmd.Context(), asset); err != nil {
				return WrapExitError(ExitFailure, "failed to delete fee rate", err)
			}
			utils.L().Info("fee rate removed", utils.Asset(asset))
			return nil
		},
	}
}

func parseAsset(s string) (string, error) {
	asset := strings.ToUpper(strings.TrimSpace(s))
	if asset == "" {
		return "", errors.New("asset is empty")
	}
	for _, r := range asset {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("asset %q must be alphanumeric", s)
		}
	}
	return asset, nil
}

// parseFeeRate - ставка в долях, 0 <= rate < 1
func parseFeeRate(s string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("rate %q is not a decimal", s)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Decimal{}, fmt.Errorf("rate %s must be in [0, 1)", rate)
	}
	return rate, nil
}

// printFees печатает таблицу: источник ставки по приоритету fee_schedule > env > default
func printFees(w io.Writer, defaultRate decimal.Decimal, configured map[string]decimal.Decimal, stored []*models.FeeOverride) error {
	type row struct {
		rate   decimal.Decimal
		source string
	}
	rows := make(map[string]row)
	for asset, rate := range configured {
		rows[strings.ToUpper(asset)] = row{rate: rate, source: "env"}
	}
	for _, o := range stored {
		rows[strings.ToUpper(o.Asset)] = row{rate: o.Rate, source: "fee_schedule"}
	}

	assets := make([]string, 0, len(rows))
	for asset := range rows {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ASSET\tRATE\tSOURCE")
	fmt.Fprintf(tw, "*\t%s\tdefault\n", defaultRate)
	for _, asset := range assets {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", asset, rows[asset].rate, rows[asset].source)
	}
	return tw.Flush()
}
