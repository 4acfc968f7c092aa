// internal/cli/finance.go
package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sinoman/internal/clients"
	"sinoman/internal/finance"
)

func newLoanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Loan payment calculations",
	}

	var principal, rate float64
	var term int
	addFlags := func(c *cobra.Command) {
		c.Flags().Float64Var(&principal, "principal", 0, "loan principal in rupiah")
		c.Flags().Float64Var(&rate, "rate", 0, "annual interest rate in percent")
		c.Flags().IntVar(&term, "term", 12, "term in months")
		_ = c.MarkFlagRequired("principal")
	}

	payment := &cobra.Command{
		Use:   "payment",
		Short: "Monthly payment of an annuity loan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), finance.FormatRupiah(finance.LoanPayment(principal, rate, term)))
			return err
		},
	}
	addFlags(payment)

	schedule := &cobra.Command{
		Use:   "schedule",
		Short: "Print the amortization schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if term <= 0 {
				return fmt.Errorf("term must be positive")
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "Month\tPayment\tPrincipal\tInterest\tBalance\t")
			for _, inst := range finance.AmortizationSchedule(principal, rate, term) {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n",
					inst.Month,
					finance.FormatRupiah(inst.Payment),
					finance.FormatRupiah(inst.Principal),
					finance.FormatRupiah(inst.Interest),
					finance.FormatRupiah(inst.Balance),
				)
			}
			return tw.Flush()
		},
	}
	addFlags(schedule)

	cmd.AddCommand(payment, schedule)
	return cmd
}

func newInterestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interest",
		Short: "Interest calculations",
	}

	var principal, rate, years float64
	var perYear int
	compound := &cobra.Command{
		Use:   "compound",
		Short: "Final amount after compound interest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), finance.FormatRupiah(finance.CompoundInterest(principal, rate, years, perYear)))
			return err
		},
	}
	compound.Flags().Float64Var(&principal, "principal", 0, "starting amount")
	compound.Flags().Float64Var(&rate, "rate", 0, "annual rate in percent")
	compound.Flags().Float64Var(&years, "years", 1, "duration in years")
	compound.Flags().IntVar(&perYear, "per-year", finance.DefaultCompoundingPerYear, "compounding periods per year")

	var balance float64
	var days int
	savings := &cobra.Command{
		Use:   "savings",
		Short: "Simple daily interest on a savings balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), finance.FormatRupiah(finance.SavingsInterest(balance, rate, days)))
			return err
		},
	}
	savings.Flags().Float64Var(&balance, "balance", 0, "savings balance")
	savings.Flags().Float64Var(&rate, "rate", 0, "annual rate in percent")
	savings.Flags().IntVar(&days, "days", finance.DefaultAccrualDays, "accrual days")

	cmd.AddCommand(compound, savings)
	return cmd
}

func newSHUCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shu",
		Short: "Residual earnings (SHU) distribution",
	}

	var file, xlsx string
	distribute := &cobra.Command{
		Use:   "distribute",
		Short: "Distribute SHU from a JSON configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			var cfg finance.SHUConfig
			if err := json.Unmarshal(raw, &cfg); err != nil {
				return fmt.Errorf("decode SHU config: %w", err)
			}

			var res *finance.SHUResult
			if server, _ := cmd.Flags().GetString("server"); server != "" {
				res, err = clients.NewCardClient(server, zap.NewNop()).DistributeSHU(cmd.Context(), cfg)
			} else {
				res, err = finance.DistributeSHU(cfg)
			}
			if err != nil {
				return err
			}

			if xlsx != "" {
				f, err := os.Create(xlsx)
				if err != nil {
					return err
				}
				if err := finance.WriteSHUWorkbook(f, res); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	distribute.Flags().StringVarP(&file, "file", "f", "-", "SHU configuration JSON file, - for stdin")
	distribute.Flags().StringVar(&xlsx, "xlsx", "", "also write an Excel report to this path")

	cmd.AddCommand(distribute)
	return cmd
}
