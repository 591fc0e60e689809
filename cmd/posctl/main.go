package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"nawaem/backend/internal/config"
	"nawaem/backend/internal/domain"
	"nawaem/backend/internal/httpapi"
	"nawaem/backend/internal/service"
	"nawaem/backend/internal/session"
	pgstore "nawaem/backend/internal/store/postgres"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(config.Load()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "posctl",
		Short:         "Operator tasks for the Nawaem POS backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newMigrateCmd(cfg), newUserCmd(cfg), newReportCmd(cfg))
	return root
}

func openStore(ctx context.Context, cfg config.Config) (*pgstore.Store, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	return pgstore.New(ctx, cfg.DatabaseURL)
}

func newMigrateCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			pg, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer pg.Close()

			if err := pg.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}

func newUserCmd(cfg config.Config) *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage staff accounts",
	}

	var username, password, role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an admin or cashier account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			role = strings.ToLower(strings.TrimSpace(role))
			if role != domain.RoleAdmin && role != domain.RoleCashier {
				return fmt.Errorf("role must be %s or %s", domain.RoleAdmin, domain.RoleCashier)
			}
			if len(password) < 6 {
				return fmt.Errorf("password must be at least 6 characters")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			pg, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer pg.Close()

			hash, err := httpapi.HashPassword(password)
			if err != nil {
				return err
			}
			if err := pg.CreateUser(ctx, domain.UserAccount{
				Username: username,
				Password: hash,
				Role:     role,
				Active:   true,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", strings.ToLower(strings.TrimSpace(username)), role)
			return nil
		},
	}
	create.Flags().StringVar(&username, "username", "", "login name")
	create.Flags().StringVar(&password, "password", "", "initial password")
	create.Flags().StringVar(&role, "role", domain.RoleCashier, "admin or cashier")
	_ = create.MarkFlagRequired("username")
	_ = create.MarkFlagRequired("password")

	user.AddCommand(create)
	return user
}

func newReportCmd(cfg config.Config) *cobra.Command {
	var q domain.WindowQuery
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a sales report for a window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			pg, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer pg.Close()

			svc := service.New(pg, session.NewMemoryStore(), service.Options{
				StoreName: cfg.StoreName,
				Location:  loc,
			})
			report, _, err := svc.Report(ctx, q)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), cfg.StoreName, report)
		},
	}
	cmd.Flags().StringVar(&q.Window, "window", service.WindowToday, "today, week, days or range")
	cmd.Flags().IntVar(&q.Days, "days", 0, "number of days for --window days")
	cmd.Flags().StringVar(&q.From, "from", "", "first day (YYYY-MM-DD) for --window range")
	cmd.Flags().StringVar(&q.To, "to", "", "last day (YYYY-MM-DD) for --window range")
	return cmd
}

func printReport(out io.Writer, storeName string, report domain.Report) error {
	p := message.NewPrinter(language.English)
	money := func(v interface{ InexactFloat64() float64 }) string {
		return p.Sprintf("%.2f", v.InexactFloat64())
	}

	fmt.Fprintf(out, "%s: %s (%s to %s)\n\n", storeName, report.Window, report.From, report.To)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Sales\t%s\t\n", money(report.SalesTotal))
	fmt.Fprintf(tw, "Profit\t%s\t\n", money(report.ProfitTotal))
	fmt.Fprintf(tw, "Expenses\t%s\t\n", money(report.ExpenseTotal))
	fmt.Fprintf(tw, "Net\t%s\t\n", money(report.NetProfit))
	fmt.Fprintf(tw, "Invoices\t%d\t\n", report.Invoices)
	fmt.Fprintf(tw, "Lines\t%d\t\n", report.Lines)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(report.ByDay) > 0 {
		fmt.Fprintln(out, "\nBy day")
		tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "Date\tSales\tProfit\tExpenses")
		for _, day := range report.ByDay {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", day.Date, money(day.Total), money(day.Profit), money(day.Expenses))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(report.TopProducts) > 0 {
		fmt.Fprintln(out, "\nTop products")
		tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "Product\tQty\tSales\tProfit")
		for _, product := range report.TopProducts {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", product.ProductName, product.Qty, money(product.Total), money(product.Profit))
		}
		return tw.Flush()
	}
	return nil
}
