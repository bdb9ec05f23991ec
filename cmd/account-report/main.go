package main

import (
	"context"
	"log"
	"os"

	"steam-trader/internal/api"
	"steam-trader/internal/config"
	"steam-trader/internal/database"
	"steam-trader/internal/report"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates the account-report command.
func NewRootCmd() *cobra.Command {
	var out, dsn string
	cmd := &cobra.Command{
		Use:          "account-report",
		Short:        "Export stored Steam account status to an Excel workbook",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dsn == "" {
				dsn = config.Load().DatabaseURL
			}
			db, err := database.Initialize(dsn)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			accounts, err := api.NewGormAccountStore(db).ListAccounts(ctx)
			if err != nil {
				return err
			}

			f, err := report.BuildAccountWorkbook(accounts)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := f.SaveAs(out); err != nil {
				return err
			}
			log.Printf("✅ 已导出 %d 个账号到 %s", len(accounts), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "steam-accounts.xlsx", "output file")
	cmd.Flags().StringVar(&dsn, "dsn", "", "mysql DSN (defaults to DATABASE_URL)")
	return cmd
}
