package cmd

import (
	"fmt"

	"github.com/frahmantamala/expense-approval/internal/request"
	"github.com/frahmantamala/expense-approval/internal/user"
	"github.com/spf13/cobra"
)

var clearData bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the store with demo accounts and sample requests",
	Long:  `Seed the configured store with the demo accounts and two pending sample requests for local development.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		app, err := newApp(ctx, cfg, appOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		if !cfg.Storage.UsesDatabase() {
			fmt.Println("demo accounts are built in for the", cfg.Storage.Driver, "driver")
		} else {
			accounts, err := user.DemoAccounts(cfg.Security.BCryptCost)
			if err != nil {
				return err
			}
			for _, account := range accounts {
				if err := app.UserRepo.Upsert(ctx, account); err != nil {
					return fmt.Errorf("failed to seed %s: %w", account.Email, err)
				}
				fmt.Println("Seeded user:", account.Email, "role:", account.Role)
			}
		}

		requester := user.DemoCredentials[2].User
		for _, sample := range request.SampleRequests(requester) {
			if clearData {
				if _, err := app.RequestRepo.Remove(ctx, sample.ID); err != nil {
					return fmt.Errorf("failed to clear %s: %w", sample.ID, err)
				}
			}

			existing, err := app.RequestRepo.Get(ctx, sample.ID)
			if err != nil {
				return fmt.Errorf("failed to look up %s: %w", sample.ID, err)
			}
			if existing != nil {
				fmt.Println("request already exists; skipping:", sample.ID)
				continue
			}

			if err := app.RequestRepo.Save(ctx, sample); err != nil {
				return fmt.Errorf("failed to seed %s: %w", sample.ID, err)
			}
			fmt.Println("Seeded request:", sample.ID, sample.Title)
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing sample requests before seeding")

	rootCmd.AddCommand(seedCmd)
}
