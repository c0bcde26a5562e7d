package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/taskfocus/taskfocus/internal/config"
	"github.com/taskfocus/taskfocus/internal/database"
	"github.com/taskfocus/taskfocus/internal/reporter"
)

func reportCmd() *cobra.Command {
	var (
		jsonOutput bool
		journal    int
	)

	cmd := &cobra.Command{
		Use:       "report [period]",
		Short:     "Generate a focus time report (period: day, week, month)",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"day", "today", "week", "month"},
		RunE: func(cmd *cobra.Command, args []string) error {
			periodType := "day"
			if len(args) > 0 {
				periodType = args[0]
			}

			cfg, err := config.New()
			if err != nil {
				return err
			}

			db, err := database.Connect(cfg.Database)
			if err != nil {
				return errors.Wrap(err, "failed to connect to database")
			}
			defer db.Close()
			if err := db.Initialize(); err != nil {
				return errors.Wrap(err, "failed to initialize database")
			}

			repo := database.NewRepository(db)

			if journal > 0 {
				events, err := repo.GetRecent(journal)
				if err != nil {
					return err
				}
				return printJSON(events)
			}

			rep := reporter.New(cfg, repo)
			report, err := rep.GenerateReport(periodType)
			if err != nil {
				return errors.Wrap(err, "failed to generate report")
			}

			if jsonOutput {
				out, err := rep.FormatReportJSON(report)
				if err != nil {
					return errors.Wrap(err, "failed to format JSON")
				}
				fmt.Println(out)
				return nil
			}
			fmt.Println(rep.FormatReportText(report))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")
	cmd.Flags().IntVar(&journal, "journal", 0, "Print the N most recent journal entries instead")
	return cmd
}

func clearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all journal data from the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}

			if !yes {
				fmt.Print("This will delete all focus history. Are you sure? (yes/no): ")
				response, _ := bufio.NewReader(os.Stdin).ReadString('\n')
				response = strings.TrimSpace(response)
				if response != "yes" && response != "y" {
					fmt.Println("Operation cancelled")
					return nil
				}
			}

			db, err := database.Connect(cfg.Database)
			if err != nil {
				return errors.Wrap(err, "failed to connect to database")
			}
			defer db.Close()
			if err := db.Initialize(); err != nil {
				return errors.Wrap(err, "failed to initialize database")
			}

			if err := database.NewRepository(db).Clear(); err != nil {
				return errors.Wrap(err, "failed to clear database")
			}
			fmt.Println("Database cleared successfully")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
