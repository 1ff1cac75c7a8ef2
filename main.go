package main

import (
	"errors"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"backupd/internal/backup"
	"backupd/internal/di"
	"backupd/internal/structures"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withService runs fn against a service built from the config, without the schedule or HTTP server.
func withService(flags *structures.CliFlags, fn func(*backup.Service) error) error {
	svc, cleanup, err := di.InitService(flags)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(svc)
}

func restoreOutcome(res backup.RestoreResult) error {
	if err := printJSON(res); err != nil {
		return err
	}
	if !res.Success {
		return errors.New(res.Error)
	}
	return nil
}

func main() {
	flags := &structures.CliFlags{}

	rootCmd := &cobra.Command{
		Use:          "backupd",
		Short:        "Automatic backup and rotation service for the local key-value store",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cleanup, err := di.InitApp(flags)
			if err != nil {
				return err
			}
			cleanup()
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "config.yaml", "Path to the yaml config")
	rootCmd.PersistentFlags().BoolVarP(&flags.DebugMode, "debug", "d", false, "Also log to stdout")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "backup",
		Short: "Capture a backup now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(flags, func(svc *backup.Service) error {
				if !svc.CreateBackup() {
					return errors.New("backup failed, see the log for details")
				}
				return printJSON(svc.GetLatestBackup())
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print retained backups, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(flags, func(svc *backup.Service) error {
				return printJSON(svc.GetBackupHistory())
			})
		},
	})

	restoreCmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore a backup (the latest one unless --timestamp is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, _ := cmd.Flags().GetString("timestamp")
			return withService(flags, func(svc *backup.Service) error {
				return restoreOutcome(svc.RestoreBackup(ts))
			})
		},
	}
	restoreCmd.Flags().StringP("timestamp", "t", "", "Timestamp of the backup to restore")
	rootCmd.AddCommand(restoreCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "undo",
		Short: "Undo the last restore",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(flags, func(svc *backup.Service) error {
				return restoreOutcome(svc.UndoRestore())
			})
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
