package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"showsweep/internal/config"
	"showsweep/internal/runlock"
	"showsweep/internal/store"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Maintain the state database",
	}

	dbCmd.AddCommand(newDBCheckCommand(ctx))
	dbCmd.AddCommand(newDBBackupCommand(ctx))
	dbCmd.AddCommand(newDBRestoreCommand(ctx))

	return dbCmd
}

func newDBCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run an integrity check on the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.CheckIntegrity(cmd.Context()); err != nil {
				return err
			}
			version, err := st.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database: %s\n", st.Path())
			fmt.Fprintf(out, "Schema:   %s\n", version)
			fmt.Fprintln(out, "Integrity check passed")
			return nil
		},
	}
}

func newDBBackupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "backup <path>",
		Short: "Write a consistent copy of the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dest, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve backup path: %w", err)
			}
			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Backup(cmd.Context(), dest); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", dest)
			return nil
		},
	}
}

func newDBRestoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <path>",
		Short: "Replace the database with a backup",
		Long:  "Restore refuses to run while a sweep holds the run lock. The backup is integrity-checked first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			src, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve backup path: %w", err)
			}
			lock, err := runlock.Acquire(cfg.LockPath())
			if err != nil {
				return err
			}
			defer lock.Release()

			if err := store.Restore(cmd.Context(), cfg.DatabasePath(), src); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s from %s\n", cfg.DatabasePath(), src)
			return nil
		},
	}
}
