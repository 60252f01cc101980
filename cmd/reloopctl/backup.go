package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dukerupert/reloop/internal/backup"
	"github.com/dukerupert/reloop/internal/store"
	"github.com/spf13/cobra"
)

const backupListLimit = 20

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "backup", Short: "Encrypted database backups in S3"}

	manager := func(e *env) *backup.Manager {
		return backup.NewManager(e.cfg.BackupSettings(), e.db, store.NewBackupStore(e.db), e.logger.With("component", "backup"))
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Snapshot, encrypt and upload the database now",
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			b, err := manager(e).RunNow(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backup %d uploaded to %s (%d bytes)\n", b.ID, b.S3Key, b.SizeBytes)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show recent backups",
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			bs, err := store.NewBackupStore(e.db).List(cmd.Context(), backupListLimit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tSIZE\tCREATED\tFILE")
			for _, b := range bs {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", b.ID, b.Status, b.SizeBytes, b.CreatedAt.Format(time.DateTime), b.Filename)
			}
			return tw.Flush()
		}),
	})

	var out string
	restoreCmd := &cobra.Command{
		Use:   "restore BACKUP_ID",
		Short: "Download and decrypt a backup into a new database file",
		Long: "Restore writes the decrypted snapshot to --out after an integrity check.\n" +
			"The running database is never touched; stop the service and swap files to use it.",
		Args: cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid backup id %q", args[0])
			}
			if err := manager(e).Restore(cmd.Context(), id, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backup %d restored to %s\n", id, out)
			return nil
		}),
	}
	restoreCmd.Flags().StringVarP(&out, "out", "o", "", "destination database path (required)")
	_ = restoreCmd.MarkFlagRequired("out")
	cmd.AddCommand(restoreCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "cleanup",
		Short: "Delete backups older than the retention period",
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			n, err := manager(e).Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d backups\n", n)
			return nil
		}),
	})

	return cmd
}
