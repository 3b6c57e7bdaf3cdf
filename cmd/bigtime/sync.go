package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bigtime/bigtime/internal/daemon"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run or inspect synchronization",
}

var syncNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Push pending local changes to the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		eng, err := a.engine()
		if err != nil {
			return err
		}
		ok, err := eng.SyncOutbound(ctx)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Push incomplete; remaining changes will retry later")
			return nil
		}
		fmt.Println("All local changes pushed")
		return nil
	},
}

var syncFullCmd = &cobra.Command{
	Use:   "full",
	Short: "Run a full bidirectional sync",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		eng, err := a.engine()
		if err != nil {
			return err
		}
		d := daemon.New(eng, a.cfg.SyncInterval, a.log)
		if err := d.FullSync(ctx); err != nil {
			return err
		}
		fmt.Println("Full sync finished")
		return nil
	},
}

var syncRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Reset failed shifts so the next sync pushes them again",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		eng, err := a.engine()
		if err != nil {
			return err
		}
		n, err := eng.RetryFailed(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Reset %d failed shift(s) for retry\n", n)
		pushChanges(ctx, a)
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		eng, err := a.engine()
		if err != nil {
			return err
		}
		status, err := eng.Status(ctx)
		if err != nil {
			return err
		}
		status.Online = eng.Online(ctx, a.cfg.HTTPTimeout)

		state := "offline"
		if status.Online {
			state = "online"
		}
		fmt.Printf("Server:          %s (%s)\n", status.ServerURL, state)
		if status.LastSync != nil {
			fmt.Printf("Last sync:       %s\n", status.LastSync.Local().Format("2006-01-02 15:04:05"))
		} else {
			fmt.Println("Last sync:       never")
		}
		fmt.Printf("Pending shifts:  %d\n", status.PendingLogs)
		fmt.Printf("Failed shifts:   %d\n", status.FailedLogs)
		fmt.Printf("Pending changes: %d\n", status.PendingChanges)
		return nil
	},
}

func init() {
	syncCmd.AddCommand(syncNowCmd)
	syncCmd.AddCommand(syncFullCmd)
	syncCmd.AddCommand(syncRetryCmd)
	syncCmd.AddCommand(syncStatusCmd)
	rootCmd.AddCommand(syncCmd)
}
