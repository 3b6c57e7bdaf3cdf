package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bigtime/bigtime/internal/model"
	"github.com/bigtime/bigtime/internal/store"
)

var clockCmd = &cobra.Command{
	Use:   "clock",
	Short: "Clock employees in and out",
}

var clockInCmd = &cobra.Command{
	Use:   "in <badge>",
	Short: "Start a shift for a badge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		badge := args[0]
		if _, err := a.db.GetEmployeeByBadge(ctx, badge); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no employee with badge %s", badge)
			}
			return err
		}

		now := time.Now().UTC()
		l := &model.TimeLog{
			Badge:    badge,
			ClockIn:  now,
			DeviceID: a.cfg.DeviceID,
			DeviceTS: &now,
		}
		if err := a.db.InsertLog(ctx, l); err != nil {
			if errors.Is(err, store.ErrOpenShift) {
				return fmt.Errorf("badge %s is already clocked in", badge)
			}
			return err
		}
		fmt.Printf("Clocked in %s at %s\n", badge, now.Local().Format("15:04:05"))

		pushChanges(ctx, a)
		return nil
	},
}

var clockOutCmd = &cobra.Command{
	Use:   "out <badge>",
	Short: "End the open shift for a badge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		badge := args[0]
		now := time.Now().UTC()
		l, err := a.db.CloseOpenLog(ctx, badge, now)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("badge %s has no open shift", badge)
			}
			return err
		}
		fmt.Printf("Clocked out %s at %s (%s worked)\n",
			badge, now.Local().Format("15:04:05"),
			now.Sub(l.ClockIn).Round(time.Minute))

		pushChanges(ctx, a)
		return nil
	},
}

var clockStatusCmd = &cobra.Command{
	Use:   "status <badge>",
	Short: "Show whether a badge is clocked in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		badge := args[0]
		l, err := a.db.OpenLog(ctx, badge)
		if errors.Is(err, store.ErrNotFound) {
			fmt.Printf("%s is clocked out\n", badge)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s is clocked in since %s (%s so far)\n",
			badge, l.ClockIn.Local().Format("15:04:05"),
			time.Since(l.ClockIn).Round(time.Minute))
		return nil
	},
}

// pushChanges makes a best-effort outbound sync after a local mutation.
// Offline is fine: the change sits in the ledger until the daemon or the
// next command reaches the server.
func pushChanges(ctx context.Context, a *app) {
	eng, err := a.engine()
	if err != nil {
		return
	}
	if _, err := eng.SyncOutbound(ctx); err != nil {
		a.log.Warn("background push failed", "error", err)
	}
}

func init() {
	clockCmd.AddCommand(clockInCmd)
	clockCmd.AddCommand(clockOutCmd)
	clockCmd.AddCommand(clockStatusCmd)
	rootCmd.AddCommand(clockCmd)
}
