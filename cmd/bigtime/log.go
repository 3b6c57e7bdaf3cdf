package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bigtime/bigtime/internal/store"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Inspect and correct time logs",
}

var logListBadge string

var logListCmd = &cobra.Command{
	Use:   "list",
	Short: "List time logs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		logs, err := a.db.ListLogs(ctx, store.LogFilter{Badge: logListBadge})
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tBADGE\tCLOCK IN\tCLOCK OUT\tSTATE")
		for _, l := range logs {
			out := "-"
			if l.ClockOut != nil {
				out = l.ClockOut.Local().Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				l.ID, l.Badge, l.ClockIn.Local().Format("2006-01-02 15:04"), out, l.SyncState)
		}
		return w.Flush()
	},
}

var (
	logEditIn  string
	logEditOut string
)

var logEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Correct a log's times; only the flags you pass change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := parseLogID(args[0])
		if err != nil {
			return err
		}
		l, err := a.db.GetLogByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no log with id %d", id)
			}
			return err
		}

		clockIn := l.ClockIn
		clockOut := l.ClockOut
		f := cmd.Flags()
		if f.Changed("clock-in") {
			if clockIn, err = parseShiftTime(logEditIn); err != nil {
				return err
			}
		}
		if f.Changed("clock-out") {
			t, err := parseShiftTime(logEditOut)
			if err != nil {
				return err
			}
			clockOut = &t
		}
		if clockOut != nil && clockOut.Before(clockIn) {
			return fmt.Errorf("clock-out %s is before clock-in %s", clockOut, clockIn)
		}

		if err := a.db.UpdateLogTimes(ctx, id, clockIn, clockOut); err != nil {
			return err
		}
		fmt.Printf("Updated log %d\n", id)
		pushChanges(ctx, a)
		return nil
	},
}

var logDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a time log everywhere",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := parseLogID(args[0])
		if err != nil {
			return err
		}
		if err := a.db.DeleteLog(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no log with id %d", id)
			}
			return err
		}
		fmt.Printf("Deleted log %d\n", id)
		pushChanges(ctx, a)
		return nil
	},
}

func parseLogID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid log id %q", arg)
	}
	return id, nil
}

// parseShiftTime accepts a local wall-clock time with or without a zone.
func parseShiftTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: use RFC3339 or \"2006-01-02 15:04\"", s)
	}
	return t.UTC(), nil
}

func init() {
	logListCmd.Flags().StringVar(&logListBadge, "badge", "", "only this badge's logs")
	logEditCmd.Flags().StringVar(&logEditIn, "clock-in", "", "new clock-in time")
	logEditCmd.Flags().StringVar(&logEditOut, "clock-out", "", "new clock-out time")
	logCmd.AddCommand(logListCmd)
	logCmd.AddCommand(logEditCmd)
	logCmd.AddCommand(logDeleteCmd)
	rootCmd.AddCommand(logCmd)
}
