package main

import (
	"fmt"
	"os"
	"os/signal"
	gosync "sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bigtime/bigtime/internal/config"
	"github.com/bigtime/bigtime/internal/daemon"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background sync daemon",
	Long: `Run the sync daemon in the foreground: a periodic pull keeps the
local roster fresh, a connectivity probe tracks whether the server is
reachable, and config file edits are picked up without a restart.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		eng, err := a.engine()
		if err != nil {
			return err
		}

		var mu gosync.Mutex
		d := daemon.New(eng, a.cfg.SyncInterval, a.log)
		d.Start(ctx)

		// A config edit swaps the whole daemon out; in-flight cycles finish
		// on the old settings.
		watcher, err := config.NewWatcher(cfgPath, func(cfg *config.Config) {
			mu.Lock()
			defer mu.Unlock()
			a.cfg = cfg
			newEng, err := a.engine()
			if err != nil {
				a.log.Warn("reloaded config leaves sync unconfigured; daemon idle", "error", err)
				d.Stop()
				return
			}
			d.Stop()
			d = daemon.New(newEng, cfg.SyncInterval, a.log)
			d.Start(ctx)
		}, a.log)
		if err != nil {
			return err
		}
		if err := watcher.Start(); err != nil {
			a.log.Warn("config watching disabled", "error", err)
		} else {
			defer func() {
				if err := watcher.Stop(); err != nil {
					a.log.Warn("failed to stop config watcher", "error", err)
				}
			}()
		}

		fmt.Printf("Sync daemon running (server %s, every %s). Ctrl-C to stop.\n",
			a.cfg.ServerURL, a.cfg.SyncInterval)
		<-ctx.Done()

		mu.Lock()
		d.Stop()
		mu.Unlock()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
