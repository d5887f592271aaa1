package main

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/brettbedarf/dok/controller"
	"github.com/brettbedarf/dok/internal/term"
	"github.com/brettbedarf/dok/internal/util"
	"github.com/brettbedarf/dok/tree"
	"github.com/spf13/cobra"
)

var stateFile string

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive shell over the remote tree",
	Long: `Starts an interactive shell. Type 'help' for the commands.

With --state the directories that were open are saved on exit and opened
again on the next start.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := util.GetLogger("main")
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		console := term.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout())
		ctrl, err := newController(controller.Options{
			Notifier: console,
			Prompter: console,
			Renderer: console,
		})
		if err != nil {
			return err
		}

		// Flush the open file on termination
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		stop := watchSignals(sigs, func(sig os.Signal) {
			logger.Info().Str("signal", sig.String()).Msg("Received signal, saving before exit")
			if err := ctrl.Close(context.Background()); err != nil {
				logger.Error().Err(err).Msg("Failed to save open file")
			}
			saveState(ctrl.Snapshot())
			os.Exit(signalExitCode(sig))
		})
		defer func() {
			signal.Stop(sigs)
			stop()
		}()

		ctrl.Load(ctx)
		if snap, ok := loadState(); ok {
			ctrl.Restore(ctx, snap)
		}

		err = term.NewShell(ctrl, console).Run(ctx)
		saveState(ctrl.Snapshot())
		return err
	},
}

func init() {
	shellCmd.Flags().StringVar(&stateFile, "state", "", "file to keep open directories in between runs")
}

// watchSignals calls onSignal for the first signal received on sigs. The
// returned stop ends the watch and waits for the goroutine to exit.
func watchSignals(sigs <-chan os.Signal, onSignal func(os.Signal)) (stop func()) {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case sig := <-sigs:
			onSignal(sig)
		case <-done:
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-exited
	}
}

// signalExitCode follows the shell convention of 128 plus the signal number
func signalExitCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return 1
}

func loadState() (tree.Snapshot, bool) {
	var snap tree.Snapshot
	if stateFile == "" {
		return snap, false
	}
	logger := util.GetLogger("main")
	data, err := os.ReadFile(stateFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn().Err(err).Str("state", stateFile).Msg("Failed to read state")
		}
		return snap, false
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		logger.Warn().Err(err).Str("state", stateFile).Msg("Ignoring unreadable state")
		return snap, false
	}
	return snap, true
}

func saveState(snap tree.Snapshot) {
	if stateFile == "" {
		return
	}
	logger := util.GetLogger("main")
	data, err := json.Marshal(snap)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode state")
		return
	}
	if err := os.WriteFile(stateFile, data, 0o644); err != nil {
		logger.Error().Err(err).Str("state", stateFile).Msg("Failed to write state")
	}
}
