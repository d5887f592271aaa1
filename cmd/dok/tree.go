package main

import (
	"context"
	"strings"

	"github.com/brettbedarf/dok/controller"
	"github.com/brettbedarf/dok/internal/term"
	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree [dir...]",
	Short: "Print the remote tree, expanding the given directories",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		console := term.NewConsole(strings.NewReader(""), cmd.OutOrStdout())
		ctrl, err := newController(controller.Options{Notifier: console})
		if err != nil {
			return err
		}

		ctrl.Load(ctx)
		for _, dir := range args {
			ctrl.ToggleDirectory(ctx, dir)
		}
		ctrl.ClearTarget()
		console.Render(ctrl.View())
		return nil
	},
}
