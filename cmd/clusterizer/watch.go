package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/thebtf/clusterizer/internal/watcher"
)

func newWatchCmd(a *app) *cobra.Command {
	var flags engineFlags

	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Re-cluster FILE every time it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.apply(cmd, a.cfg)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.watch(cmd, args[0])
		},
	}
	flags.register(cmd)
	return cmd
}

// watch prints one report up front and another after every change, until the
// command context is cancelled.
func (a *app) watch(cmd *cobra.Command, path string) error {
	out := cmd.OutOrStdout()
	if err := a.clusterOnce(cmd, path, out); err != nil {
		return err
	}

	changes := make(chan struct{}, 1)
	w, err := watcher.New(path, func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}
	log.Info().Str("path", w.Path()).Msg("Watching input for changes")

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return w.Run(ctx)
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-changes:
				if err := a.clusterOnce(cmd, path, out); err != nil {
					log.Error().Err(err).Str("path", path).Msg("Re-clustering failed")
				}
			}
		}
	})
	return g.Wait()
}
