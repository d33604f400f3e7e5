package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maauso/charactercast-api/internal/job"
	"github.com/maauso/charactercast-api/internal/poller"
)

var watchCmd = &cobra.Command{
	Use:   "watch <job-id>...",
	Short: "Follow jobs until they complete or fail",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	watcher := poller.NewWatcher(c, poller.WithLogger(logger))

	handles := make([]*poller.Handle, 0, len(args))
	for _, id := range args {
		handles = append(handles, watcher.Watch(ctx, id, func(v job.View) {
			fmt.Fprintf(out, "%s\t%s\n", v.ID, v.Status)
		}))
	}

	var failed int
	for _, h := range handles {
		v, err := h.Wait()
		switch {
		case err != nil && ctx.Err() != nil:
			return context.Cause(ctx)
		case err != nil:
			fmt.Fprintf(out, "%s\tpoll failed: %v\n", h.ID(), err)
			failed++
		case v.Status == job.StatusError:
			fmt.Fprintf(out, "%s\terror: %s\n", v.ID, deref(v.ErrorMessage))
			failed++
		default:
			fmt.Fprintf(out, "%s\tvideo: %s\n", v.ID, deref(v.VideoURL))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d jobs did not complete", failed, len(handles))
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
