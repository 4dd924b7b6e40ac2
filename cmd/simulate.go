package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/grabnode/internal/camera"
	"github.com/smazurov/grabnode/internal/config"
	"github.com/smazurov/grabnode/internal/logging"
	"github.com/smazurov/grabnode/internal/provider/sim"
)

// CreateSimulateCmd creates the simulate command.
func CreateSimulateCmd() *cobra.Command {
	var (
		configFile string
		interval   time.Duration
		hold       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a camera lifecycle against the simulated provider",
		Long: `Creates one simulated camera with two subscriptions, starts both feeds, ` +
			`switches the acquisition mode, grabs an image and stops the feeds, printing every transition.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			logging.Initialize(config.LoadLoggingConfig(configFile))
			return runSimulate(c.Context(), c.OutOrStdout(), interval, hold)
		},
	}

	cmd.Flags().StringVar(&configFile, "logging-config", "config.toml", "Configuration file with a [logging] table")
	cmd.Flags().DurationVar(&interval, "frame-interval", 50*time.Millisecond, "Interval between synthetic frames")
	cmd.Flags().DurationVar(&hold, "hold", 300*time.Millisecond, "How long each phase keeps feeds running")
	return cmd
}

func runSimulate(ctx context.Context, out io.Writer, interval, hold time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out = &lockedWriter{w: out}

	provider := sim.New(sim.Options{FrameInterval: interval, Logger: logging.GetLogger("sim")})
	defer provider.Close()

	var frames atomic.Uint64
	cam := camera.New(camera.Identity{ID: 1, Model: "SIM", Serial: "SIM-0001", Name: "sim"}, camera.Options{
		Provider: provider,
		Logger:   logging.GetLogger("camera"),
		Hooks: camera.Hooks{
			OnAcquisition: func(c *camera.Camera, r camera.Result) {
				fmt.Fprintf(out, "acquisition %s: acquiring=%t result=%s\n", c.Desc(), r.Acquiring, r.Kind)
			},
			OnFeed: func(s *camera.Subscription, subscribed bool) {
				fmt.Fprintf(out, "feed %s: subscribed=%t\n", s.Name(), subscribed)
			},
			OnMode: func(c *camera.Camera, from, to camera.AcquisitionMode) {
				fmt.Fprintf(out, "mode %s: %s -> %s\n", c.Desc(), from, to)
			},
		},
	})

	count := func(camera.Frame, *camera.Subscription) { frames.Add(1) }
	preview := cam.CreateSubscription(count)
	preview.SetName("preview")
	archive := cam.CreateSubscription(count)
	archive.SetName("archive")
	if err := archive.SetViewport(ctx, camera.Viewport{Width: 640, Height: 480, Scale: 0.5}); err != nil {
		return err
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"start preview", func() error { return preview.StartFeed(ctx, false) }},
		{"start archive", func() error { return archive.StartFeed(ctx, false) }},
		{"hold", func() error { return sleep(ctx, hold) }},
		{"switch to external trigger", func() error { return cam.SwitchAcquisitionMode(ctx, camera.ExternalTrigger) }},
		{"grab", func() error {
			v, err := cam.GrabImage(ctx, "", nil)
			if capture, ok := v.(*sim.Capture); ok {
				fmt.Fprintf(out, "grabbed %dx%d frame\n", capture.Frame.Width, capture.Frame.Height)
			}
			return err
		}},
		// Silent, so acquisition keeps running for archive.
		{"stop preview", func() error { return preview.StopFeed(ctx, true) }},
		{"hold", func() error { return sleep(ctx, hold) }},
		{"stop archive", func() error { return archive.StopFeed(ctx, false) }},
	}

	for _, step := range steps {
		fmt.Fprintf(out, "== %s\n", step.name)
		if err := step.run(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	if err := cam.Close(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "done: acquiring=%t frames=%d\n", cam.IsAcquiring(), frames.Load())
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// lockedWriter serializes hook output, which arrives from provider goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
