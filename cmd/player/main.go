// Command player plays a video file with hardware-accelerated decoding.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thesyncim/player"
	"github.com/thesyncim/player/ffmpeg"
	"github.com/thesyncim/player/internal/config"
	"github.com/thesyncim/player/internal/logging"
)

func init() {
	// SDL and the GL context must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "player [flags] <media-file>",
		Short: "Play a video file with hardware-accelerated decoding",
		Long: `Play a video file, decoding on a hardware accelerator when one is
available and falling back to software decoding otherwise.

Press Escape or q, or close the window, to quit.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Usage()
			}
			settings, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			return play(cmd.Context(), settings, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/player/config.yaml)")
	f.String("accel", "", "hardware accelerator: vaapi, cuda, vdpau, qsv, videotoolbox, d3d11va, drm or none")
	f.String("hw-device", "", "hardware device path, e.g. /dev/dri/renderD128")
	f.Int("threads", 0, "decoder threads (0 lets the decoder decide)")
	f.String("scale-mode", "", "picture scaling: stretch, fit or fill")
	f.Bool("queue", true, "decode on a worker goroutine through a bounded frame queue")
	f.String("pacing", "", "frame queue pacing: pts or none")
	f.Bool("vsync", true, "synchronise buffer swaps with the display")
	f.String("log-level", "", "log level: trace, debug, info, warn or error")
	f.String("log-format", "", "log format: console or json")

	return cmd
}

func play(ctx context.Context, settings config.Settings, path string) error {
	ctx = logging.WithMedia(logging.WithContext(ctx, logging.New(settings.Logging())), path)
	log := logging.FromContext(ctx)
	ffmpeg.SetLogger(log)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := player.NewSession(settings.Config, player.Backends{
		Demuxer: ffmpeg.Opener{},
		Decoder: ffmpeg.NewBackend(ffmpeg.BackendConfig{
			Threads:             settings.DecoderThreads,
			ExtraHardwareFrames: settings.HeldFrames(),
			Log:                 log,
		}),
		Display: sdlDisplay{},
	}, log)
	if err != nil {
		return err
	}

	if err := session.Play(ctx, path); err != nil {
		log.Error().Err(err).Bool("setup", player.IsFatalSetup(err)).Msg("playback failed")
		return err
	}

	done := logging.FromContext(logging.WithSessionStats(ctx, session.Stats()))
	done.Info().Msg("playback finished")
	return nil
}
