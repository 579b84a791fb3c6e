package player

import (
	"errors"
	"fmt"
)

// QueueSettings configures the optional frame queue.
type QueueSettings struct {
	Enabled  bool   `mapstructure:"enabled"`
	Capacity int    `mapstructure:"capacity"`
	Pacing   string `mapstructure:"pacing"`
}

// WindowSettings configures the output window. Zero width or height uses the
// video dimensions.
type WindowSettings struct {
	Title  string `mapstructure:"title"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	VSync  bool   `mapstructure:"vsync"`
}

// Config holds player configuration.
type Config struct {
	Accel          string         `mapstructure:"accel"`
	HWDevice       string         `mapstructure:"hw_device"`
	DecoderThreads int            `mapstructure:"decoder_threads"`
	ScaleMode      string         `mapstructure:"scale_mode"`
	Queue          QueueSettings  `mapstructure:"queue"`
	Window         WindowSettings `mapstructure:"window"`
}

// DefaultConfig returns the default configuration: VAAPI decoding with
// software fallback, a stretched picture and a paced two-frame queue.
func DefaultConfig() Config {
	return Config{
		Accel:          AccelVAAPI.String(),
		DecoderThreads: 0,
		ScaleMode:      ScaleModeStretch.String(),
		Queue: QueueSettings{
			Enabled:  true,
			Capacity: DefaultQueueCapacity,
			Pacing:   PacingPTS.String(),
		},
		Window: WindowSettings{
			Title: "player",
			VSync: true,
		},
	}
}

// Validate checks the configuration and reports every problem found.
func (c Config) Validate() error {
	var errs []error
	if _, err := ParseAccelKind(c.Accel); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseScaleMode(c.ScaleMode); err != nil {
		errs = append(errs, err)
	}
	if c.DecoderThreads < 0 {
		errs = append(errs, fmt.Errorf("decoder_threads must be >= 0, got %d", c.DecoderThreads))
	}
	if c.Queue.Enabled {
		if c.Queue.Capacity < MinQueueCapacity || c.Queue.Capacity > MaxQueueCapacity {
			errs = append(errs, fmt.Errorf("queue.capacity must be in [%d, %d], got %d",
				MinQueueCapacity, MaxQueueCapacity, c.Queue.Capacity))
		}
		if _, err := ParsePacing(c.Queue.Pacing); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Window.Width < 0 || c.Window.Height < 0 {
		errs = append(errs, fmt.Errorf("window size must not be negative, got %dx%d",
			c.Window.Width, c.Window.Height))
	}
	return errors.Join(errs...)
}

// AccelKind returns the parsed accelerator kind.
func (c Config) AccelKind() AccelKind {
	k, _ := ParseAccelKind(c.Accel)
	return k
}

// Scale returns the parsed scale mode.
func (c Config) Scale() ScaleMode {
	m, _ := ParseScaleMode(c.ScaleMode)
	return m
}

// HeldFrames is the most decoded frames the player keeps referenced outside
// the decoder: the one being presented, plus the queued frames and the one
// held by the pacing worker when the queue is enabled.
func (c Config) HeldFrames() int {
	if !c.Queue.Enabled {
		return 1
	}
	return c.Queue.Capacity + 2
}

// QueuePacing returns the parsed queue pacing.
func (c Config) QueuePacing() Pacing {
	p, _ := ParsePacing(c.Queue.Pacing)
	return p
}
