package main

import (
	"context"

	"github.com/thesyncim/player"
	"github.com/thesyncim/player/gl"
	"github.com/thesyncim/player/internal/logging"
	"github.com/thesyncim/player/window"
)

const (
	fallbackWidth  = 1280
	fallbackHeight = 720
)

// sdlDisplay opens an SDL window and a GL renderer on it. It logs through
// the logger carried by the context.
type sdlDisplay struct{}

func (sdlDisplay) OpenDisplay(ctx context.Context, video player.StreamInfo, settings player.WindowSettings) (*player.Display, error) {
	log := logging.FromContext(logging.WithComponent(ctx, "display"))

	width, height := settings.Width, settings.Height
	if width == 0 || height == 0 {
		width, height = video.Width, video.Height
	}
	if width <= 0 || height <= 0 {
		width, height = fallbackWidth, fallbackHeight
	}

	win, err := window.Open(window.Config{
		Title:  settings.Title,
		Width:  width,
		Height: height,
		VSync:  settings.VSync,
		Log:    log,
	})
	if err != nil {
		return nil, err
	}

	renderer, err := gl.New(win.ProcAddress, gl.Config{Log: log})
	if err != nil {
		win.Close()
		return nil, err
	}

	log.Debug().Int("width", width).Int("height", height).Msg("display opened")
	return &player.Display{
		Window:   win,
		Renderer: renderer,
		Counter:  window.Counter{},
	}, nil
}
