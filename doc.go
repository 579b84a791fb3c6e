// Package player plays a video file by decoding it, preferably on a hardware
// accelerator, and drawing each picture as a textured full-screen quad.
//
// The package holds the decode-to-display pipeline. Native capabilities are
// consumed through small interfaces implemented by sibling packages:
//   - ffmpeg: containers, hardware device contexts and decoders (go-astiav)
//   - window: the output window, input events and the tick counter (go-sdl2)
//   - gl: textures, the quad and the shader program (OpenGL via purego)
//
// # Architecture
//
//	MediaSource -> Negotiator -> DecodeContext
//	FrameProducer -> [FrameQueue] -> Presenter -> FrameUploader -> Texture -> draw
//
// Negotiator tries the configured accelerator first and falls back to a
// software decoder at most once, before any frame is decoded. Failing to
// create the hardware device itself is fatal.
//
// The Presenter pulls frames without blocking. ErrAgain means no frame is
// ready yet and the last texture is drawn again; ErrEndOfStream ends the loop
// after the current draw.
//
// # Teardown
//
// Session releases resources in a fixed order on every exit path: frame
// queue, texture, display, codec context, hardware device reference,
// demuxer. A codec context never outlives the device it references.
//
// # Errors
//
// Setup failures are *SetupError and stop the session before any playback.
// Per-packet decode failures are *DecodeError; the packet is dropped and
// decoding continues.
package player
