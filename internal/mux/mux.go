// Package mux combines separately fetched audio and video elementary streams
// into one fragmented MP4 by piping both through ffmpeg in stream-copy mode.
// No re-encoding happens here; ffmpeg only rewrites container framing.
package mux

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"fetchbot/pkg/buffer"
	"fetchbot/pkg/logger"
)

type Muxer struct {
	bin       string
	extraArgs []string
}

func New(bin string, extraArgs []string) (*Muxer, error) {
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("ffmpeg binary not found: %s", bin)
	}
	return &Muxer{bin: bin, extraArgs: extraArgs}, nil
}

// muxArgs builds the ffmpeg command line. Inputs arrive on fds 3 and 4
// (video, audio), output goes to stdout. The fragmented flags make the MP4
// writable front-to-back, since a pipe cannot seek back to patch the moov box.
func muxArgs(extra []string) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:3",
		"-i", "pipe:4",
		"-c", "copy",
		"-movflags", "frag_keyframe+empty_moov",
		"-f", "mp4",
	}
	args = append(args, extra...)
	return append(args, "pipe:1")
}

// Mux starts ffmpeg over the two elementary streams and returns the combined
// stream. A process failure surfaces as an error on the returned reader, never
// as silent truncation. Closing the reader tears the process down.
func (m *Muxer) Mux(ctx context.Context, video, audio io.Reader) (io.ReadCloser, error) {
	if err := checkResources(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)

	cmd := exec.CommandContext(ctx, m.bin, muxArgs(m.extraArgs)...)

	videoR, videoW, err := os.Pipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("video pipe failed: %w", err)
	}
	audioR, audioW, err := os.Pipe()
	if err != nil {
		cancel()
		videoR.Close()
		videoW.Close()
		return nil, fmt.Errorf("audio pipe failed: %w", err)
	}

	pr, pw := io.Pipe()
	var stderr bytes.Buffer
	cmd.ExtraFiles = []*os.File{videoR, audioR}
	cmd.Stdout = pw
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		cancel()
		videoR.Close()
		videoW.Close()
		audioR.Close()
		audioW.Close()
		return nil, fmt.Errorf("ffmpeg start failed: %w", err)
	}

	// The child holds its own copies of the read ends now.
	videoR.Close()
	audioR.Close()

	go feed(videoW, video)
	go feed(audioW, audio)

	go func() {
		err := cmd.Wait()
		if err != nil {
			msg := err.Error()
			if s := stderr.String(); s != "" {
				msg = s
			}
			logger.Error("Mux failed", "error", msg)
			pw.CloseWithError(fmt.Errorf("ffmpeg: %s", msg))
			return
		}
		pw.Close()
	}()

	return &muxStream{PipeReader: pr, cancel: cancel}, nil
}

// feed copies one elementary stream into ffmpeg and closes the pipe so ffmpeg
// sees EOF. If ffmpeg dies first, the broken pipe ends the copy.
func feed(w *os.File, r io.Reader) {
	defer w.Close()
	buf := buffer.Get()
	defer buffer.Put(buf)
	if _, err := io.CopyBuffer(w, r, buf); err != nil {
		logger.Debug("Mux input copy ended", "error", err)
	}
	if c, ok := r.(io.Closer); ok {
		c.Close()
	}
}

type muxStream struct {
	*io.PipeReader
	cancel context.CancelFunc
}

func (s *muxStream) Close() error {
	s.cancel()
	return s.PipeReader.Close()
}
