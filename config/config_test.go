package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fetchbot/config"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values", func(t *testing.T) {
		// Ensure no env vars linger from other tests.
		t.Setenv("FETCHBOT_MAX_ACTIVE_JOBS", "")
		t.Setenv("FETCHBOT_EDIT_GAP", "")
		t.Setenv("FETCHBOT_MAX_HEIGHT", "")
		t.Setenv("FETCHBOT_MAX_FILE_SIZE", "")
		t.Setenv("FETCHBOT_JOB_TIMEOUT", "")

		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, 2, cfg.MaxActiveJobs)
		assert.Equal(t, 2*time.Second, cfg.EditGap)
		assert.Equal(t, 720, cfg.MaxHeight)
		assert.Equal(t, int64(50*1024*1024), cfg.MaxFileSize)
		assert.Equal(t, "ffmpeg", cfg.FFmpegBin)
		assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
		assert.Equal(t, 10*time.Minute, cfg.JobTimeout)
	})

	t.Run("environment variables override defaults", func(t *testing.T) {
		t.Setenv("FETCHBOT_MAX_ACTIVE_JOBS", "5")
		t.Setenv("FETCHBOT_EDIT_GAP", "3s")
		t.Setenv("FETCHBOT_MAX_HEIGHT", "480")
		t.Setenv("FETCHBOT_MAX_FILE_SIZE", "1MB")
		t.Setenv("FETCHBOT_FFMPEG_BIN", "/usr/local/bin/ffmpeg")

		cfg, err := config.Load()
		require.NoError(t, err)

		assert.Equal(t, 5, cfg.MaxActiveJobs)
		assert.Equal(t, 3*time.Second, cfg.EditGap)
		assert.Equal(t, 480, cfg.MaxHeight)
		assert.Equal(t, int64(1024*1024), cfg.MaxFileSize)
		assert.Equal(t, "/usr/local/bin/ffmpeg", cfg.FFmpegBin)
	})
}

func TestMuxerArgs(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		cfg := &config.Config{}
		args, err := cfg.MuxerArgs()
		require.NoError(t, err)
		assert.Nil(t, args)
	})

	t.Run("splits shell-style", func(t *testing.T) {
		cfg := &config.Config{FFmpegExtraArgs: `-metadata title="two words" -threads 2`}
		args, err := cfg.MuxerArgs()
		require.NoError(t, err)
		assert.Equal(t, []string{"-metadata", "title=two words", "-threads", "2"}, args)
	})

	t.Run("rejects unbalanced quoting", func(t *testing.T) {
		cfg := &config.Config{FFmpegExtraArgs: `-metadata "unterminated`}
		_, err := cfg.MuxerArgs()
		assert.Error(t, err)
	})
}
