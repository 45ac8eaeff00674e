package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/google/shlex"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	BotToken   string `mapstructure:"BOT_TOKEN"`
	AppID      int    `mapstructure:"APP_ID"`
	AppHash    string `mapstructure:"APP_HASH"`
	SessionDir string `mapstructure:"SESSION_DIR"`

	// Admission control: how many jobs may run extraction + delivery at once.
	MaxActiveJobs int `mapstructure:"MAX_ACTIVE_JOBS"`

	// Minimum spacing between status-message edits per chat. Telegram caps
	// message edits per chat; bursts of queue-position updates must stay under it.
	EditGap time.Duration `mapstructure:"EDIT_GAP"`

	// Resolution ceiling for video encodings. Encodings above it are never
	// selected, even when the upstream offers them.
	MaxHeight int `mapstructure:"MAX_HEIGHT"`

	// Largest media payload the bot will deliver.
	MaxFileSize int64 `mapstructure:"MAX_FILE_SIZE"`

	FFmpegBin       string `mapstructure:"FFMPEG_BIN"`
	FFmpegExtraArgs string `mapstructure:"FFMPEG_EXTRA_ARGS"`

	FetchTimeout time.Duration `mapstructure:"FETCH_TIMEOUT"`
	JobTimeout   time.Duration `mapstructure:"JOB_TIMEOUT"`
}

// MuxerArgs splits FFMPEG_EXTRA_ARGS shell-style so quoted values survive.
func (c *Config) MuxerArgs() ([]string, error) {
	if c.FFmpegExtraArgs == "" {
		return nil, nil
	}
	args, err := shlex.Split(c.FFmpegExtraArgs)
	if err != nil {
		return nil, fmt.Errorf("bad FFMPEG_EXTRA_ARGS: %w", err)
	}
	return args, nil
}

func stringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return time.ParseDuration(data.(string))
	}
}

func stringToByteSizeHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Int64 {
			return data, nil
		}

		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(data.(string))); err != nil {
			// Not a size string, let other parsers handle it.
			return data, nil
		}
		return int64(size.Bytes()), nil
	}
}

func Load() (*Config, error) {
	vp := viper.New()

	vp.SetDefault("BOT_TOKEN", "")
	vp.SetDefault("APP_ID", 0)
	vp.SetDefault("APP_HASH", "")
	vp.SetDefault("SESSION_DIR", ".session")
	vp.SetDefault("MAX_ACTIVE_JOBS", 2)
	vp.SetDefault("EDIT_GAP", "2s")
	vp.SetDefault("MAX_HEIGHT", 720)
	vp.SetDefault("MAX_FILE_SIZE", "50MB")
	vp.SetDefault("FFMPEG_BIN", "ffmpeg")
	vp.SetDefault("FFMPEG_EXTRA_ARGS", "")
	vp.SetDefault("FETCH_TIMEOUT", "30s")
	vp.SetDefault("JOB_TIMEOUT", "10m")

	vp.SetConfigName("fetchbot_config")
	vp.SetConfigType("yaml")
	vp.AddConfigPath(".")
	vp.AddConfigPath("/etc/fetchbot/")

	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	vp.SetEnvPrefix("FETCHBOT")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	var cfg Config
	err := vp.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			stringToDurationHookFunc(),
			stringToByteSizeHookFunc(),
		),
	))
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
