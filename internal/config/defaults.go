package config

const (
	defaultConfigPath = "~/.config/audiochain/config.toml"
	projectConfigName = "audiochain.toml"

	defaultWorkDir     = "~/.cache/audiochain/work"
	defaultLogDir      = "~/.local/share/audiochain/logs"
	defaultJournalPath = "~/.local/share/audiochain/journal.db"

	defaultFFmpeg  = "ffmpeg"
	defaultFFprobe = "ffprobe"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	envFFmpeg  = "AUDIOCHAIN_FFMPEG"
	envFFprobe = "AUDIOCHAIN_FFPROBE"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:     defaultWorkDir,
			LogDir:      defaultLogDir,
			JournalPath: defaultJournalPath,
		},
		Engine: Engine{
			FFmpeg:           defaultFFmpeg,
			FFprobe:          defaultFFprobe,
			CleanupOnFailure: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Journal: Journal{
			Enabled: true,
		},
	}
}
