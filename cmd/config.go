package cmd

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"debugir.dev/pkg/debugir/internal/adapter"
	"debugir.dev/pkg/debugir/internal/controller"
	"debugir.dev/pkg/debugir/internal/domain"
	m "debugir.dev/pkg/debugir/internal/model"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "debugir"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	instNamerFlagName    = "instnamer"
	parallelFlagName     = "parallel"
	debugSuffixFlagName  = "debug-suffix"
	verifyFlagName       = "verify"
	lineMapFlagName      = "line-map"
	producerFlagName     = "producer"
	dwarfVersionFlagName = "dwarf-version"
	absoluteDirFlagName  = "absolute-dir"
	formatFlagName       = "format"
	debounceFlagName     = "debounce"
	verboseFlagName      = "verbose"
	logFileFlagName      = "log-file"

	instNamerKey    = "instnamer"
	parallelKey     = "parallel"
	verifyKey       = "verify"
	debugSuffixKey  = "output.debug_suffix"
	lineMapKey      = "output.line_map"
	producerKey     = "debug.producer"
	dwarfVersionKey = "debug.dwarf_version"
	absoluteDirKey  = "debug.absolute_dir"
	formatKey       = "lines.format"
	debounceKey     = "watch.debounce"

	defaultInstNamer   = false
	defaultParallel    = 1
	defaultVerify      = false
	defaultLineMap     = false
	defaultAbsoluteDir = true

	envPrefix = "DEBUGIR"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".debugir.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(instNamerKey, defaultInstNamer)
	viper.SetDefault(parallelKey, defaultParallel)
	viper.SetDefault(verifyKey, defaultVerify)
	viper.SetDefault(debugSuffixKey, m.DefaultDebugSuffix)
	viper.SetDefault(lineMapKey, defaultLineMap)
	viper.SetDefault(producerKey, domain.DefaultProducer)
	viper.SetDefault(dwarfVersionKey, domain.DefaultDwarfVersion)
	viper.SetDefault(absoluteDirKey, defaultAbsoluteDir)
	viper.SetDefault(formatKey, controller.FormatTable)
	viper.SetDefault(debounceKey, adapter.DefaultDebounce.String())

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to read config", "file", viper.ConfigFileUsed(), "error", err)
		}
	}
}

// synthesisArgs collects the settings every synthesizing command shares.
func synthesisArgs() domain.SynthesisArgs {
	return domain.SynthesisArgs{
		InstNamer:   viper.GetBool(instNamerKey),
		DebugSuffix: viper.GetString(debugSuffixKey),
		AbsoluteDir: viper.GetBool(absoluteDirKey),
		Options: domain.Options{
			Producer:     viper.GetString(producerKey),
			DwarfVersion: viper.GetInt(dwarfVersionKey),
		},
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Numeric slog levels are accepted too (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
