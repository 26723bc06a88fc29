package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	L       *zap.Logger
	S       *zap.SugaredLogger
	logFile *os.File
)

// Init initializes the global logger. Logs are written to scedit.log next
// to editor.ini, or to $SCEDIT_LOG_FILE.
func Init(debug bool) error {
	logPath, err := getLogPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return err
	}

	// Truncated on each run.
	logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(logFile),
		level,
	)

	// Skip one frame so the helpers below report their caller.
	L = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	S = L.Sugar()

	S.Infow("logger initialized", "path", logPath, "debug", debug)
	return nil
}

// Close flushes and closes the logger
func Close() {
	if L != nil {
		_ = L.Sync()
	}
	if logFile != nil {
		_ = logFile.Close()
	}
}

func getLogPath() (string, error) {
	if v := os.Getenv("SCEDIT_LOG_FILE"); v != "" {
		return v, nil
	}
	if v := os.Getenv("SCEDIT_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "scedit.log"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".novx", "config", "scedit.log"), nil
}

// Project returns a logger whose entries name the project file.
func Project(path string) *zap.SugaredLogger {
	return scoped(projectFields(path)...)
}

// Section returns a logger for one section editor. Its entries name the
// project file and carry the section ID.
func Section(project, id string) *zap.SugaredLogger {
	return scoped(append(projectFields(project), "section", id)...)
}

func projectFields(path string) []interface{} {
	if path == "" {
		return nil
	}
	return []interface{}{"project", filepath.Base(path)}
}

// scoped loggers are used directly, so they drop the caller skip the
// helpers below need. Before Init they discard everything.
func scoped(keysAndValues ...interface{}) *zap.SugaredLogger {
	if L == nil {
		return zap.NewNop().Sugar()
	}
	return L.WithOptions(zap.AddCallerSkip(-1)).Sugar().With(keysAndValues...)
}

// Convenience functions; all of them are no-ops until Init succeeds.

func Debug(msg string, keysAndValues ...interface{}) {
	if S != nil {
		S.Debugw(msg, keysAndValues...)
	}
}

func Info(msg string, keysAndValues ...interface{}) {
	if S != nil {
		S.Infow(msg, keysAndValues...)
	}
}

func Warn(msg string, keysAndValues ...interface{}) {
	if S != nil {
		S.Warnw(msg, keysAndValues...)
	}
}

func Error(msg string, keysAndValues ...interface{}) {
	if S != nil {
		S.Errorw(msg, keysAndValues...)
	}
}
