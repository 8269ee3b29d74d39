package report

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	level     = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	loggerRaw *zap.Logger
	logger    *zap.SugaredLogger
)

func init() {
	cfg := zap.NewDevelopmentConfig()
	cfg.Development = false
	cfg.Level = level
	cfg.DisableStacktrace = true
	raw, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	loggerRaw = raw.Named("report")
	logger = loggerRaw.Sugar()
}

// SetVerbose switches debug output of the reports on or off.
func SetVerbose(verbose bool) {
	if verbose {
		level.SetLevel(zapcore.DebugLevel)
		return
	}
	level.SetLevel(zapcore.InfoLevel)
}

func Debugw(msg string, keysAndValues ...interface{}) {
	logger.Debugw(msg, keysAndValues...)
}

func Infow(msg string, keysAndValues ...interface{}) {
	logger.Infow(msg, keysAndValues...)
}

func Errorw(msg string, keysAndValues ...interface{}) {
	logger.Errorw(msg, keysAndValues...)
}

func Sync() {
	_ = loggerRaw.Sync()
}
