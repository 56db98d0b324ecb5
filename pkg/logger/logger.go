// Package logger provides the leveled, colored logging used by every esxm
// command. Console output is human oriented (colored level tags, no
// timestamps unless verbose); an optional JSON file sink, rotated by
// lumberjack, captures everything at debug level for later inspection.
//
// Initialize the global logger once at process start:
//
//	opts := logger.DefaultOptions()
//	opts.Verbose = true
//	logger.Init(opts)
//	defer logger.SyncGlobal()
package logger

import (
	"os"
	"sync"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures a Logger.
type Options struct {
	// Verbose lowers the console threshold to debug and adds timestamps.
	Verbose bool
	// ColorConsole enables colored level tags on the console sink.
	ColorConsole bool
	// FileOutput enables the rotating JSON file sink.
	FileOutput bool
	// LogFilePath is the file sink path. Ignored unless FileOutput is set.
	LogFilePath string
}

// DefaultOptions logs INFO+ to a colored console and keeps the file sink
// disabled.
func DefaultOptions() Options {
	return Options{
		ColorConsole: true,
		LogFilePath:  "esxm.log",
	}
}

// Logger wraps a zap sugared logger with the SUCCESS/FAIL conventions the
// CLI output uses.
type Logger struct {
	s       *zap.SugaredLogger
	colored bool
}

var (
	global   *Logger
	globalMu sync.RWMutex
)

// Init installs the global logger. Safe to call more than once; the last
// call wins.
func Init(opts Options) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = New(opts)
}

// Get returns the global logger, initializing a default one if Init was
// never called.
func Get() *Logger {
	globalMu.RLock()
	l := global
	globalMu.RUnlock()
	if l != nil {
		return l
	}
	Init(DefaultOptions())
	return Get()
}

// SyncGlobal flushes any buffered log entries on the global logger.
func SyncGlobal() {
	if l := Get(); l != nil {
		_ = l.Sync()
	}
}

// New builds a Logger from options.
func New(opts Options) *Logger {
	consoleLevel := zapcore.InfoLevel
	if opts.Verbose {
		consoleLevel = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if opts.ColorConsole {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if !opts.Verbose {
		// Operator-facing output: level tag and message only.
		encCfg.TimeKey = ""
		encCfg.CallerKey = ""
	}

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stdout),
			consoleLevel,
		),
	}

	if opts.FileOutput {
		fileEncCfg := zap.NewProductionEncoderConfig()
		fileEncCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		fileSink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.LogFilePath,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileEncCfg),
			fileSink,
			zapcore.DebugLevel,
		))
	}

	z := zap.New(zapcore.NewTee(cores...))
	return &Logger{s: z.Sugar(), colored: opts.ColorConsole}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error { return l.s.Sync() }

func (l *Logger) Debugf(format string, args ...interface{}) { l.s.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.s.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.s.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.s.Errorf(format, args...) }

func (l *Logger) Debug(args ...interface{}) { l.s.Debug(args...) }
func (l *Logger) Info(args ...interface{})  { l.s.Info(args...) }
func (l *Logger) Warn(args ...interface{})  { l.s.Warn(args...) }
func (l *Logger) Error(args ...interface{}) { l.s.Error(args...) }

// Successf logs completion of a significant operation, tagged distinctively
// on the console.
func (l *Logger) Successf(format string, args ...interface{}) {
	l.s.Infof(l.tag("SUCCESS", color.FgGreen)+format, args...)
}

// Failf logs a critical failure and exits the process with status 1.
func (l *Logger) Failf(format string, args ...interface{}) {
	l.s.Errorf(l.tag("FAIL", color.FgRed)+format, args...)
	_ = l.Sync()
	os.Exit(1)
}

func (l *Logger) tag(name string, c color.Attribute) string {
	if l.colored {
		return color.New(c, color.Bold).Sprintf("[%s] ", name)
	}
	return "[" + name + "] "
}

// Package-level helpers operating on the global logger.

func Debugf(format string, args ...interface{})   { Get().Debugf(format, args...) }
func Infof(format string, args ...interface{})    { Get().Infof(format, args...) }
func Warnf(format string, args ...interface{})    { Get().Warnf(format, args...) }
func Errorf(format string, args ...interface{})   { Get().Errorf(format, args...) }
func Successf(format string, args ...interface{}) { Get().Successf(format, args...) }
