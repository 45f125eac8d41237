package ipwry

import (
	"fmt"
	"io"
	"os"

	"github.com/op/go-logging"
)

const logModule = "ipwry"

var logger = logging.MustGetLogger(logModule)

func init() {
	logging.SetLevel(logging.WARNING, logModule)
}

// InitLogger installs the console formatter and applies the log level and
// destination from cfg. Debug wins over LogLevel; an empty LogFile means stderr.
func InitLogger(cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	level, err := cfg.logLevel()
	if err != nil {
		return err
	}

	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("could not open log file %q: %w", cfg.LogFile, err)
		}
		out = f
	}

	format := logging.MustStringFormatter(
		`%{color}%{time:06-01-02 15:04:05.000} %{level:.4s} @%{shortfile}%{color:reset} %{message}`,
	)
	logging.SetFormatter(format)
	logging.SetBackend(logging.NewLogBackend(out, "", 0))
	logging.SetLevel(level, logModule)
	return nil
}

func (c *Config) logLevel() (logging.Level, error) {
	if c.Debug {
		return logging.DEBUG, nil
	}
	if c.LogLevel == "" {
		return logging.INFO, nil
	}
	level, err := logging.LogLevel(c.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("bad log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// GetLogger returns the package logger.
func GetLogger() *logging.Logger {
	return logger
}
