// Package logging builds the logger of the command-line tool.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/bnema/adblock-engine/internal/models"
)

const (
	// ErrBadLevel is returned for unknown level names.
	ErrBadLevel errors.Error = "bad log level"

	// ErrBadFormat is returned for unknown format names.
	ErrBadFormat errors.Error = "bad log format"
)

// New returns a logger writing to out as described by conf.  Empty fields
// mean the info level and the default format.
func New(conf *models.LogConfig, out io.Writer) (l *slog.Logger, err error) {
	lvl, err := parseLevel(conf.Level)
	if err != nil {
		return nil, err
	}

	f, err := parseFormat(conf.Format)
	if err != nil {
		return nil, err
	}

	return slogutil.New(&slogutil.Config{
		Output:       out,
		Format:       f,
		Level:        lvl,
		AddTimestamp: conf.Timestamp,
	}), nil
}

// parseLevel returns the level named s.
func parseLevel(s string) (lvl slog.Level, err error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrBadLevel, s)
	}
}

// parseFormat returns the format named s.
func parseFormat(s string) (f slogutil.Format, err error) {
	switch strings.ToLower(s) {
	case "", "default":
		return slogutil.FormatDefault, nil
	case "text":
		return slogutil.FormatText, nil
	case "json":
		return slogutil.FormatJSON, nil
	case "adguard_legacy":
		return slogutil.FormatAdGuardLegacy, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrBadFormat, s)
	}
}
