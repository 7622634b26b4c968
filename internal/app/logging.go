package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/swrcache"
	"github.com/unkn0wn-root/swrcache/internal/config"
	swrlogrus "github.com/unkn0wn-root/swrcache/log/logrus"
	swrslog "github.com/unkn0wn-root/swrcache/log/slog"
	swrzap "github.com/unkn0wn-root/swrcache/log/zap"
	swrzerolog "github.com/unkn0wn-root/swrcache/log/zerolog"
)

// newLogger builds the configured backend writing to w. sync flushes buffered
// output on exit.
func newLogger(cfg config.Log, w io.Writer) (swrcache.Logger, func() error, error) {
	nop := func() error { return nil }
	switch cfg.Backend {
	case "", "zap":
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		if cfg.Format == "console" {
			enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		}
		zl := zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), lvl))
		return swrzap.New(zl), zl.Sync, nil
	case "logrus":
		lvl, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		ll := logrus.New()
		ll.SetOutput(w)
		ll.SetLevel(lvl)
		if cfg.Format == "console" {
			ll.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		} else {
			ll.SetFormatter(&logrus.JSONFormatter{})
		}
		return swrlogrus.New(ll), nop, nil
	case "zerolog":
		lvl, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		out := w
		if cfg.Format == "console" {
			out = zerolog.ConsoleWriter{Out: w}
		}
		return swrzerolog.New(zerolog.New(out).Level(lvl).With().Timestamp().Logger()), nop, nil
	case "slog":
		sl, err := newSlog(cfg, w)
		if err != nil {
			return nil, nil, err
		}
		return swrslog.New(sl), nop, nil
	}
	return nil, nil, fmt.Errorf("app: unknown log backend %q", cfg.Backend)
}

// newSlog backs the slog adapter and the event log hooks.
func newSlog(cfg config.Log, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if cfg.Format == "console" {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}
