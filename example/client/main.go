package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hsuch/tfgo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger adapts a zap SugaredLogger to tfgo.Logger.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l zapLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l zapLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l zapLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func main() {
	configPath := flag.String("config", "", "config file (default: search for tfgo.yaml)")
	gameID := flag.String("join", "", "game ID to join after listing games")
	flag.Parse()

	cfg, err := tfgo.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}

	zl, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer zl.Sync()
	logger := zapLogger{s: zl.Sugar()}

	opts, err := cfg.Options()
	if err != nil {
		logger.Error("bad configuration", "error", err.Error())
		os.Exit(1)
	}
	opts = append(opts,
		tfgo.LoggerOption(logger),
		tfgo.OnEventOption(func(ev tfgo.Event) {
			switch e := ev.(type) {
			case tfgo.Gameover:
				logger.Info("winner announced", "team", e.Winner)
			case tfgo.JoinGameError:
				logger.Warn("join refused", "reason", e.Reason)
			case tfgo.AvailableGames:
				for _, g := range e.Games {
					logger.Info("game available", "id", g.ID, "name", g.Name, "mode", g.Mode, "players", len(g.Players))
				}
			}
		}),
		tfgo.OnErrorOption(func(err error) tfgo.ErrorAction {
			logger.Warn("batch failed", "error", err.Error())
			return tfgo.Continue
		}),
	)

	conn, err := tfgo.NewConn(cfg.Address(), opts...)
	if err != nil {
		logger.Error("failed to create connection", "error", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn.Connect(ctx)
	waitCtx, cancel := context.WithTimeout(ctx, cfg.Network.ConnectTimeout+time.Second)
	err = conn.WaitConnected(waitCtx)
	cancel()
	if err != nil {
		logger.Error("could not reach server", "addr", cfg.Address(), "error", err.Error())
		os.Exit(1)
	}

	store := tfgo.NewStore(cfg.User())
	session, err := tfgo.NewSession(conn, store)
	if err != nil {
		logger.Error("failed to create session", "error", err.Error())
		os.Exit(1)
	}

	if err := session.Send(tfgo.RegisterPlayerMessage(store.User())); err != nil {
		logger.Error("register failed", "error", err.Error())
		os.Exit(1)
	}
	if _, err := session.Exchange(ctx, tfgo.ShowGamesMessage()); err != nil {
		logger.Error("listing games failed", "error", err.Error())
		os.Exit(1)
	}

	if *gameID != "" {
		if store.SelectDiscovered(*gameID) {
			if err := session.Send(tfgo.JoinGameMessage(*gameID)); err != nil {
				logger.Error("join failed", "error", err.Error())
				os.Exit(1)
			}
		} else {
			logger.Warn("game not listed", "id", *gameID)
		}
	}

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !store.CurrentGame().Started() {
					continue
				}
				if err := session.Send(tfgo.LocationUpdateMessage(store.User())); err != nil {
					logger.Warn("location update failed", "error", err.Error())
				}
			}
		}
	}()

	if err := session.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("session error", "error", err.Error())
		os.Exit(1)
	}
}
