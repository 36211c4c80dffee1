package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hsuch/tfgo"
)

type point = map[string]float64

func mustRecord(t tfgo.MessageType, data any) tfgo.Record {
	r, err := tfgo.NewRecord(t, data)
	if err != nil {
		panic(err)
	}
	return r
}

func script() map[tfgo.Action][]tfgo.Record {
	players := []map[string]string{
		{"Name": "alice", "Icon": "fox"},
		{"Name": "bob", "Icon": "owl"},
	}
	corners := []point{{"X": 0, "Y": 0}, {"X": 100, "Y": 0}, {"X": 100, "Y": 100}, {"X": 0, "Y": 100}}

	return map[tfgo.Action][]tfgo.Record{
		tfgo.ActionShowGames: {
			mustRecord(tfgo.TypeAvailableGames, []map[string]any{{
				"ID":         "demo",
				"Name":       "Demo Game",
				"Mode":       tfgo.ModeSingleCapture,
				"Location":   point{"X": 50, "Y": 50},
				"PlayerList": players,
			}}),
		},
		tfgo.ActionJoinGame: {
			mustRecord(tfgo.TypePlayerListUpdate, players),
			mustRecord(tfgo.TypeGameInfo, map[string]any{
				"Description": "a demo match",
				"PlayerLimit": 8,
				"PointLimit":  100,
				"TimeLimit":   tfgo.FormatTimeLimit(10),
				"Boundaries":  corners,
				"PlayerList":  players,
			}),
		},
		tfgo.ActionStartGame: {
			mustRecord(tfgo.TypeGameStartInfo, map[string]any{
				"PlayerList": []map[string]string{{"Name": "alice", "Team": "Red"}, {"Name": "bob", "Team": "Blue"}},
				"Objectives": []map[string]any{{"ID": "CP1", "Location": point{"X": 50, "Y": 50}, "Radius": 5.0}},
				"Pickups":    []map[string]any{{"Location": point{"X": 20, "Y": 80}, "Type": "Health", "Amount": 25}},
				"RedBase":    map[string]any{"Location": point{"X": 90, "Y": 50}, "Radius": 8.0},
				"BlueBase":   map[string]any{"Location": point{"X": 10, "Y": 50}, "Radius": 8.0},
				"StartTime":  time.Now().Add(5 * time.Second).Format(time.RFC3339),
			}),
		},
		tfgo.ActionLocationUpdate: {
			mustRecord(tfgo.TypeVitalsUpdate, map[string]int{"Health": 100, "Armor": 0}),
		},
		tfgo.ActionLeaveGame: {
			mustRecord(tfgo.TypeLeaveGame, map[string]any{}),
		},
	}
}

func main() {
	addr := flag.String("addr", "127.0.0.1:9265", "listen address")
	chunk := flag.Int("chunk", 0, "split replies into chunks of this many bytes")
	flag.Parse()

	server, err := tfgo.NewFixtureServer(*addr)
	if err != nil {
		slog.Error("failed to create server", "error", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler := &tfgo.ScriptHandler{
		Replies:    script(),
		ChunkSize:  *chunk,
		ChunkDelay: 10 * time.Millisecond,
	}

	if err := server.Serve(ctx, handler); err != nil && ctx.Err() == nil {
		slog.Error("server error", "error", err.Error())
		os.Exit(1)
	}
}
