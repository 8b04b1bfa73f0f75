// Command tankwars-client is a headless TankWars client. It logs the
// scoreboard as it changes and, with -bot, plays on its own.
package main

import (
	"context"
	"errors"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abporter521/CS3500-TankWars/internal/client"
	"github.com/abporter521/CS3500-TankWars/internal/logging"
	"github.com/abporter521/CS3500-TankWars/internal/util"
)

const botInterval = 250 * time.Millisecond

func main() {
	os.Exit(run())
}

func run() int {
	host := flag.String("host", "localhost", "server host")
	port := flag.Int("port", 11000, "server port")
	name := flag.String("name", "player", "player name")
	bot := flag.Bool("bot", false, "drive the tank with random input")
	level := flag.String("log-level", "info", "log level")
	timeout := flag.Duration("connect-timeout", 5*time.Second, "connect timeout")
	flag.Parse()

	slogManager := logging.NewSlogManager()
	slogManager.Setup(logging.Options{Level: *level, Console: os.Stderr, ServiceName: "tankwars-client"})
	log := slogManager.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed := make(chan error, 1)
	board := NewScoreboard()
	updates := make(chan []Entry, 1)

	ctrl := client.New(client.Config{ConnectTimeout: *timeout, Logger: log})
	ctrl.OnError(func(err error) {
		select {
		case failed <- err:
		default:
		}
	})
	ctrl.OnUpdate(func(m *client.Mirror) {
		if !board.Update(m.Snapshot().Tanks) {
			return
		}
		rows := board.Rows()
		select {
		case updates <- rows:
		default:
			// drop a stale board in favour of the newest one
			select {
			case <-updates:
			default:
			}
			updates <- rows
		}
	})

	if err := ctrl.Connect(ctx, *host, *port, *name); err != nil {
		log.Error("Failed to connect", "error", err)
		return 1
	}
	defer ctrl.Close()

	var tick <-chan time.Time
	var player *Bot
	if *bot {
		ticker := time.NewTicker(botInterval)
		defer ticker.Stop()
		tick = ticker.C
		player = NewBot(rand.New(rand.NewSource(time.Now().UnixNano())))
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("Disconnecting")
			return 0
		case err := <-failed:
			log.Error("Connection lost", "error", err)
			return 1
		case rows := <-updates:
			log.Info("Scoreboard changed", "size", util.Plural(len(rows), "player"))
			for i, r := range rows {
				log.Info("Score", "rank", i+1, "name", r.Name, "score", r.Score, "tank", r.TankID)
			}
		case <-tick:
			if err := player.Step(ctrl); err != nil && !errors.Is(err, client.ErrNotStreaming) {
				log.Warn("Bot input failed", "error", err)
			}
		}
	}
}
