package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/justinabrahms/clockchess/internal/feed"
)

func main() {
	var (
		url   string
		debug bool
	)
	flag.StringVar(&url, "url", feed.DefaultURL, "Server WebSocket URL")
	flag.BoolVar(&debug, "debug", false, "Log every received message")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] GAME_ID\n\nFollows a live game and prints each move.\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	gameID := flag.Arg(0)

	// Setup logging
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	tracker := feed.NewTracker(gameID, log.Logger)
	client := feed.NewClient(gameID, func(e feed.Event) error {
		log.Debug().Str("type", string(e.Type)).Msg("Event")
		return tracker.ProcessEvent(e)
	}, feed.WithURL(url), feed.WithLogger(log.Logger))

	if err := client.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start feed")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("Stopping...")
	case <-client.Done():
	}
	if err := client.Stop(); err != nil {
		log.Debug().Err(err).Msg("Closing connection")
	}

	if san := tracker.SAN(); len(san) > 0 {
		fmt.Println(strings.Join(san, " "))
	}
	if res := tracker.Result(); res != nil {
		fmt.Println(res.Reason)
	}
}
