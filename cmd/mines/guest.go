package main

import (
	"context"
	"fmt"

	"github.com/lawnchairsociety/minedepths/internal/config"
	"github.com/lawnchairsociety/minedepths/internal/events"
	"github.com/lawnchairsociety/minedepths/internal/gametime"
	"github.com/lawnchairsociety/minedepths/internal/logger"
	"github.com/lawnchairsociety/minedepths/internal/mine"
	"github.com/lawnchairsociety/minedepths/internal/netsync"
	"github.com/lawnchairsociety/minedepths/internal/seed"
)

// guestParticipant is the name the guest registry polls its queue as.
const guestParticipant = "local"

// runGuest joins a host relay, regenerates the player's level from the
// host's seed and day, and mirrors host events into it until ctx ends.
// The guest never writes progress; the host owns persistence.
func runGuest(ctx context.Context, cfg *config.Config, url, player string, level int) error {
	queue := events.NewQueue()
	client, err := netsync.Dial(ctx, url, queue)
	if err != nil {
		return err
	}
	defer client.Close()
	logger.Info("Joined host relay", "url", url, "participant", client.Welcome.Participant,
		"seed", client.Welcome.Seed, "day", client.Welcome.Day)

	session := mine.NewLocalSession(gametime.NewCalendar(client.Welcome.Day), false)
	session.SetPlayer(mine.PlayerState{Name: player, Level: level})

	opts := engineOptions(cfg)
	opts.Seeds = seed.NewProvider(client.Welcome.Seed)
	opts.Store = mine.NewMemoryStore()
	opts.Queue = queue
	opts.Session = session
	opts.Participant = guestParticipant
	registry := mine.NewRegistry(opts)

	l := registry.EnterLevel(level)
	logger.Info("Entered mine level", "level", l.Number, "area", l.Area.String(),
		"map", l.MapAsset, "stones", l.StonesRemaining, "monsters", l.MonsterCount())

	if err := client.Send(netsync.Action{Kind: netsync.ActionEnterLevel, Player: player, Level: level}); err != nil {
		return fmt.Errorf("failed to announce level: %w", err)
	}

	runErr := make(chan error, 1)
	go func() { runErr <- client.Run(ctx) }()

	guestCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := <-runErr; err != nil {
			logger.Error("Host relay error", "error", err)
		}
		cancel()
	}()

	run(guestCtx, registry, nil, cfg.Mines)

	if ctx.Err() != nil {
		// Best effort; the host also frees the participant when the socket closes.
		client.Send(netsync.Action{Kind: netsync.ActionLeave, Player: player, Level: level})
	}
	logger.Info("Left host relay", "level", l.Number, "stones", l.StonesRemaining, "ladder", l.LadderState.String())
	return nil
}
