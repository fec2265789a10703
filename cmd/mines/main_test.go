package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lawnchairsociety/minedepths/internal/config"
	"github.com/lawnchairsociety/minedepths/internal/events"
	"github.com/lawnchairsociety/minedepths/internal/gametime"
	"github.com/lawnchairsociety/minedepths/internal/mine"
	"github.com/lawnchairsociety/minedepths/internal/seed"
)

func TestEngineOptionsFallsBackWithoutDataFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.RulesFile = filepath.Join(dir, "rules.yaml")
	cfg.BestiaryFile = filepath.Join(dir, "bestiary.yaml")
	cfg.MapsDir = filepath.Join(dir, "maps")
	cfg.Mines.ClusterThreshold = 12

	opts := engineOptions(cfg)
	if opts.Rules == nil || opts.Rules.ClusterThreshold != 12 {
		t.Fatalf("rules = %+v, want defaults with cluster threshold 12", opts.Rules)
	}
	if opts.Assets == nil {
		t.Error("expected a map library")
	}
	if opts.Monsters != nil || opts.Items != nil || opts.Sprites != nil {
		t.Error("expected no factories without a bestiary")
	}
	if opts.ElevatorDelay != 1500*time.Millisecond {
		t.Errorf("elevator delay = %v", opts.ElevatorDelay)
	}
}

func TestRunUpdatesUntilCancelled(t *testing.T) {
	calendar := gametime.NewCalendar(1)
	session := mine.NewLocalSession(calendar, true)
	queue := events.NewQueue()
	registry := mine.NewRegistry(mine.Options{
		Seeds:   seed.NewProvider(9),
		Session: session,
		Queue:   queue,
	})
	registry.EnterLevel(3)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		run(ctx, registry, calendar, config.MinesConfig{TickMS: 5})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after the context ended")
	}
	if calendar.DaysPlayed() != 1 {
		t.Errorf("days played = %d, want 1 with days disabled", calendar.DaysPlayed())
	}
}

func TestHostSamplerReadsRegistry(t *testing.T) {
	session := mine.NewLocalSession(gametime.NewCalendar(1), true)
	queue := events.NewQueue()
	registry := mine.NewRegistry(mine.Options{
		Seeds:   seed.NewProvider(9),
		Session: session,
		Queue:   queue,
	})
	registry.EnterLevel(7)

	s := hostSampler{registry: registry, queue: queue}
	if got := s.DeepestLevel(); got != 7 {
		t.Errorf("DeepestLevel = %d, want 7", got)
	}
	if got := s.QueueLen(); got != queue.Len() {
		t.Errorf("QueueLen = %d, want %d", got, queue.Len())
	}
}
