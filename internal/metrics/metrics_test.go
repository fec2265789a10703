package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lawnchairsociety/minedepths/internal/events"
	"github.com/lawnchairsociety/minedepths/internal/gametime"
	"github.com/lawnchairsociety/minedepths/internal/mine"
	"github.com/lawnchairsociety/minedepths/internal/seed"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSampler struct {
	queue, deepest int
}

func (f fakeSampler) QueueLen() int     { return f.queue }
func (f fakeSampler) DeepestLevel() int { return f.deepest }

func TestObserverCounters(t *testing.T) {
	e := NewExporter()

	e.LevelGenerated(12, mine.AreaJungle)
	e.LevelGenerated(13, mine.AreaJungle)
	e.LevelGenerated(50, mine.AreaFrost)
	e.LevelPruned(12)
	e.LadderPlaced(13, mine.ExitLadder)
	e.LadderPlaced(140, mine.ExitShaft)
	e.EventApplied(events.KindStoneBroken)
	e.ActiveLevels(2)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"jungle generated", testutil.ToFloat64(e.generated.WithLabelValues("jungle")), 2},
		{"frost generated", testutil.ToFloat64(e.generated.WithLabelValues("frost")), 1},
		{"pruned", testutil.ToFloat64(e.pruned), 1},
		{"ladders", testutil.ToFloat64(e.exits.WithLabelValues("ladder")), 1},
		{"shafts", testutil.ToFloat64(e.exits.WithLabelValues("shaft")), 1},
		{"stone events", testutil.ToFloat64(e.applied.WithLabelValues("stone_broken")), 1},
		{"active", testutil.ToFloat64(e.active), 2},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestSample(t *testing.T) {
	e := NewExporter()
	e.Sample(fakeSampler{queue: 7, deepest: 42})

	if got := testutil.ToFloat64(e.backlog); got != 7 {
		t.Errorf("backlog = %v, want 7", got)
	}
	if got := testutil.ToFloat64(e.deepest); got != 42 {
		t.Errorf("deepest = %v, want 42", got)
	}
}

func TestHandlerServesRegistryMetrics(t *testing.T) {
	e := NewExporter()
	session := mine.NewLocalSession(gametime.NewCalendar(1), true)
	session.SetPlayer(mine.PlayerState{Name: "sam", Level: 3})
	r := mine.NewRegistry(mine.Options{Seeds: seed.NewProvider(99), Session: session, Observer: e})
	r.EnterLevel(3)

	srv := httptest.NewServer(e.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		`mines_levels_generated_total{area="upper"} 1`,
		"mines_active_levels 1",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
