package mine

import (
	"reflect"
	"testing"

	"github.com/lawnchairsociety/minedepths/internal/seed"
)

func TestTemplateFor(t *testing.T) {
	tests := []struct {
		level    int
		expected int
	}{
		{0, 0},
		{1, 1},
		{5, 5},
		{10, 10},
		{20, 20},
		{30, 10},
		{39, 39},
		{40, 10},
		{41, 1},
		{60, 20},
		{80, 10},
		{100, 20},
		{115, 35},
		{BottomLevel, BottomLevel},
		{QuarryLevel, QuarryLevel},
	}
	for _, tt := range tests {
		if got := TemplateFor(tt.level); got != tt.expected {
			t.Errorf("TemplateFor(%d) = %d, want %d", tt.level, got, tt.expected)
		}
	}
}

func TestLoadIsDeterministic(t *testing.T) {
	a := NewLoader(DefaultRules(), seed.NewProvider(42), nil)
	b := NewLoader(DefaultRules(), seed.NewProvider(42), nil)
	for level := 1; level <= 200; level++ {
		ra := a.Load(level, 7, LoadOptions{})
		rb := b.Load(level, 7, LoadOptions{})
		if ra != rb {
			t.Fatalf("Load(%d) differs between loaders:\n%+v\n%+v", level, ra, rb)
		}
	}
}

func TestLoadNeverDarkOnElevatorLevels(t *testing.T) {
	l := NewLoader(DefaultRules(), seed.NewProvider(3), nil)
	for day := 1; day <= 30; day++ {
		for level := 5; level <= BottomLevel; level += 5 {
			res := l.Load(level, day, LoadOptions{})
			if res.Dark || res.MonsterArea || res.Rainbow {
				t.Fatalf("level %d day %d got variant flags %+v", level, day, res)
			}
		}
	}
}

func TestLoadDarkRateFollowsRules(t *testing.T) {
	l := NewLoader(DefaultRules(), seed.NewProvider(11), nil)
	dark, total := 0, 0
	for day := 1; day <= 200; day++ {
		for level := 1; level < 10; level++ {
			if level%5 == 0 {
				continue
			}
			total++
			if l.Load(level, day, LoadOptions{}).Dark {
				dark++
			}
		}
	}
	rate := float64(dark) / float64(total)
	if rate < 0.10 || rate > 0.20 {
		t.Errorf("upper dark rate = %.3f, want close to 0.15", rate)
	}
}

func TestDesertTemplatesAvoidRepeats(t *testing.T) {
	l := NewLoader(DefaultRules(), seed.NewProvider(99), nil)
	for day := 1; day <= 10; day++ {
		prev := TemplateFor(BottomLevel)
		for level := DesertStart; level < DesertStart+80; level++ {
			res := l.Load(level, day, LoadOptions{})
			if res.Template%5 == 0 || res.Template < 1 || res.Template >= 40 {
				t.Fatalf("day %d level %d drew template %d", day, level, res.Template)
			}
			if res.Template == prev {
				t.Fatalf("day %d level %d repeats template %d of the level above", day, level, prev)
			}
			prev = res.Template
		}
	}
}

func TestDesertTemplateIndependentOfLoadOrder(t *testing.T) {
	forward := NewLoader(DefaultRules(), seed.NewProvider(5), nil)
	direct := NewLoader(DefaultRules(), seed.NewProvider(5), nil)
	for level := DesertStart; level <= 160; level++ {
		forward.Load(level, 3, LoadOptions{})
	}
	for _, level := range []int{160, 140, 122} {
		if a, b := forward.Load(level, 3, LoadOptions{}).Template, direct.Load(level, 3, LoadOptions{}).Template; a != b {
			t.Errorf("level %d template = %d after walking down, %d when loaded directly", level, a, b)
		}
	}
}

func TestRainbowSuppressedWhenSeenToday(t *testing.T) {
	l := NewLoader(DefaultRules(), seed.NewProvider(8), nil)
	found := false
	for day := 1; day <= 400 && !found; day++ {
		for level := 1; level < BottomLevel; level++ {
			if !l.Load(level, day, LoadOptions{}).Rainbow {
				continue
			}
			found = true
			if l.Load(level, day, LoadOptions{RainbowSeenToday: true}).Rainbow {
				t.Fatalf("level %d day %d rainbow despite being seen today", level, day)
			}
			break
		}
	}
	if !found {
		t.Fatal("no rainbow level found to test with")
	}
}

func TestRainbowSuppressionLeavesOtherFlags(t *testing.T) {
	l := NewLoader(DefaultRules(), seed.NewProvider(8), nil)
	for day := 1; day <= 30; day++ {
		for level := 1; level < BottomLevel; level += 3 {
			seen := l.Load(level, day, LoadOptions{RainbowSeenToday: true})
			fresh := l.Load(level, day, LoadOptions{})
			if seen.Rainbow {
				t.Fatalf("level %d day %d rainbow despite being seen today", level, day)
			}
			fresh.Rainbow = false
			if !reflect.DeepEqual(seen, fresh) {
				t.Fatalf("level %d day %d: suppressing the rainbow changed the level\nseen:  %+v\nfresh: %+v", level, day, seen, fresh)
			}
		}
	}
}

func TestLoadQuarry(t *testing.T) {
	l := NewLoader(DefaultRules(), seed.NewProvider(1), nil)
	res := l.Load(QuarryLevel, 4, LoadOptions{})
	if res.Area != AreaQuarry || res.Template != QuarryLevel || res.Dark {
		t.Errorf("quarry load = %+v", res)
	}
	if res.MapAsset != "mine_77377" {
		t.Errorf("quarry asset = %q", res.MapAsset)
	}
}

func TestResolveAssetFallbackChain(t *testing.T) {
	tests := []struct {
		name      string
		have      []string
		dangerous bool
		dark      bool
		expected  string
	}{
		{"dangerous dark present", []string{"mine_3", "mine_3_dark", "mine_3_dangerous", "mine_3_dangerous_dark"}, true, true, "mine_3_dangerous_dark"},
		{"falls to dangerous", []string{"mine_3", "mine_3_dark", "mine_3_dangerous"}, true, true, "mine_3_dangerous"},
		{"falls to dark", []string{"mine_3", "mine_3_dark"}, true, true, "mine_3_dark"},
		{"falls to base", []string{"mine_3"}, true, true, "mine_3"},
		{"nothing at all", nil, true, true, "mine_3"},
		{"plain dark", []string{"mine_3", "mine_3_dark", "mine_3_dangerous"}, false, true, "mine_3_dark"},
		{"plain", []string{"mine_3", "mine_3_dark"}, false, false, "mine_3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assets := &fakeAssets{grids: make(map[string]Grid)}
			for _, name := range tt.have {
				assets.grids[name] = roomGrid(10, 10)
			}
			l := NewLoader(DefaultRules(), seed.NewProvider(1), assets)
			if got := l.resolveAsset("mine_3", tt.dangerous, tt.dark); got != tt.expected {
				t.Errorf("resolveAsset = %q, want %q", got, tt.expected)
			}
		})
	}
}
