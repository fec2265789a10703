package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lawnchairsociety/minedepths/internal/logger"
)

func main() {
	levels := flag.String("levels", "", "Level range to generate (e.g., 1-40 or 77)")
	seed := flag.Int64("seed", 42, "Game seed for generation")
	day := flag.Int("day", 1, "Day the levels are generated on")
	mapsDir := flag.String("maps", "data/maps", "Map asset directory")
	rulesFile := flag.String("rules", "data/rules.yaml", "Path to mine rules YAML file")
	bestiaryFile := flag.String("bestiary", "data/bestiary.yaml", "Path to bestiary YAML file")
	outDir := flag.String("out", "generated/mines", "Output directory")
	templates := flag.Bool("templates", false, "Also write the procedural map template of each level")
	verbose := flag.Bool("v", false, "Log engine output to stderr")
	flag.Parse()

	if *levels == "" {
		fmt.Fprintln(os.Stderr, "Error: --levels is required (e.g., --levels=1-40 or --levels=77)")
		flag.Usage()
		os.Exit(1)
	}

	start, end, err := parseLevelRange(*levels)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid level range: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		logger.SetOutput(os.Stderr, "DEBUG")
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	gen, err := NewLevelGenerator(GeneratorConfig{
		Seed:         *seed,
		Day:          *day,
		MapsDir:      *mapsDir,
		RulesFile:    *rulesFile,
		BestiaryFile: *bestiaryFile,
		OutputDir:    *outDir,
		Templates:    *templates,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generating levels %d-%d (seed: %d, day: %d)\n", start, end, *seed, *day)
	fmt.Printf("Output directory: %s\n\n", *outDir)

	for n := start; n <= end; n++ {
		fmt.Printf("Generating level %d... ", n)
		summary, err := gen.GenerateLevel(n)
		if err != nil {
			fmt.Printf("FAILED: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("OK (%s)\n", summary)
	}

	fmt.Printf("\nSuccessfully generated %d level(s)\n", end-start+1)
}

// parseLevelRange parses a level range string like "1-40" or "77"
func parseLevelRange(s string) (start, end int, err error) {
	if strings.Contains(s, "-") {
		parts := strings.Split(s, "-")
		if len(parts) != 2 {
			return 0, 0, fmt.Errorf("invalid range format, expected 'start-end'")
		}
		start, err = strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return 0, 0, fmt.Errorf("invalid start level: %w", err)
		}
		end, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return 0, 0, fmt.Errorf("invalid end level: %w", err)
		}
	} else {
		start, err = strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, 0, fmt.Errorf("invalid level number: %w", err)
		}
		end = start
	}

	if start < 1 {
		return 0, 0, fmt.Errorf("level numbers must be >= 1 (level 0 is the entrance)")
	}
	if end < start {
		return 0, 0, fmt.Errorf("end level must be >= start level")
	}

	return start, end, nil
}
