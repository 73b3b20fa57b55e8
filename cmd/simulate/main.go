package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/vulture-market/internal/config"
	"github.com/DoyleJ11/vulture-market/internal/sim"
)

func main() {
	games := flag.Int("games", 100, "number of games to play")
	levels := flag.String("levels", "1,5,10", "comma separated AI levels, one seat each")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "batch seed")
	parallel := flag.Int("parallel", runtime.GOMAXPROCS(0), "games played at once")
	rulesFile := flag.String("rules", "", "optional YAML rules overlay")
	logLevel := flag.String("log-level", "warn", "zap log level")
	flag.Parse()

	log, err := config.NewLogger(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer log.Sync()

	lv, err := parseLevels(*levels)
	if err != nil {
		log.Fatal("bad -levels", zap.Error(err))
	}

	rules := sim.FastRules()
	if *rulesFile != "" {
		data, err := os.ReadFile(*rulesFile)
		if err != nil {
			log.Fatal("read rules", zap.Error(err))
		}
		if err := config.ApplyRules(&rules, data); err != nil {
			log.Fatal("apply rules", zap.Error(err))
		}
		if err := rules.Validate(); err != nil {
			log.Fatal("rules", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	rep, err := sim.RunBatch(ctx, sim.BatchConfig{
		Games:    *games,
		Levels:   lv,
		Seed:     *seed,
		Parallel: *parallel,
		Rules:    rules,
		Logger:   log,
	})
	if err != nil {
		log.Fatal("simulation failed", zap.Error(err))
	}

	fmt.Printf("%d games, seed %d, %s\n\n", *games, *seed, time.Since(start).Round(time.Millisecond))
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LEVEL\tSEATS\tMEAN SCORE\tWIN RATE")
	for _, ls := range rep.Levels {
		fmt.Fprintf(tw, "Lv.%d\t%d\t%.2f\t%.1f%%\n", ls.Level, ls.Seats, ls.MeanScore(), ls.WinRate()*100)
	}
	tw.Flush()
}

func parseLevels(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		if n < 1 || n > 10 {
			return nil, fmt.Errorf("level %d not in 1..10", n)
		}
		out = append(out, n)
	}
	return out, nil
}
