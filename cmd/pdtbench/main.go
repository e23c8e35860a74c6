// Command pdtbench drives a pathtrie.Dict through an insert/search
// workload read from newline-delimited key files, the same contract as
// the reference implementation's own benchmark driver.
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	isatty "github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	pb "gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/pathtrie/pathtrie"
	"github.com/pathtrie/pathtrie/label"
	"github.com/pathtrie/pathtrie/pdtmetrics"
	"github.com/pathtrie/pathtrie/safe"
)

func main() {
	app := cli.App{
		Name:  "pdtbench",
		Usage: "benchmark insert/search throughput of a pathtrie.Dict",
		Commands: []cli.Command{
			insertSearchCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var insertSearchCommand = cli.Command{
	Name:      "insert-search",
	Usage:     "insert keys from a file, then search a (possibly different) file",
	ArgsUsage: "<dic-type 1-5> <key-file> <query-file|=|-> <num-keys> <load-factor> <fixed-len> <width-1st>",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "YAML file overriding the positional Setting"},
		cli.IntFlag{Name: "concurrent-queries", Usage: "fan out the search phase across N goroutines via safe.Dict"},
		cli.BoolFlag{Name: "metrics", Usage: "print Prometheus text-format counters after the run"},
	},
	Action: runInsertSearch,
}

// fileConfig overrides the positional arguments when --config is given,
// the same numbers bench.cpp takes from argv but named for readability.
type fileConfig struct {
	NumKeys    uint64  `yaml:"num_keys"`
	LoadFactor float64 `yaml:"load_factor"`
	FixedLen   uint64  `yaml:"fixed_len"`
	Width1st   uint    `yaml:"width_1st"`
}

func runInsertSearch(ctx *cli.Context) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if ctx.NArg() != 7 {
		return cli.NewExitError(fmt.Sprintf("usage: pdtbench insert-search %s", insertSearchCommand.ArgsUsage), 1)
	}

	dicType := ctx.Args()[0]
	keyFile := ctx.Args()[1]
	queryFile := ctx.Args()[2]

	settings, err := parseSettings(ctx, ctx.Args()[3:])
	if err != nil {
		return err
	}

	newPool, poolName, err := poolFactory(dicType)
	if err != nil {
		return err
	}

	dict := safe.New[uint64](settings, newPool)
	logger.Info("dictionary constructed", "pool", poolName, "num_keys_hint", settings.NumKeys,
		"load_factor", settings.LoadFactor, "fixed_len", settings.FixedLen)

	if err := runInsert(dict, keyFile, logger); err != nil {
		return err
	}

	if queryFile == "=" {
		queryFile = keyFile
	}
	if queryFile != "-" {
		if err := runSearch(ctx, dict, queryFile, logger); err != nil {
			return err
		}
	}

	dict.ShowStat(os.Stdout)

	if ctx.Bool("metrics") {
		dumpMetrics(dict)
	}
	return nil
}

func parseSettings(ctx *cli.Context, positional []string) (pathtrie.Settings, error) {
	if cfgPath := ctx.String("config"); cfgPath != "" {
		f, err := os.Open(cfgPath)
		if err != nil {
			return pathtrie.Settings{}, errors.Wrapf(err, "open config %q", cfgPath)
		}
		defer f.Close()

		var fc fileConfig
		if err := yaml.NewDecoder(f).Decode(&fc); err != nil {
			return pathtrie.Settings{}, errors.Wrapf(err, "decode config %q", cfgPath)
		}
		return pathtrie.Settings(fc), nil
	}

	if len(positional) != 4 {
		return pathtrie.Settings{}, errors.New("expected <num-keys> <load-factor> <fixed-len> <width-1st>")
	}
	numKeys, err := strconv.ParseUint(positional[0], 10, 64)
	if err != nil {
		return pathtrie.Settings{}, errors.Wrap(err, "num-keys")
	}
	loadFactor, err := strconv.ParseFloat(positional[1], 64)
	if err != nil {
		return pathtrie.Settings{}, errors.Wrap(err, "load-factor")
	}
	fixedLen, err := strconv.ParseUint(positional[2], 10, 64)
	if err != nil {
		return pathtrie.Settings{}, errors.Wrap(err, "fixed-len")
	}
	width1st, err := strconv.ParseUint(positional[3], 10, 8)
	if err != nil {
		return pathtrie.Settings{}, errors.Wrap(err, "width-1st")
	}
	return pathtrie.Settings{
		NumKeys:    numKeys,
		LoadFactor: loadFactor,
		FixedLen:   fixedLen,
		Width1st:   uint(width1st),
	}, nil
}

func poolFactory(dicType string) (func(uint64) label.Pool[uint64], string, error) {
	switch dicType {
	case "1":
		return func(n uint64) label.Pool[uint64] { return label.NewPlain[uint64](n) }, "LabelPool_Plain", nil
	case "2":
		return func(n uint64) label.Pool[uint64] { return label.NewBitmap[uint8, uint64](n) }, "LabelPool_Bitmap8", nil
	case "3":
		return func(n uint64) label.Pool[uint64] { return label.NewBitmap[uint16, uint64](n) }, "LabelPool_Bitmap16", nil
	case "4":
		return func(n uint64) label.Pool[uint64] { return label.NewBitmap[uint32, uint64](n) }, "LabelPool_Bitmap32", nil
	case "5":
		return func(n uint64) label.Pool[uint64] { return label.NewBitmap[uint64, uint64](n) }, "LabelPool_Bitmap64", nil
	default:
		return nil, "", errors.Errorf("unknown dic-type %q, expected 1-5", dicType)
	}
}

func runInsert(dict *safe.Dict[uint64], keyFile string, logger *slog.Logger) error {
	f, err := os.Open(keyFile)
	if err != nil {
		return errors.Wrapf(err, "open %q", keyFile)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	start := time.Now()
	var numKeys uint64
	const sentinel uint64 = 1
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			break
		}
		dict.Update(line, sentinel)
		numKeys++
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "read %q", keyFile)
	}

	elapsed := time.Since(start)
	logger.Info("insert finished", "num_keys", numKeys, "us_per_key", usPerKey(elapsed, numKeys))
	return nil
}

func runSearch(ctx *cli.Context, dict *safe.Dict[uint64], queryFile string, logger *slog.Logger) error {
	keys, err := readLines(queryFile)
	if err != nil {
		return err
	}

	bar := newProgressBar(len(keys))
	defer bar.Finish()

	start := time.Now()
	var ok, ng uint64

	if n := ctx.Int("concurrent-queries"); n > 1 {
		ok, ng = searchConcurrent(dict, keys, n, bar)
	} else {
		for _, key := range keys {
			v, found := dict.Find(key)
			if found && v == 1 {
				ok++
			} else {
				ng++
			}
			bar.Increment()
		}
	}

	elapsed := time.Since(start)
	logger.Info("search finished", "num_keys", len(keys), "ok", ok, "ng", ng,
		"us_per_key", usPerKey(elapsed, uint64(len(keys))))
	return nil
}

func usPerKey(elapsed time.Duration, numKeys uint64) float64 {
	if numKeys == 0 {
		return 0
	}
	return float64(elapsed.Microseconds()) / float64(numKeys)
}

// searchConcurrent fans the search phase out across n goroutines, each
// draining its own slice of keys against the same safe.Dict — the
// RWMutex wrapper exists exactly to make this safe against the writer
// that already finished the insert phase.
func searchConcurrent(dict *safe.Dict[uint64], keys [][]byte, n int, bar *pb.ProgressBar) (ok, ng uint64) {
	chunks := make([][][]byte, n)
	for i, key := range keys {
		chunks[i%n] = append(chunks[i%n], key)
	}

	var g errgroup.Group
	results := make([]struct{ ok, ng uint64 }, n)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			for _, key := range chunks[i] {
				v, found := dict.Find(key)
				if found && v == 1 {
					results[i].ok++
				} else {
					results[i].ng++
				}
				bar.Increment()
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		ok += r.ok
		ng += r.ng
	}
	return ok, ng
}

func readLines(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %q", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var keys [][]byte
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		key := make([]byte, len(line))
		copy(key, line)
		keys = append(keys, key)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %q", path)
	}
	return keys, nil
}

func newProgressBar(total int) *pb.ProgressBar {
	bar := pb.New(total).SetMaxWidth(90)
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		bar.NotPrint = true
	}
	return bar.Start()
}

// dumpMetrics gathers a one-shot Prometheus registry and prints it in a
// simplified text format; a long-running service would instead expose
// this registry through promhttp.Handler.
func dumpMetrics(dict *safe.Dict[uint64]) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(pdtmetrics.NewCollector("pathtrie", func() pdtmetrics.Snapshot {
		return pdtmetrics.Snapshot{
			NumKeys:  dict.NumKeys(),
			NumSteps: dict.NumSteps(),
			NumChars: uint64(dict.NumChars()),
		}
	}))

	families, err := reg.Gather()
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.Wrap(err, "gather metrics"))
		return
	}
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			fmt.Printf("%s %v\n", fam.GetName(), m.GetGauge().GetValue())
		}
	}
}
