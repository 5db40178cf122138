package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GwennKoi/XorShiftLPC/internal/commons/logger_config"
	"github.com/GwennKoi/XorShiftLPC/internal/config"
	"github.com/GwennKoi/XorShiftLPC/internal/jobs"
	"github.com/GwennKoi/XorShiftLPC/internal/replay"
	"github.com/GwennKoi/XorShiftLPC/internal/server"
	"github.com/GwennKoi/XorShiftLPC/internal/store"
	"github.com/GwennKoi/XorShiftLPC/internal/telemetry"
	"github.com/GwennKoi/XorShiftLPC/internal/tiles"
	"github.com/GwennKoi/XorShiftLPC/internal/xorshift"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// an empty flag means "generate one"; the choice goes to stderr so it can be replayed
func seedFromFlag(s string) (xorshift.Seed, error) {
	if s == "" {
		seed := xorshift.GenerateSeed()
		fmt.Fprintf(os.Stderr, "seed: %d\n", seed)
		return seed, nil
	}
	return xorshift.ParseSeed(s)
}

func newFlags(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func cmdSeed(args []string, out io.Writer) error {
	if err := newFlags("seed").Parse(args); err != nil {
		return err
	}
	_, err := fmt.Fprintln(out, xorshift.GenerateSeed())
	return err
}

func cmdRange(args []string, out io.Writer) error {
	fs := newFlags("range")
	size := fs.Int("size", 0, "exclusive upper bound")
	seedStr := fs.String("seed", "", "seed (generated when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	seed, err := seedFromFlag(*seedStr)
	if err != nil {
		return err
	}
	res, err := xorshift.RandomInRange(*size, seed)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%d\n%d\n", res.Value, res.Seed)
	return err
}

func cmdShuffle(args []string, out io.Writer) error {
	fs := newFlags("shuffle")
	seedStr := fs.String("seed", "", "seed (generated when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	seed, err := seedFromFlag(*seedStr)
	if err != nil {
		return err
	}
	res, err := xorshift.Shuffle(fs.Args(), seed)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n%d\n", strings.Join(res.Value, " "), res.Seed)
	return err
}

func cmdPick(args []string, out io.Writer) error {
	fs := newFlags("pick")
	seedStr := fs.String("seed", "", "seed (generated when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	seed, err := seedFromFlag(*seedStr)
	if err != nil {
		return err
	}
	res, err := xorshift.ElementOf(fs.Args(), seed)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n%d\n", res.Value, res.Seed)
	return err
}

// cmdDemo prints the seed, the shuffled alphabet, the seed after it, a pick and
// the final seed. With seed 1 the output is fixed.
func cmdDemo(args []string, out io.Writer) error {
	fs := newFlags("demo")
	seedStr := fs.String("seed", "1", "seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	seed, err := seedFromFlag(*seedStr)
	if err != nil {
		return err
	}
	letters := strings.Split(alphabet, "")

	fmt.Fprintln(out, seed)
	shuffled, err := xorshift.Shuffle(letters, seed)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, strings.Join(shuffled.Value, ""))
	fmt.Fprintln(out, shuffled.Seed)

	picked, err := xorshift.ElementOf(letters, shuffled.Seed)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, picked.Value)
	_, err = fmt.Fprintln(out, picked.Seed)
	return err
}

func cmdTrace(args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("trace: expected record or verify")
	}
	switch args[0] {
	case "record":
		return traceRecord(args[1:], out)
	case "verify":
		return traceVerify(args[1:], out)
	default:
		return fmt.Errorf("trace: unknown subcommand %q", args[0])
	}
}

func traceRecord(args []string, out io.Writer) error {
	fs := newFlags("trace record")
	path := fs.String("o", "", "output file")
	seedStr := fs.String("seed", "", "seed (generated when empty)")
	itemsStr := fs.String("items", strings.Join(strings.Split(alphabet, ""), ","), "comma separated items")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("trace record: -o is required")
	}

	seed, err := seedFromFlag(*seedStr)
	if err != nil {
		return err
	}
	items := strings.Split(*itemsStr, ",")

	rec := replay.NewRecorder(seed)
	for _, op := range fs.Args() {
		name, arg, _ := strings.Cut(op, ":")
		switch name {
		case replay.OpShuffle:
			_, err = rec.Shuffle(items)
		case replay.OpPick:
			_, err = rec.Pick(items)
		case replay.OpRange:
			var size int
			size, err = strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("trace record: bad range size in %q: %w", op, xorshift.ErrInvalidArgument)
			}
			_, err = rec.Range(size)
		default:
			return fmt.Errorf("trace record: unknown op %q", op)
		}
		if err != nil {
			return fmt.Errorf("trace record %q: %w", op, err)
		}
	}

	tr := rec.Trace()
	if err := replay.Save(*path, tr); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n%d steps\n%d\n", tr.Header.TraceID, len(tr.Steps), tr.FinalSeed())
	return err
}

func traceVerify(args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("trace verify: expected one file")
	}
	tr, err := replay.Load(args[0])
	if err != nil {
		return err
	}
	if err := replay.Verify(tr); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "ok %d steps\n%d\n", len(tr.Steps), tr.FinalSeed())
	return err
}

type scrambleJob struct {
	in, out string
}

// scrambleJobs pairs inputs with outputs. Without a dir the args are IN OUT;
// with one, each input is written to dir/<base name>.png.
func scrambleJobs(name, dir string, args []string) ([]scrambleJob, error) {
	if dir == "" {
		if len(args) != 2 {
			return nil, fmt.Errorf("%s: expected input and output paths", name)
		}
		return []scrambleJob{{in: args[0], out: args[1]}}, nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: expected at least one input", name)
	}

	batch := make([]scrambleJob, 0, len(args))
	seen := make(map[string]string, len(args))
	for _, in := range args {
		base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
		out := filepath.Join(dir, base+".png")
		if prev, ok := seen[out]; ok {
			return nil, fmt.Errorf("%s: %s and %s both write %s", name, prev, in, out)
		}
		seen[out] = in
		batch = append(batch, scrambleJob{in: in, out: out})
	}
	return batch, nil
}

func cmdScramble(args []string, out io.Writer, inverse bool) error {
	name := "scramble"
	op := tiles.Scramble
	if inverse {
		name = "descramble"
		op = tiles.Descramble
	}
	fs := newFlags(name)
	seedStr := fs.String("seed", "", "seed (generated when empty)")
	grid := fs.Int("grid", 4, "tiles per side")
	dir := fs.String("o", "", "output directory for several inputs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	batch, err := scrambleJobs(name, *dir, fs.Args())
	if err != nil {
		return err
	}
	seed, err := seedFromFlag(*seedStr)
	if err != nil {
		return err
	}

	// decoding runs ahead on the loader while earlier images are rearranged
	l := tiles.NewLoader(len(batch))
	defer l.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		for i, j := range batch {
			select {
			case l.Req <- tiles.Request{Key: strconv.Itoa(i), Path: j.in}:
			case <-done:
				return
			}
		}
	}()

	for range batch {
		res := <-l.Res
		if res.Err != nil {
			return res.Err
		}
		i, err := strconv.Atoi(res.Key)
		if err != nil {
			return fmt.Errorf("%s: bad loader key %q", name, res.Key)
		}
		j := batch[i]

		img, err := op(res.Image, *grid, seed)
		if err != nil {
			return fmt.Errorf("%s %s: %w", name, j.in, err)
		}
		if err := tiles.Save(j.out, img); err != nil {
			return err
		}
		logger_config.Infof("%s: %s -> %s", name, j.in, j.out)
		if _, err := fmt.Fprintln(out, j.out); err != nil {
			return err
		}
	}
	return nil
}

func cmdServe(ctx context.Context, args []string) error {
	conf, err := config.Load("serve", args)
	if err != nil {
		return err
	}
	logger_config.Configure(conf.Log.Level, conf.Log.Format, os.Stdout)
	gin.SetMode(gin.ReleaseMode)

	var st store.Store
	switch conf.Store.Backend {
	case config.BackendRedis:
		r, err := store.NewRedis(ctx, conf.Redis)
		if err != nil {
			return err
		}
		defer r.Close()
		st = r
	default:
		logger_config.Warnf("store backend %q keeps sequences in memory; they are lost on restart", conf.Store.Backend)
		st = store.NewMemory()
	}

	pool := jobs.NewShufflePool(conf.Jobs.Workers, conf.Jobs.Queue)
	defer pool.Close()

	sink := telemetry.NewSink(conf.Telemetry.Interval)
	defer sink.Close()

	logger_config.Logger.Info("starting",
		"addr", conf.Server.Address,
		"store", conf.Store.Backend,
		"workers", conf.Jobs.Workers,
	)
	return server.New(conf.Server.Address, st, pool, sink).Listen(ctx)
}
