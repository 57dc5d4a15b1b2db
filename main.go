package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/levmv/existamp/fndate"
)

const usage = `Usage: existamp <command> [flags] <args>

Commands:
  extract <name>...   print the date/time inferred from each filename
  stamp <path>...     write inferred dates into copies of the files
  inspect <file>...   compare inferred and embedded dates
  clean <out-dir>     remove old batch directories and archives`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "extract":
		err = cmdExtract(os.Args[2:])
	case "stamp":
		err = cmdStamp(ctx, os.Args[2:])
	case "inspect":
		err = cmdInspect(os.Args[2:])
	case "clean":
		err = cmdClean(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		log.Error(err, "%s failed", os.Args[1])
		os.Exit(1)
	}
}

// setupStamp registers the stamp flags on fs and returns the config they
// fill in.
func setupStamp(fs *flag.FlagSet) (*Config, *string, *string, *string) {
	c := &Config{ImageExts: make(map[string]bool), VideoExts: make(map[string]bool)}
	fs.BoolVar(&c.DryRun, "dry-run", false, "Dry run (no copies, no metadata writes)")
	fs.BoolVar(&c.Zip, "zip", false, "Pack the batch into a zip and remove the work directory")
	fs.BoolVar(&c.Frame, "frame", false, "Also extract and stamp the first frame of videos")
	fs.BoolVar(&c.SkipDated, "skip-dated", false, "Leave files that already carry a date untouched")
	fs.IntVar(&c.Workers, "workers", defaultWorkers, "Files processed in parallel")
	fs.StringVar(&c.OutDir, "out", defaultOutDir, "Output directory")
	fs.StringVar(&c.DefaultTime, "default-time", defaultTime, "Time used when none is found")
	fs.StringVar(&c.Date, "date", "", "Manual date (YYYY:MM:DD), ignores filenames")
	fs.StringVar(&c.Time, "time", "", "Manual time (HH:MM[:SS])")
	fs.StringVar(&c.ExiftoolPath, "exiftool", "", "Path to exiftool")
	fs.StringVar(&c.FfmpegPath, "ffmpeg", "", "Path to ffmpeg")
	fs.StringVar(&c.LogLevel, "log-level", defaultLogLevel, "debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", defaultLogFormat, "console, json")
	imageExts := fs.String("image-ext", defaultImageExts, "Image extensions")
	videoExts := fs.String("video-ext", defaultVideoExts, "Video extensions")
	configPath := fs.String("config", "", "JSON config file")
	return c, imageExts, videoExts, configPath
}

// loadStampConfig parses args into a validated Config.
func loadStampConfig(args []string) (*Config, []string, error) {
	fs := flag.NewFlagSet("stamp", flag.ContinueOnError)
	c, imageExts, videoExts, configPath := setupStamp(fs)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	parseExts(c.ImageExts, *imageExts)
	parseExts(c.VideoExts, *videoExts)

	if *configPath != "" {
		fc, err := LoadConfigFile(*configPath)
		if err != nil {
			return nil, nil, err
		}
		fc.Apply(c, fs)
	}
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	return c, fs.Args(), nil
}

func cmdStamp(ctx context.Context, args []string) error {
	cfg, inputs, err := loadStampConfig(args)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("stamp requires at least one file or directory")
	}
	InitLogger(cfg.LogLevel, cfg.LogFormat)

	metaSvc := NewMetadataService(cfg.ExiftoolPath)
	defer metaSvc.Close()

	batch := NewBatch(cfg, metaSvc, FFmpeg{Bin: cfg.FfmpegPath})
	results, runErr := batch.Run(ctx, inputs)

	if cfg.Zip && !cfg.DryRun && batch.Stats.Stamped.Load()+batch.Stats.Skipped.Load() > 0 {
		zipPath, err := batch.Package(ctx)
		if err != nil {
			log.Error(err, "packaging batch %s", batch.ID)
		} else {
			fmt.Println(zipPath)
		}
	} else if !cfg.DryRun && runErr == nil {
		fmt.Println(batch.WorkDir)
	}

	batch.Stats.PrintSummary(os.Stderr)
	if runErr != nil {
		return runErr
	}
	for _, r := range results {
		if !r.Success {
			return fmt.Errorf("%d of %d files failed", batch.Stats.Failed.Load(), len(results))
		}
	}
	return nil
}

type extractLine struct {
	Filename string `json:"filename"`
	Date     string `json:"date"`
	Time     string `json:"time"`
}

func cmdExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "Print one JSON object per name")
	noPersian := fs.Bool("no-persian", false, "Disable Persian calendar conversion")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("extract requires at least one filename")
	}

	ex := fndate.New()
	if *noPersian {
		ex = fndate.New(fndate.WithConverter(fndate.NoPersianCalendar()))
	}

	enc := json.NewEncoder(os.Stdout)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	for _, name := range fs.Args() {
		res := ex.Extract(name)
		if *asJSON {
			if err := enc.Encode(extractLine{Filename: name, Date: res.DateString(), Time: res.TimeString()}); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, orDash(res.DateString()), orDash(res.TimeString()))
	}
	return nil
}

func cmdInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	exiftoolPath := fs.String("exiftool", "", "Path to exiftool")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("inspect requires at least one file")
	}

	metaSvc := NewMetadataService(*exiftoolPath)
	defer metaSvc.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "FILE\tNAME DATE\tNAME TIME\tEMBEDDED")

	for _, path := range fs.Args() {
		res := fndate.Extract(filepath.Base(path))
		embedded := "-"
		if t, ok := metaSvc.EmbeddedDate(path); ok {
			embedded = t.Format("2006:01:02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", path, orDash(res.DateString()), orDash(res.TimeString()), embedded)
	}
	return nil
}

func cmdClean(args []string) error {
	fs := flag.NewFlagSet("clean", flag.ContinueOnError)
	maxAge := fs.Duration("older-than", 24*time.Hour, "Only remove entries older than this")
	dryRun := fs.Bool("dry-run", false, "Report only")
	if err := fs.Parse(args); err != nil {
		return err
	}
	outDir := defaultOutDir
	if fs.NArg() > 0 {
		outDir = fs.Arg(0)
	}

	n, err := runClean(outDir, *maxAge, *dryRun)
	if err != nil {
		return err
	}
	log.Info("%d stale entries in %s", n, outDir)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
