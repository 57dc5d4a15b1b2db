package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/levmv/existamp/fndate"
	"github.com/maruel/natural"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// FileResult is the outcome for one input file.
type FileResult struct {
	Source  string
	Name    string
	Kind    Kind
	Stamp   Stamp
	Frame   string
	Success bool
	Skipped bool
	Message string
	Err     error
}

// Batch stamps a set of files into its own work directory.
type Batch struct {
	ID      string
	WorkDir string
	Stats   *Statistics

	cfg       *Config
	meta      MetadataWriter
	frames    FrameExtractor
	extractor *fndate.Extractor
	now       func() time.Time

	mu    sync.Mutex
	names map[string]int
}

func NewBatch(cfg *Config, meta MetadataWriter, frames FrameExtractor) *Batch {
	id := uuid.NewString()
	return &Batch{
		ID:        id,
		WorkDir:   filepath.Join(cfg.OutDir, id),
		Stats:     NewStatistics(),
		cfg:       cfg,
		meta:      meta,
		frames:    frames,
		extractor: fndate.New(),
		now:       time.Now,
		names:     make(map[string]int),
	}
}

// Run stamps every file found under inputs. Per-file failures are reported in
// the results and never stop the batch; only cancellation does.
func (b *Batch) Run(ctx context.Context, inputs []string) ([]FileResult, error) {
	files, err := collectInputs(b.cfg, inputs)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no media files found in %s", strings.Join(inputs, ", "))
	}

	if !b.cfg.DryRun {
		if err := os.MkdirAll(b.WorkDir, 0755); err != nil {
			return nil, fmt.Errorf("create work dir: %w", err)
		}
	}
	log.Info("batch %s: %d files, %d workers", b.ID, len(files), b.cfg.Workers)

	results := make([]FileResult, len(files))
	sem := semaphore.NewWeighted(int64(b.cfg.Workers))
	g, gCtx := errgroup.WithContext(ctx)

	for i, src := range files {
		if err := sem.Acquire(gCtx, 1); err != nil {
			for j := i; j < len(files); j++ {
				results[j] = FileResult{Source: files[j], Message: "canceled", Err: err}
			}
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			results[i] = b.processOne(gCtx, src)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// collectInputs expands directories and returns the files in natural order.
func collectInputs(cfg *Config, inputs []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", in, err)
		}
		if !info.IsDir() {
			// explicitly named files are taken as-is; their kind is decided later
			add(in)
			continue
		}

		err = filepath.WalkDir(in, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Warn("Skipping path %s: %v", path, err)
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			if cfg.Accepts(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		return natural.Less(files[i], files[j])
	})
	return files, nil
}

func (b *Batch) processOne(ctx context.Context, src string) FileResult {
	b.Stats.IncScanned()
	res := FileResult{Source: src, Kind: b.cfg.KindOf(src)}

	if res.Kind == KindUnknown {
		return b.fail(res, ErrUnsupportedKind)
	}

	res.Name = b.reserveName(SafeName(filepath.Base(src), b.now()))
	res.Stamp = ResolveStamp(b.extractor, filepath.Base(src), b.cfg, b.now())

	if b.cfg.DryRun {
		res.Success = true
		res.Message = fmt.Sprintf("would stamp %s %s (date: %s, time: %s)", res.Kind, res.Stamp, res.Stamp.DateSource, res.Stamp.TimeSource)
		log.Action("DRY", src, "%s", res.Message)
		return res
	}

	dest := filepath.Join(b.WorkDir, res.Name)
	info, err := copyFile(src, dest)
	if err != nil {
		return b.fail(res, fmt.Errorf("copy: %w", err))
	}
	b.Stats.AddBytes(info.Size())

	if b.cfg.SkipDated {
		if t, ok := b.meta.EmbeddedDate(dest); ok {
			res.Success, res.Skipped = true, true
			res.Message = "already dated " + t.Format("2006:01:02 15:04:05")
			b.Stats.IncSkipped()
			log.Action("SKIP", src, "%s", res.Message)
			return res
		}
	}

	if err := b.meta.WriteDate(ctx, dest, res.Stamp); err != nil {
		return b.fail(res, err)
	}

	if res.Kind == KindVideo && b.cfg.Frame {
		frame := b.reserveName(strings.TrimSuffix(res.Name, filepath.Ext(res.Name)) + "_frame.jpg")
		framePath := filepath.Join(b.WorkDir, frame)
		if err := b.frames.ExtractFrame(ctx, dest, framePath); err != nil {
			return b.fail(res, fmt.Errorf("extract frame: %w", err))
		}
		if err := b.meta.WriteDate(ctx, framePath, res.Stamp); err != nil {
			return b.fail(res, fmt.Errorf("stamp frame: %w", err))
		}
		res.Frame = frame
		b.Stats.IncFrames()
	}

	res.Success = true
	res.Message = fmt.Sprintf("stamped %s %s", res.Kind, res.Stamp)
	b.Stats.IncStamped()
	log.Action("STAMP", src, "%s -> %s", res.Stamp, res.Name)
	return res
}

func (b *Batch) fail(res FileResult, err error) FileResult {
	res.Success = false
	res.Err = err
	res.Message = err.Error()
	b.Stats.IncFailed()
	log.Action("FAIL", res.Source, "%v", err)
	return res
}

// reserveName hands out unique names inside the work directory:
// "a.jpg", "a_1.jpg", "a_2.jpg", ...
func (b *Batch) reserveName(name string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := strings.ToLower(name)
	n, taken := b.names[key]
	if !taken {
		b.names[key] = 0
		return name
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for {
		n++
		candidate := base + "_" + strconv.Itoa(n) + ext
		if _, clash := b.names[strings.ToLower(candidate)]; !clash {
			b.names[key] = n
			b.names[strings.ToLower(candidate)] = 0
			return candidate
		}
	}
}

// copyFile copies src to dst keeping the source modification time.
func copyFile(src, dst string) (fs.FileInfo, error) {
	in, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return nil, err
	}

	out, err := os.Create(dst)
	if err != nil {
		return nil, err
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return nil, err
	}
	if err := out.Close(); err != nil {
		return nil, err
	}

	if err := os.Chtimes(dst, time.Now(), info.ModTime()); err != nil {
		log.Debug("keep mtime of %s: %v", dst, err)
	}
	return info, nil
}
