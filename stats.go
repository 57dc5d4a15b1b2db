package main

import (
	"fmt"
	"io"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
)

type Statistics struct {
	FilesScanned atomic.Int64
	Stamped      atomic.Int64
	Skipped      atomic.Int64 // already carried a date
	Failed       atomic.Int64
	Frames       atomic.Int64
	BytesCopied  atomic.Int64
	StartTime    time.Time
}

func NewStatistics() *Statistics {
	return &Statistics{
		StartTime: time.Now(),
	}
}

func (s *Statistics) IncScanned() { s.FilesScanned.Add(1) }
func (s *Statistics) IncStamped() { s.Stamped.Add(1) }
func (s *Statistics) IncSkipped() { s.Skipped.Add(1) }
func (s *Statistics) IncFailed() { s.Failed.Add(1) }
func (s *Statistics) IncFrames() { s.Frames.Add(1) }
func (s *Statistics) AddBytes(n int64) {
	s.BytesCopied.Add(n)
}

// PrintSummary outputs the final table
func (s *Statistics) PrintSummary(out io.Writer) {
	duration := time.Since(s.StartTime)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(out, "----------------------------------------")

	fmt.Fprintf(w, "Total Scanned:\t%d\n", s.FilesScanned.Load())
	fmt.Fprintf(w, "Stamped:\t%d\n", s.Stamped.Load())

	if s.BytesCopied.Load() > 0 {
		fmt.Fprintf(w, "Data Volume:\t%s\n", humanize.IBytes(uint64(s.BytesCopied.Load())))
	}
	if s.Frames.Load() > 0 {
		fmt.Fprintf(w, "Frames:\t%d\n", s.Frames.Load())
	}
	if s.Skipped.Load() > 0 {
		fmt.Fprintf(w, "Already Dated:\t%d\n", s.Skipped.Load())
	}
	if s.Failed.Load() > 0 {
		fmt.Fprintf(w, "Errors:\t%d\n", s.Failed.Load())
	}

	fmt.Fprintf(w, "Duration:\t%s\n", duration.Round(time.Millisecond))

	w.Flush()
	fmt.Fprintln(out, "----------------------------------------")
}
