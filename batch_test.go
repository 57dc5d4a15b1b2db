package main

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMeta struct {
	mock.Mock
}

func (m *mockMeta) WriteDate(ctx context.Context, path string, stamp Stamp) error {
	return m.Called(ctx, path, stamp).Error(0)
}

func (m *mockMeta) EmbeddedDate(path string) (time.Time, bool) {
	args := m.Called(path)
	return args.Get(0).(time.Time), args.Bool(1)
}

type mockFrames struct {
	mock.Mock
}

func (m *mockFrames) ExtractFrame(ctx context.Context, video, out string) error {
	return m.Called(ctx, video, out).Error(0)
}

var fixedNow = time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)

func testConfig(t *testing.T) *Config {
	t.Helper()
	c := &Config{
		Workers:     2,
		OutDir:      t.TempDir(),
		DefaultTime: defaultTime,
		ImageExts:   make(map[string]bool),
		VideoExts:   make(map[string]bool),
	}
	parseExts(c.ImageExts, defaultImageExts)
	parseExts(c.VideoExts, defaultVideoExts)
	return c
}

func newTestBatch(cfg *Config, meta MetadataWriter, frames FrameExtractor) *Batch {
	b := NewBatch(cfg, meta, frames)
	b.now = func() time.Time { return fixedNow }
	return b
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		p := filepath.Join(dir, n)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("data:"+n), 0644))
	}
}

func TestBatchRunStampsFiles(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, "IMG_20230405.jpg", "VID_2023-04-05-14.30.00.mp4", "notes.txt")

	cfg := testConfig(t)
	meta := &mockMeta{}
	b := newTestBatch(cfg, meta, &mockFrames{})

	meta.On("WriteDate", mock.Anything, filepath.Join(b.WorkDir, "IMG_20230405.jpg"),
		Stamp{Date: "2023:04:05", Time: "12:00:00", DateSource: "filename", TimeSource: "default"}).
		Return(nil).Once()
	meta.On("WriteDate", mock.Anything, filepath.Join(b.WorkDir, "VID_2023-04-05-14.30.00.mp4"),
		Stamp{Date: "2023:04:05", Time: "14:30:00", DateSource: "filename", TimeSource: "filename"}).
		Return(nil).Once()

	results, err := b.Run(context.Background(), []string{src})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, KindImage, results[0].Kind)
	assert.Equal(t, KindVideo, results[1].Kind)
	for _, r := range results {
		assert.True(t, r.Success, r.Message)
		assert.FileExists(t, filepath.Join(b.WorkDir, r.Name))
	}
	assert.NoFileExists(t, filepath.Join(b.WorkDir, "notes.txt"))

	assert.EqualValues(t, 2, b.Stats.FilesScanned.Load())
	assert.EqualValues(t, 2, b.Stats.Stamped.Load())
	assert.EqualValues(t, 0, b.Stats.Failed.Load())
	meta.AssertExpectations(t)
}

func TestBatchMissingDateFallsBackToToday(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, "holiday.png")

	meta := &mockMeta{}
	b := newTestBatch(testConfig(t), meta, &mockFrames{})
	meta.On("WriteDate", mock.Anything, mock.AnythingOfType("string"),
		Stamp{Date: "2024:01:02", Time: "12:00:00", DateSource: "default", TimeSource: "default"}).
		Return(nil).Once()

	results, err := b.Run(context.Background(), []string{filepath.Join(src, "holiday.png")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	meta.AssertExpectations(t)
}

func TestBatchManualDate(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, "IMG_20230405_101530123.jpg")

	cfg := testConfig(t)
	cfg.Date = "2020:01:02"
	meta := &mockMeta{}
	b := newTestBatch(cfg, meta, &mockFrames{})
	meta.On("WriteDate", mock.Anything, mock.AnythingOfType("string"),
		Stamp{Date: "2020:01:02", Time: "12:00:00", DateSource: "manual", TimeSource: "default"}).
		Return(nil).Once()

	_, err := b.Run(context.Background(), []string{src})
	require.NoError(t, err)
	meta.AssertExpectations(t)
}

func TestBatchFailureDoesNotStopOthers(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, "a_20230101.jpg", "b_20230102.jpg", "c_20230103.jpg")

	meta := &mockMeta{}
	b := newTestBatch(testConfig(t), meta, &mockFrames{})
	boom := errors.New("exiftool exploded")
	meta.On("WriteDate", mock.Anything, filepath.Join(b.WorkDir, "b_20230102.jpg"), mock.Anything).Return(boom)
	meta.On("WriteDate", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	results, err := b.Run(context.Background(), []string{src})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.True(t, results[2].Success)
	assert.EqualValues(t, 1, b.Stats.Failed.Load())
	assert.EqualValues(t, 2, b.Stats.Stamped.Load())
}

func TestBatchSkipDated(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, "IMG_20230405.jpg")

	cfg := testConfig(t)
	cfg.SkipDated = true
	meta := &mockMeta{}
	b := newTestBatch(cfg, meta, &mockFrames{})
	meta.On("EmbeddedDate", filepath.Join(b.WorkDir, "IMG_20230405.jpg")).
		Return(time.Date(2019, 5, 6, 7, 8, 9, 0, time.Local), true)

	results, err := b.Run(context.Background(), []string{src})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.True(t, results[0].Skipped)
	assert.Contains(t, results[0].Message, "2019:05:06 07:08:09")
	assert.EqualValues(t, 1, b.Stats.Skipped.Load())
	meta.AssertNotCalled(t, "WriteDate", mock.Anything, mock.Anything, mock.Anything)
}

func TestBatchVideoFrame(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, "VID_20230405_101530-x.mp4")

	cfg := testConfig(t)
	cfg.Frame = true
	meta := &mockMeta{}
	frames := &mockFrames{}
	b := newTestBatch(cfg, meta, frames)

	video := filepath.Join(b.WorkDir, "VID_20230405_101530-x.mp4")
	frame := filepath.Join(b.WorkDir, "VID_20230405_101530-x_frame.jpg")
	stamp := Stamp{Date: "2023:04:05", Time: "10:15:30", DateSource: "filename", TimeSource: "filename"}

	meta.On("WriteDate", mock.Anything, video, stamp).Return(nil).Once()
	frames.On("ExtractFrame", mock.Anything, video, frame).
		Run(func(args mock.Arguments) {
			assert.NoError(t, os.WriteFile(args.String(2), []byte("jpeg"), 0644))
		}).
		Return(nil).Once()
	meta.On("WriteDate", mock.Anything, frame, stamp).Return(nil).Once()

	results, err := b.Run(context.Background(), []string{src})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "VID_20230405_101530-x_frame.jpg", results[0].Frame)
	assert.EqualValues(t, 1, b.Stats.Frames.Load())
	meta.AssertExpectations(t)
	frames.AssertExpectations(t)
}

func TestBatchFrameFailure(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, "clip.mov")

	cfg := testConfig(t)
	cfg.Frame = true
	meta := &mockMeta{}
	frames := &mockFrames{}
	b := newTestBatch(cfg, meta, frames)

	meta.On("WriteDate", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	frames.On("ExtractFrame", mock.Anything, mock.Anything, mock.Anything).Return(ErrToolMissing)

	results, err := b.Run(context.Background(), []string{src})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.ErrorIs(t, results[0].Err, ErrToolMissing)
}

func TestBatchDryRun(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, "IMG_20230405.jpg")

	cfg := testConfig(t)
	cfg.DryRun = true
	meta := &mockMeta{}
	b := newTestBatch(cfg, meta, &mockFrames{})

	results, err := b.Run(context.Background(), []string{src})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Contains(t, results[0].Message, "2023:04:05 12:00:00")
	assert.NoDirExists(t, b.WorkDir)
	meta.AssertNotCalled(t, "WriteDate", mock.Anything, mock.Anything, mock.Anything)
}

func TestBatchNameCollisions(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, "a/IMG_20230405.jpg", "b/IMG_20230405.jpg", "c/img_20230405.JPG")

	meta := &mockMeta{}
	meta.On("WriteDate", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	cfg := testConfig(t)
	cfg.Workers = 1
	b := newTestBatch(cfg, meta, &mockFrames{})

	results, err := b.Run(context.Background(), []string{src})
	require.NoError(t, err)
	require.Len(t, results, 3)

	var names []string
	for _, r := range results {
		names = append(names, r.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"IMG_20230405.jpg", "IMG_20230405_1.jpg", "img_20230405_2.JPG"}, names)
}

func TestBatchUnknownKind(t *testing.T) {
	b := newTestBatch(testConfig(t), &mockMeta{}, &mockFrames{})

	res := b.processOne(context.Background(), filepath.Join(t.TempDir(), "gone.bin"))
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrUnsupportedKind)
	assert.EqualValues(t, 1, b.Stats.Failed.Load())
}

func TestBatchCanceled(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, "IMG_20230405.jpg", "IMG_20230406.jpg")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := newTestBatch(testConfig(t), &mockMeta{}, &mockFrames{})
	results, err := b.Run(ctx, []string{src})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Success)
	}
}

func TestBatchNoInputs(t *testing.T) {
	b := newTestBatch(testConfig(t), &mockMeta{}, &mockFrames{})

	_, err := b.Run(context.Background(), []string{t.TempDir()})
	assert.Error(t, err)

	_, err = b.Run(context.Background(), []string{filepath.Join(t.TempDir(), "missing")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBatchPackage(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, "IMG_20230405.jpg", "IMG_20230406.jpg")

	cfg := testConfig(t)
	meta := &mockMeta{}
	meta.On("WriteDate", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	b := newTestBatch(cfg, meta, &mockFrames{})

	_, err := b.Run(context.Background(), []string{src})
	require.NoError(t, err)

	zipPath, err := b.Package(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.OutDir, BatchZipName(b.ID)), zipPath)
	assert.NoDirExists(t, b.WorkDir)

	zr, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"IMG_20230405.jpg", "IMG_20230406.jpg"}, names)
}
