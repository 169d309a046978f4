package source

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"junction-worker-go/internal/models"
	"junction-worker-go/internal/timeutil"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func writeReplay(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "detections.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func collect(out <-chan models.Frame) []models.Frame {
	var frames []models.Frame
	for f := range out {
		frames = append(frames, f)
	}
	return frames
}

func TestDecode(t *testing.T) {
	t.Parallel()

	f, err := Decode([]byte(`{"camera_id":"cam-1","frame_id":7,"timestamp":"2026-03-02T08:00:00Z",
		"detections":[{"box":[10,20,30,40],"score":0.8,"class_id":2}]}`))
	require.NoError(t, err)
	assert.Equal(t, "cam-1", f.CameraID)
	assert.Equal(t, int64(7), f.FrameID)
	assert.Equal(t, t0, f.Timestamp)
	require.Len(t, f.Detections, 1)
	assert.Equal(t, 30.0, f.Detections[0].Box.X2)
	assert.Equal(t, models.ClassCar, f.Detections[0].ClassID)

	_, err = Decode([]byte(`{"frame_id":"x"}`))
	assert.Error(t, err)
}

func TestDecodeSkipsBadDetections(t *testing.T) {
	t.Parallel()

	f, err := Decode([]byte(`{"frame_id":3,"detections":[
		{"box":[1e999,0,10,10],"score":0.9,"class_id":2},
		{"box":[1,2,3],"score":0.9,"class_id":2},
		{"box":[0,0,10,10],"score":0.7,"class_id":7}]}`))
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.FrameID)
	assert.Equal(t, 2, f.Skipped)
	require.Len(t, f.Detections, 1)
	assert.Equal(t, models.ClassTruck, f.Detections[0].ClassID)
	assert.Equal(t, 10.0, f.Detections[0].Box.Y2)
}

func TestFileSourceReplaysFrames(t *testing.T) {
	t.Parallel()

	path := writeReplay(t,
		`{"camera_id":"cam-1","frame_id":1,"detections":[]}`,
		`not json`,
		``,
		`{"camera_id":"cam-2","frame_id":2,"detections":[]}`,
		`{"frame_id":3,"detections":[{"box":[0,0,1,1],"score":0.5,"class_id":7}]}`,
	)

	src := &FileSource{Path: path, CameraID: "cam-1", Logger: zerolog.Nop()}
	out := make(chan models.Frame, 8)
	require.NoError(t, src.Run(context.Background(), out))

	frames := collect(out)
	require.Len(t, frames, 2)
	assert.Equal(t, int64(1), frames[0].FrameID)
	assert.Equal(t, int64(3), frames[1].FrameID)
}

func TestFileSourceMissingFile(t *testing.T) {
	t.Parallel()

	src := &FileSource{Path: filepath.Join(t.TempDir(), "missing.jsonl"), Logger: zerolog.Nop()}
	out := make(chan models.Frame)
	assert.ErrorIs(t, src.Run(context.Background(), out), os.ErrNotExist)

	_, open := <-out
	assert.False(t, open, "output is closed on error")
}

func TestFileSourceStopsOnCancel(t *testing.T) {
	t.Parallel()

	path := writeReplay(t,
		`{"frame_id":1,"timestamp":"2026-03-02T08:00:00Z"}`,
		`{"frame_id":2,"timestamp":"2026-03-02T09:00:00Z"}`,
	)
	src := &FileSource{Path: path, Speed: 1, Logger: zerolog.Nop()}

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan models.Frame, 1)
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, out) }()

	first := <-out
	assert.Equal(t, int64(1), first.FrameID)
	cancel() // the second frame is an hour away

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("replay did not stop after cancel")
	}
}

func TestFileSourcePacesWithClock(t *testing.T) {
	t.Parallel()

	path := writeReplay(t,
		`{"frame_id":1,"timestamp":"2026-03-02T08:00:00Z"}`,
		`{"frame_id":2,"timestamp":"2026-03-02T08:00:04Z"}`,
	)
	clock := timeutil.NewMockClock(t0)
	src := &FileSource{Path: path, Speed: 2, Clock: clock, Logger: zerolog.Nop()}

	out := make(chan models.Frame, 2)
	done := make(chan error, 1)
	go func() { done <- src.Run(context.Background(), out) }()

	assert.Equal(t, int64(1), (<-out).FrameID)
	require.Eventually(t, func() bool { return clock.Waiters() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, out, "second frame waits for the recorded gap")

	clock.Advance(2 * time.Second) // 4s at double speed
	select {
	case f := <-out:
		assert.Equal(t, int64(2), f.FrameID)
	case <-time.After(2 * time.Second):
		t.Fatal("paced frame was not released")
	}
	require.NoError(t, <-done)
}

func TestFileSourceGap(t *testing.T) {
	t.Parallel()

	s := &FileSource{Speed: 2}
	assert.Equal(t, 500*time.Millisecond, s.gap(t0, t0.Add(time.Second)))
	assert.Zero(t, s.gap(time.Time{}, t0))
	assert.Zero(t, s.gap(t0, t0.Add(-time.Second)), "out of order timestamps are not waited for")

	s.Speed = 0
	assert.Zero(t, s.gap(t0, t0.Add(time.Second)))
}

type fakeSubscriber struct {
	mu      sync.Mutex
	subject string
	handler func([]byte)
	ready   chan struct{}
}

func (f *fakeSubscriber) Subscribe(subject string, handler func([]byte)) (*nats.Subscription, error) {
	f.mu.Lock()
	f.subject = subject
	f.handler = handler
	f.mu.Unlock()
	close(f.ready)
	return nil, nil
}

func (f *fakeSubscriber) publish(data string) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h([]byte(data))
}

func TestNATSSourceDeliversFrames(t *testing.T) {
	t.Parallel()

	sub := &fakeSubscriber{ready: make(chan struct{})}
	src := &NATSSource{Sub: sub, Subject: "junction.detections", CameraID: "cam-1", Logger: zerolog.Nop()}

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan models.Frame, 4)
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, out) }()

	<-sub.ready
	assert.Equal(t, "junction.detections", sub.subject)

	sub.publish(`{"camera_id":"cam-1","frame_id":1}`)
	sub.publish(`{"camera_id":"cam-9","frame_id":2}`)
	sub.publish(`garbage`)
	for i := 3; i <= 7; i++ {
		sub.publish(`{"camera_id":"cam-1","frame_id":` + strconv.Itoa(i) + `}`)
	}

	cancel()
	require.NoError(t, <-done)

	frames := collect(out)
	require.Len(t, frames, 4, "the buffer holds four frames")
	assert.Equal(t, int64(1), frames[0].FrameID)

	received, dropped, invalid := src.Stats()
	assert.Equal(t, int64(6), received)
	assert.Equal(t, int64(2), dropped)
	assert.Equal(t, int64(1), invalid)

	// late messages after shutdown are ignored
	sub.publish(`{"camera_id":"cam-1","frame_id":99}`)
	received, _, _ = src.Stats()
	assert.Equal(t, int64(6), received)
}
