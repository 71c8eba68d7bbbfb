package output

import (
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"snipper/src/capture"
)

type recorder struct {
	events []string
	png    [][]byte
}

type fakeClipboard struct {
	r   *recorder
	err error
}

func (c fakeClipboard) WriteImage(png []byte) error {
	c.r.events = append(c.r.events, "clipboard")
	c.r.png = append(c.r.png, png)
	return c.err
}

type fakeFile struct {
	r   *recorder
	err error
}

func (f fakeFile) Write(png []byte) (string, error) {
	f.r.events = append(f.r.events, "file")
	f.r.png = append(f.r.png, png)
	return "/tmp/shot.png", f.err
}

type fakeSound struct{ r *recorder }

func (s fakeSound) Play(context.Context) error {
	s.r.events = append(s.r.events, "sound")
	return nil
}

func testBitmap(w, h int) *capture.Bitmap {
	return capture.NewBitmap(image.NewRGBA(image.Rect(0, 0, w, h)))
}

func TestDeliverRunsSinksInOrder(t *testing.T) {
	r := &recorder{}
	f := &Finalizer{Clipboard: fakeClipboard{r: r}, File: fakeFile{r: r}, Sound: fakeSound{r: r}}

	path, err := f.Deliver(context.Background(), testBitmap(200, 150))
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if path != "/tmp/shot.png" {
		t.Fatalf("unexpected path %q", path)
	}
	if diff := cmp.Diff([]string{"clipboard", "file", "sound"}, r.events); diff != "" {
		t.Fatalf("sink order mismatch (-want +got):\n%s", diff)
	}
	if !bytes.Equal(r.png[0], r.png[1]) {
		t.Fatal("clipboard and file must receive the same encoded bytes")
	}
}

func TestDeliverSurvivesClipboardFailure(t *testing.T) {
	r := &recorder{}
	f := &Finalizer{Clipboard: fakeClipboard{r: r, err: errors.New("pasteboard locked")}, File: fakeFile{r: r}, Sound: fakeSound{r: r}}

	if _, err := f.Deliver(context.Background(), testBitmap(4, 4)); err != nil {
		t.Fatalf("clipboard failure must not fail delivery: %v", err)
	}
	if len(r.events) != 3 {
		t.Fatalf("expected all sinks to run, got %v", r.events)
	}
}

func TestDeliverStopsOnFileFailure(t *testing.T) {
	r := &recorder{}
	ioErr := capture.NewError(capture.KindIO, "write screenshot", errors.New("disk full"))
	f := &Finalizer{Clipboard: fakeClipboard{r: r}, File: fakeFile{r: r, err: ioErr}, Sound: fakeSound{r: r}}

	_, err := f.Deliver(context.Background(), testBitmap(4, 4))
	if !errors.Is(err, capture.ErrIO) {
		t.Fatalf("expected io error, got %v", err)
	}
	if diff := cmp.Diff([]string{"clipboard", "file"}, r.events); diff != "" {
		t.Fatalf("sound must not play after a failed write (-want +got):\n%s", diff)
	}
}

func TestFilename(t *testing.T) {
	ts := time.Date(2024, 3, 9, 7, 5, 1, 0, time.FixedZone("CET", 3600))
	if got := Filename(ts); got != "Screenshot_2024-03-09_06-05-01.png" {
		t.Fatalf("unexpected filename %q", got)
	}
}

func TestDirWritesTimestampedFiles(t *testing.T) {
	root := filepath.Join(t.TempDir(), "does", "not", "exist")
	d := NewDir(func() string { return root })
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	d.Now = func() time.Time { return fixed }

	var paths []string
	for i := 0; i < 3; i++ {
		p, err := d.Write([]byte("png"))
		if err != nil {
			t.Fatalf("Write %d failed: %v", i, err)
		}
		paths = append(paths, filepath.Base(p))
	}
	want := []string{
		"Screenshot_2024-01-02_03-04-05.png",
		"Screenshot_2024-01-02_03-04-05_1.png",
		"Screenshot_2024-01-02_03-04-05_2.png",
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Fatalf("filenames mismatch (-want +got):\n%s", diff)
	}
}

func TestDirNameMatchesPattern(t *testing.T) {
	dir := t.TempDir()
	p, err := NewDir(func() string { return dir }).Write([]byte("png"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	re := regexp.MustCompile(`^Screenshot_\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}\.png$`)
	if !re.MatchString(filepath.Base(p)) {
		t.Fatalf("unexpected name %q", filepath.Base(p))
	}
	data, _ := os.ReadFile(p)
	if string(data) != "png" {
		t.Fatalf("unexpected contents %q", data)
	}
}

func TestDirIOError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewDir(func() string { return filepath.Join(blocker, "sub") }).Write([]byte("png"))
	if capture.KindOf(err) != capture.KindIO {
		t.Fatalf("expected io error, got %v", err)
	}

	if _, err := NewDir(func() string { return "" }).Write([]byte("png")); capture.KindOf(err) != capture.KindIO {
		t.Fatalf("expected io error for empty path, got %v", err)
	}
}

func TestEndToEndDeliveryToDisk(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{}
	f := &Finalizer{Clipboard: fakeClipboard{r: r}, File: NewDir(func() string { return dir })}

	path, err := f.Deliver(context.Background(), testBitmap(200, 150))
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || filepath.Join(dir, entries[0].Name()) != path {
		t.Fatalf("expected exactly one file at %s, got %v", path, entries)
	}
	if len(r.png) != 1 {
		t.Fatalf("expected exactly one clipboard write, got %d", len(r.png))
	}
	data, _ := os.ReadFile(path)
	if !bytes.Equal(data, r.png[0]) {
		t.Fatal("file and clipboard contents differ")
	}
}

func TestSound(t *testing.T) {
	var ran []string
	s := NewSound(false)
	s.command = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		ran = append(ran, name)
		return exec.CommandContext(ctx, "true")
	}
	if err := s.Play(context.Background()); err != nil || len(ran) != 0 {
		t.Fatalf("disabled sound must do nothing, err=%v ran=%v", err, ran)
	}

	s.Enabled = true
	if err := s.Play(context.Background()); err != nil {
		t.Skipf("no 'true' binary available: %v", err)
	}
	if diff := cmp.Diff([]string{"afplay"}, ran); diff != "" {
		t.Fatalf("unexpected command (-want +got):\n%s", diff)
	}

	s.command = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, filepath.Join(t.TempDir(), "missing-binary"))
	}
	if err := s.Play(context.Background()); err == nil {
		t.Fatal("expected error for missing player")
	}
}
