package session

import (
	"bytes"
	"context"
	"errors"
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"

	"snipper/src/capture"
	"snipper/src/geometry"
	"snipper/src/selection"
	"snipper/src/settings"
	"snipper/src/singleinstance"
)

type fakeTarget struct {
	successes []Result
	failures  []error
	failNext  error
}

func (f *fakeTarget) OnSuccess(res Result) error {
	f.successes = append(f.successes, res)
	return f.failNext
}

func (f *fakeTarget) OnFailure(err error) error {
	f.failures = append(f.failures, err)
	return nil
}

type fakeDeliverer struct {
	path  string
	err   error
	calls int
}

func (f *fakeDeliverer) Deliver(ctx context.Context, bmp *capture.Bitmap) (string, error) {
	f.calls++
	return f.path, f.err
}

func capturer(got *[]capture.Target) CaptureFunc {
	return func(ctx context.Context, target capture.Target) (*capture.Bitmap, error) {
		*got = append(*got, target)
		w, h := 1440, 900
		if !target.Full {
			w, h = int(target.Rect.W), int(target.Rect.H)
		}
		return capture.NewBitmap(image.NewRGBA(image.Rect(0, 0, w, h))), nil
	}
}

func selectReturning(out selection.Outcome, err error, calls *int) SelectFunc {
	return func(context.Context) (selection.Outcome, error) {
		*calls++
		return out, err
	}
}

func TestPlan(t *testing.T) {
	area := geometry.Rect{X: 100, Y: 100, W: 200, H: 150}
	tests := []struct {
		name        string
		mode        settings.Mode
		outcome     selection.Outcome
		want        capture.Target
		wantErr     error
		wantSelects int
	}{
		{"full mode skips overlay", settings.ModeFull, selection.Outcome{}, capture.FullScreen(), nil, 0},
		{"confirmed area", settings.ModeArea, selection.Outcome{State: selection.Confirmed, Rect: area}, capture.Area(area), nil, 1},
		{"enter in full mode", settings.ModeArea, selection.Outcome{State: selection.FullScreen}, capture.FullScreen(), nil, 1},
		{"cancelled", settings.ModeArea, selection.Outcome{State: selection.Cancelled}, capture.Target{}, ErrSelectionCancelled, 1},
		{"zero area equals cancel", settings.ModeArea, selection.Outcome{State: selection.Confirmed, Rect: geometry.Rect{X: 5, Y: 5}}, capture.Target{}, ErrSelectionCancelled, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			got, err := Plan(context.Background(), tt.mode, true, selectReturning(tt.outcome, nil, &calls))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected err %v, got %v", tt.wantErr, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("target mismatch (-want +got):\n%s", diff)
			}
			if calls != tt.wantSelects {
				t.Fatalf("expected %d selections, got %d", tt.wantSelects, calls)
			}
		})
	}
}

func TestPlanAreaUnsupportedSkipsOverlay(t *testing.T) {
	calls := 0
	_, err := Plan(context.Background(), settings.ModeArea, false, selectReturning(selection.Outcome{}, nil, &calls))
	if !errors.Is(err, capture.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("overlay must not be shown, got %d selections", calls)
	}
}

func TestPlanSelectionError(t *testing.T) {
	calls := 0
	_, err := Plan(context.Background(), settings.ModeArea, true, selectReturning(selection.Outcome{}, context.Canceled, &calls))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected wrapped context error, got %v", err)
	}
}

func TestExecuteAreaEndToEnd(t *testing.T) {
	var captured []capture.Target
	calls := 0
	deliver := &fakeDeliverer{path: "/tmp/Screenshot_2024-01-01_00-00-00.png"}
	target := &fakeTarget{}

	res, err := Execute(context.Background(), Options{
		Mode:          settings.ModeArea,
		AreaSupported: true,
		Select:        selectReturning(selection.Outcome{State: selection.Confirmed, Rect: geometry.Rect{X: 100, Y: 100, W: 200, H: 150}}, nil, &calls),
		Capture:       capturer(&captured),
		Deliver:       deliver,
		Target:        target,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.Width != 200 || res.Height != 150 {
		t.Fatalf("expected 200x150, got %dx%d", res.Width, res.Height)
	}
	if res.Path != deliver.path || res.SessionID == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if deliver.calls != 1 || len(target.successes) != 1 || len(target.failures) != 0 {
		t.Fatalf("expected one delivery and one success, got deliver=%d success=%d failure=%d",
			deliver.calls, len(target.successes), len(target.failures))
	}
}

func TestExecuteCancelledNeverCaptures(t *testing.T) {
	var captured []capture.Target
	calls := 0
	deliver := &fakeDeliverer{}
	target := &fakeTarget{}

	_, err := Execute(context.Background(), Options{
		Mode:          settings.ModeArea,
		AreaSupported: true,
		Select:        selectReturning(selection.Outcome{State: selection.Cancelled}, nil, &calls),
		Capture:       capturer(&captured),
		Deliver:       deliver,
		Target:        target,
	})
	if !errors.Is(err, ErrSelectionCancelled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(captured) != 0 || deliver.calls != 0 {
		t.Fatalf("cancel must not capture or deliver, got %d captures %d deliveries", len(captured), deliver.calls)
	}
	if len(target.failures) != 1 {
		t.Fatalf("expected one failure report, got %d", len(target.failures))
	}
}

func TestExecuteCaptureFailureSkipsDelivery(t *testing.T) {
	deliver := &fakeDeliverer{}
	target := &fakeTarget{}
	boom := capture.NewError(capture.KindPermissionDenied, "capture", nil)

	_, err := Execute(context.Background(), Options{
		Mode:    settings.ModeFull,
		Capture: func(context.Context, capture.Target) (*capture.Bitmap, error) { return nil, boom },
		Deliver: deliver,
		Target:  target,
	})
	if !errors.Is(err, capture.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if deliver.calls != 0 {
		t.Fatalf("expected no delivery, got %d", deliver.calls)
	}
	if len(target.failures) != 1 || len(target.successes) != 0 {
		t.Fatalf("expected one failure, got %+v", target)
	}
}

func TestExecuteDeliveryFailure(t *testing.T) {
	var captured []capture.Target
	target := &fakeTarget{}
	_, err := Execute(context.Background(), Options{
		Mode:    settings.ModeFull,
		Capture: capturer(&captured),
		Deliver: &fakeDeliverer{err: capture.NewError(capture.KindIO, "write", errors.New("disk full"))},
		Target:  target,
	})
	if capture.KindOf(err) != capture.KindIO {
		t.Fatalf("expected io error, got %v", err)
	}
	if diff := cmp.Diff([]capture.Target{capture.FullScreen()}, captured); diff != "" {
		t.Fatalf("capture mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteRequiresTarget(t *testing.T) {
	if _, err := Execute(context.Background(), Options{}); err == nil {
		t.Fatal("expected error without target")
	}
}

func TestStdoutTargetPrintsPath(t *testing.T) {
	var buf bytes.Buffer
	if err := (StdoutTarget{Writer: &buf}).OnSuccess(Result{Path: "/tmp/a.png"}); err != nil {
		t.Fatalf("OnSuccess failed: %v", err)
	}
	if buf.String() != "/tmp/a.png\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

type fakeConn struct {
	success []string
	errors  []string
}

func (c *fakeConn) Request() singleinstance.Request { return singleinstance.Request{} }
func (c *fakeConn) RespondSuccess(path string) error {
	c.success = append(c.success, path)
	return nil
}
func (c *fakeConn) RespondError(msg string) error {
	c.errors = append(c.errors, msg)
	return nil
}
func (c *fakeConn) Close() error { return nil }

func TestDelegatedTarget(t *testing.T) {
	conn := &fakeConn{}
	tgt := DelegatedTarget{Conn: conn}
	_ = tgt.OnSuccess(Result{Path: "/tmp/b.png"})
	_ = tgt.OnFailure(ErrSelectionCancelled)
	_ = tgt.OnFailure(nil)

	if diff := cmp.Diff([]string{"/tmp/b.png"}, conn.success); diff != "" {
		t.Fatalf("success mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"selection cancelled", "unknown session error"}, conn.errors); diff != "" {
		t.Fatalf("error mismatch (-want +got):\n%s", diff)
	}
	if err := (DelegatedTarget{}).OnSuccess(Result{}); err == nil {
		t.Fatal("expected error without connection")
	}
}
