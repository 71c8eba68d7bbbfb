package notification

import (
	"fmt"
	"log"
	"os"

	"fyne.io/fyne/v2"

	"snipper/src/capture"
)

const appTitle = "Snipper"

// Notifier posts desktop notifications through fyne. A nil app only logs.
type Notifier struct {
	app fyne.App
}

func New(a fyne.App) *Notifier { return &Notifier{app: a} }

func (n *Notifier) Notify(title, message string) {
	log.Printf("notification: %s: %s", title, message)
	if n == nil || n.app == nil {
		return
	}
	n.app.SendNotification(fyne.NewNotification(title, message))
}

// CaptureFailed alerts the user when err is one they can act on. Other failures are only logged.
func (n *Notifier) CaptureFailed(err error) {
	title, body, ok := Message(err)
	if !ok {
		log.Printf("notification: not alerting for %v", err)
		return
	}
	n.Notify(title, body)
}

// Message returns the alert text for err and whether it should be shown at all.
func Message(err error) (title, body string, ok bool) {
	if !capture.UserVisible(err) {
		return "", "", false
	}
	switch capture.KindOf(err) {
	case capture.KindPermissionDenied:
		return appTitle, "Screen Recording permission is required. Enable Snipper in System Settings > Privacy & Security > Screen Recording, then try again.", true
	default:
		return appTitle, fmt.Sprintf("Screenshot failed: %v", err), true
	}
}

// ShowBlockingError reports a fatal startup problem before any window exists.
func ShowBlockingError(title, message string) {
	log.Printf("%s: %s", title, message)
	fmt.Fprintf(os.Stderr, "%s: %s\n", title, message)
}
