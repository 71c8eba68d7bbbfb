// Package output hands a captured bitmap to its sinks: clipboard, file, sound.
package output

import (
	"context"
	"log"

	"snipper/src/capture"
)

// ClipboardWriter replaces the pasteboard contents with a PNG image.
type ClipboardWriter interface {
	WriteImage(png []byte) error
}

// FileSink persists PNG bytes and returns the written path.
type FileSink interface {
	Write(png []byte) (string, error)
}

// Notifier plays the completion cue.
type Notifier interface {
	Play(ctx context.Context) error
}

// Finalizer runs the sinks for one capture, always in the order clipboard, file, sound.
type Finalizer struct {
	Clipboard ClipboardWriter
	File      FileSink
	Sound     Notifier
}

// Deliver encodes bmp once and hands the same bytes to every sink. Only a failed file
// write fails the delivery; clipboard and sound problems are logged.
func (f *Finalizer) Deliver(ctx context.Context, bmp *capture.Bitmap) (string, error) {
	data, err := bmp.PNG()
	if err != nil {
		return "", err
	}

	if f.Clipboard != nil {
		if err := f.Clipboard.WriteImage(data); err != nil {
			log.Printf("output: clipboard write failed: %v", err)
		}
	}

	var path string
	if f.File != nil {
		path, err = f.File.Write(data)
		if err != nil {
			return "", err
		}
		log.Printf("output: saved %dx%d screenshot to %s", bmp.Width(), bmp.Height(), path)
	}

	if f.Sound != nil {
		if err := f.Sound.Play(ctx); err != nil {
			log.Printf("output: sound failed: %v", err)
		}
	}
	return path, nil
}
