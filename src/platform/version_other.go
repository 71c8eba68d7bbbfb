//go:build !darwin

package platform

import "errors"

var errNotDarwin = errors.New("not running on macOS")

func OSVersion() (string, error) {
	return "", errNotDarwin
}
