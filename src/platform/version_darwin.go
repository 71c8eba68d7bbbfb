//go:build darwin

package platform

import "golang.org/x/sys/unix"

// OSVersion returns the macOS product version, e.g. "14.4.1".
func OSVersion() (string, error) {
	return unix.Sysctl("kern.osproductversion")
}
