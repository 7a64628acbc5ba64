//go:build linux

package services

import "errors"

// clipboardAvailable indicates if clipboard functionality is available on this platform
const clipboardAvailable = false

var errClipboardUnavailable = errors.New("clipboard not available on this platform (Linux without X11)")

func initClipboard() error {
	return errClipboardUnavailable
}

func writeToClipboard(string) error {
	return errClipboardUnavailable
}
