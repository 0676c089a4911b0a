package ui

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/atotto/clipboard"
)

// copyToClipboardFn and openURLFn are the active implementations for clipboard
// and browser operations. Tests replace them via StubPlatformActions.
var (
	copyToClipboardFn = copyToClipboardImpl
	openURLFn         = openURLImpl
)

// CopyToClipboard copies text to the system clipboard.
func CopyToClipboard(text string) error { return copyToClipboardFn(text) }

// OpenURL opens a URL in the default browser.
func OpenURL(url string) error { return openURLFn(url) }

// StubPlatformActions replaces clipboard and browser functions with no-ops
// that record their argument into copied (when non-nil) and returns a restore
// function.
func StubPlatformActions(copied *[]string) (restore func()) {
	origCopy := copyToClipboardFn
	origOpen := openURLFn
	copyToClipboardFn = func(s string) error {
		if copied != nil {
			*copied = append(*copied, s)
		}
		return nil
	}
	openURLFn = func(string) error { return nil }
	return func() {
		copyToClipboardFn = origCopy
		openURLFn = origOpen
	}
}

func copyToClipboardImpl(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard unavailable (install xclip, xsel, or wl-clipboard)")
	}
	return clipboard.WriteAll(text)
}

// openURLImpl uses a detached context since the child process outlives the caller.
func openURLImpl(url string) error {
	ctx := context.Background()

	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "linux":
		if _, err := exec.LookPath("xdg-open"); err == nil {
			cmd = exec.CommandContext(ctx, "xdg-open", url)
		} else {
			return fmt.Errorf("xdg-open not found (install xdg-utils)")
		}
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
