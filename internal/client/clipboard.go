package client

import (
	"strings"

	"github.com/atotto/clipboard"
)

var clipboardWriteAll = clipboard.WriteAll

func copyToClipboard(text string) error {
	return clipboardWriteAll(strings.TrimRight(text, "\n"))
}
