package widget

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
)

var (
	// ErrNoClipboard is returned when no clipboard backend is usable.
	ErrNoClipboard = errors.New("no clipboard available")
	// ErrNothingToCopy is returned by Copy before a QR code has been rendered.
	ErrNothingToCopy = errors.New("no qr code to copy")
)

// Clipboard accepts a single PNG image write.
type Clipboard interface {
	WriteImage(ctx context.Context, png []byte) error
}

// DefaultImageCommands are tried in order by CommandClipboard.
var DefaultImageCommands = [][]string{
	{"wl-copy", "--type", "image/png"},
	{"xclip", "-selection", "clipboard", "-t", "image/png", "-i"},
}

// CommandClipboard pipes PNG data into the first installed clipboard tool.
type CommandClipboard struct {
	Commands [][]string
}

// NewCommandClipboard returns a CommandClipboard using DefaultImageCommands.
func NewCommandClipboard() *CommandClipboard {
	return &CommandClipboard{Commands: DefaultImageCommands}
}

func (c *CommandClipboard) WriteImage(ctx context.Context, data []byte) error {
	for _, argv := range c.Commands {
		if len(argv) == 0 {
			continue
		}
		if _, err := exec.LookPath(argv[0]); err != nil {
			continue
		}
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		cmd.Stdin = bytes.NewReader(data)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("run %s: %w: %s", argv[0], err, strings.TrimSpace(string(out)))
		}
		return nil
	}
	return ErrNoClipboard
}

// FileClipboard writes the PNG to Path, replacing any previous image.
type FileClipboard struct {
	Path string
}

func (c FileClipboard) WriteImage(_ context.Context, data []byte) error {
	if c.Path == "" {
		return ErrNoClipboard
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return fmt.Errorf("create clipboard dir: %w", err)
	}
	if err := os.WriteFile(c.Path, data, 0o644); err != nil {
		return fmt.Errorf("write clipboard file: %w", err)
	}
	return nil
}

// CopyText puts text on the system clipboard.
func CopyText(text string) error {
	if clipboard.Unsupported {
		return ErrNoClipboard
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard text: %w", err)
	}
	return nil
}

// rasterize redraws an encoded image onto a fresh RGBA canvas and exports it
// as PNG.
func rasterize(data []byte) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode qr image: %w", err)
	}
	canvas := image.NewRGBA(src.Bounds())
	draw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode qr image: %w", err)
	}
	return buf.Bytes(), nil
}
