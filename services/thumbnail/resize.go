package thumbnail

import (
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Resizer shrinks an image file in place so that neither edge exceeds
// maxDim, keeping the aspect ratio and never enlarging it.
type Resizer interface {
	// Thumbnail returns the content type of the rewritten file, or "" when
	// the file keeps its original encoding.
	Thumbnail(ctx context.Context, path string, maxDim int) (string, error)
}

// NewResizer picks a resizer by name: "native" or "imagemagick".
func NewResizer(kind, magickBinary string) (Resizer, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "native":
		return NativeResizer{}, nil
	case "imagemagick", "magick", "convert":
		return &MagickResizer{Binary: magickBinary}, nil
	default:
		return nil, fmt.Errorf("unknown resizer %q", kind)
	}
}

// FitWithin returns the largest size with the aspect ratio of w x h that fits
// in a maxDim square. Sizes that already fit are returned unchanged.
func FitWithin(w, h, maxDim int) (int, int) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	if w >= h {
		nh := (h*maxDim + w/2) / w
		if nh < 1 {
			nh = 1
		}
		return maxDim, nh
	}
	nw := (w*maxDim + h/2) / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxDim
}

// NativeResizer decodes and rescales in-process. WebP input is written back
// as PNG since x/image only decodes WebP. Input in a format with no
// registered decoder fails with an error wrapping image.ErrFormat.
type NativeResizer struct{}

func (NativeResizer) Thumbnail(ctx context.Context, path string, maxDim int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("NativeResizer: open: %w", err)
	}
	src, format, err := image.Decode(f)
	f.Close()
	if err != nil {
		return "", fmt.Errorf("NativeResizer: decode: %w", err)
	}

	b := src.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), maxDim)
	out := src
	if w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
		out = dst
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".resize-*")
	if err != nil {
		return "", fmt.Errorf("NativeResizer: create: %w", err)
	}
	defer os.Remove(tmp.Name())

	contentType, err := encode(tmp, out, format)
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("NativeResizer: encode %s: %w", format, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("NativeResizer: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("NativeResizer: replace: %w", err)
	}
	return contentType, nil
}

func encode(f *os.File, img image.Image, format string) (string, error) {
	switch format {
	case "jpeg":
		return "image/jpeg", jpeg.Encode(f, img, &jpeg.Options{Quality: 85})
	case "gif":
		return "image/gif", gif.Encode(f, img, nil)
	case "bmp":
		return "image/bmp", bmp.Encode(f, img)
	case "tiff":
		return "image/tiff", tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return "image/png", png.Encode(f, img)
	}
}

// MagickResizer shells out to ImageMagick, equivalent to
// `convert in -thumbnail 200x200> in`.
type MagickResizer struct {
	Binary string
}

func (m *MagickResizer) Thumbnail(ctx context.Context, path string, maxDim int) (string, error) {
	bin := m.Binary
	if bin == "" {
		bin = "convert"
	}
	geometry := fmt.Sprintf("%dx%d>", maxDim, maxDim)
	out, err := exec.CommandContext(ctx, bin, path, "-thumbnail", geometry, path).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("MagickResizer: %s failed: %w: %s", bin, err, strings.TrimSpace(string(out)))
	}
	return "", nil
}
