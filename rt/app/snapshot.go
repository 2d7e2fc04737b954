package app

import (
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/gekko3d/rtdemo/rt/core"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

var ErrImageFormat = errors.New("unsupported image format")

var imageFormats = map[string]bool{".png": true, ".bmp": true, ".tif": true, ".tiff": true, ".gif": true}

// Snapshot converts a packed 0x00RRGGBB framebuffer into an opaque RGBA
// image. Row 0 is the top of the image.
func Snapshot(pixels []uint32, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	n := width * height
	if len(pixels) < n {
		n = len(pixels)
	}
	for i := 0; i < n; i++ {
		r, g, b := core.UnpackColor(pixels[i])
		p := i * 4
		img.Pix[p+0] = r
		img.Pix[p+1] = g
		img.Pix[p+2] = b
		img.Pix[p+3] = 255
	}
	return img
}

// PixelBytes views a packed framebuffer as its little-endian bytes, which is
// B,G,R,X per pixel. The slice aliases pixels.
func PixelBytes(pixels []uint32) []byte {
	if len(pixels) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&pixels[0])), len(pixels)*4)
}

// Encode writes img in the format named by ext (".png", ".bmp", ".tif",
// ".tiff" or ".gif").
func Encode(w io.Writer, ext string, img image.Image) error {
	switch strings.ToLower(ext) {
	case ".png":
		return png.Encode(w, img)
	case ".bmp":
		return bmp.Encode(w, img)
	case ".tif", ".tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case ".gif":
		pimg := image.NewPaletted(img.Bounds(), palette.Plan9)
		draw.FloydSteinberg.Draw(pimg, pimg.Bounds(), img, image.Point{})
		return gif.Encode(w, pimg, nil)
	}
	return fmt.Errorf("%w %q", ErrImageFormat, ext)
}

// WriteImage encodes img to path, picking the format from the extension.
func WriteImage(path string, img image.Image) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !imageFormats[ext] {
		return fmt.Errorf("%w %q", ErrImageFormat, ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Encode(f, ext, img)
}
