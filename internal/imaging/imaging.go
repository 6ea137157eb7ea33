// Package imaging normalizes incident evidence photos: the upload is
// sniffed, decoded, bounded in size and stored as a single JPEG.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// MaxDimension is the maximum width or height of a stored photo.
const MaxDimension = 1024

// JPEGQuality is the compression quality of stored photos.
const JPEGQuality = 85

// MaxUploadBytes caps the size of an accepted upload.
const MaxUploadBytes = 10 << 20

// ErrUnsupported is returned for uploads that are not a usable image.
var ErrUnsupported = errors.New("unsupported image")

var decoders = map[string]func([]byte) (image.Image, error){
	"image/jpeg": func(b []byte) (image.Image, error) { return jpeg.Decode(bytes.NewReader(b)) },
	"image/png":  func(b []byte) (image.Image, error) { return png.Decode(bytes.NewReader(b)) },
	"image/gif":  func(b []byte) (image.Image, error) { return gif.Decode(bytes.NewReader(b)) },
	"image/webp": func(b []byte) (image.Image, error) { return webp.Decode(bytes.NewReader(b)) },
}

// Photo is a normalized photo ready for storage.
type Photo struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Process validates an uploaded photo by its bytes, never by the client's
// content type, and re-encodes it as a JPEG no larger than MaxDimension.
// Transparent areas are flattened onto white.
func Process(data []byte) (*Photo, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrUnsupported)
	}
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrUnsupported, MaxUploadBytes)
	}

	detected := http.DetectContentType(data)
	decode, ok := decoders[detected]
	if !ok {
		return nil, fmt.Errorf("%w: %s (JPEG, PNG, GIF or WebP accepted)", ErrUnsupported, detected)
	}

	img, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrUnsupported, detected, err)
	}

	out := fit(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	b := out.Bounds()
	return &Photo{
		Data:   buf.Bytes(),
		MIME:   "image/jpeg",
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// fit draws img onto a white canvas no larger than maxDim on either side,
// keeping the aspect ratio.
func fit(img image.Image, maxDim int) *image.RGBA {
	src := img.Bounds()
	w, h := src.Dx(), src.Dy()

	newW, newH := w, h
	if w > maxDim || h > maxDim {
		if w > h {
			newW = maxDim
			newH = h * maxDim / w
		} else {
			newH = maxDim
			newW = w * maxDim / h
		}
	}
	newW = max(newW, 1)
	newH = max(newH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if newW == w && newH == h {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
	}
	return dst
}
