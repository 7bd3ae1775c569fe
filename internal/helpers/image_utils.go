package helpers

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

const (
	// Frame bounds used when pushing frames to the inference service
	DefaultMaxWidth = 640
	DefaultQuality  = 50

	jpegDataURLPrefix = "data:image/jpeg;base64,"
)

// ErrNotDataURL is returned when a string is not a base64 data URL
var ErrNotDataURL = errors.New("not a base64 data URL")

// IsJPEGData checks if the byte slice contains JPEG data by checking magic bytes
func IsJPEGData(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	// JPEG magic bytes: FF D8
	return data[0] == 0xFF && data[1] == 0xD8
}

// ScaledSize returns the dimensions of a width x height image bounded to maxWidth,
// keeping the aspect ratio. Images already narrow enough are not upscaled.
func ScaledSize(width, height, maxWidth int) (int, int) {
	if width <= 0 || height <= 0 || maxWidth <= 0 || width <= maxWidth {
		return width, height
	}
	scale := float64(maxWidth) / float64(width)
	newHeight := int(math.Round(float64(height) * scale))
	if newHeight < 1 {
		newHeight = 1
	}
	return maxWidth, newHeight
}

// ResizeToMaxWidth downsamples img so its width is at most maxWidth
func ResizeToMaxWidth(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	newWidth, newHeight := ScaledSize(bounds.Dx(), bounds.Dy(), maxWidth)
	if newWidth == bounds.Dx() && newHeight == bounds.Dy() {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

// EncodeJPEG encodes img with the given quality (1-100)
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}

	log.Trace().
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Int("quality", quality).
		Int("size", buf.Len()).
		Msg("Frame encoded")

	return buf.Bytes(), nil
}

// EncodeDataURL wraps JPEG bytes as a data URL
func EncodeDataURL(jpegData []byte) string {
	return jpegDataURLPrefix + base64.StdEncoding.EncodeToString(jpegData)
}

// DecodeDataURL returns the payload bytes and media type of a base64 data URL
func DecodeDataURL(s string) ([]byte, string, error) {
	if !strings.HasPrefix(s, "data:") {
		return nil, "", ErrNotDataURL
	}
	meta, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, "", ErrNotDataURL
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data URL payload: %w", err)
	}

	mediaType := strings.TrimSuffix(meta, ";base64")
	if mediaType == "" {
		mediaType = "text/plain"
	}
	return data, mediaType, nil
}
