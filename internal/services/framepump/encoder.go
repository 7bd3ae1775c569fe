package framepump

import (
	"fmt"
	"image"
	"time"

	"vigil-live-go/internal/helpers"
	"vigil-live-go/internal/models"
)

// Encoder bounds and compresses sampled frames before they go on the wire
type Encoder struct {
	MaxWidth int
	Quality  int
}

// NewEncoder returns an encoder, falling back to the default bounds for zero values
func NewEncoder(maxWidth, quality int) Encoder {
	if maxWidth <= 0 {
		maxWidth = helpers.DefaultMaxWidth
	}
	if quality <= 0 {
		quality = helpers.DefaultQuality
	}
	return Encoder{MaxWidth: maxWidth, Quality: quality}
}

// Encode downsamples img to at most MaxWidth, keeping the aspect ratio, and JPEG-encodes it
func (e Encoder) Encode(img image.Image) (models.Frame, error) {
	if img == nil || img.Bounds().Empty() {
		return models.Frame{}, fmt.Errorf("empty source frame")
	}

	scaled := helpers.ResizeToMaxWidth(img, e.MaxWidth)
	data, err := helpers.EncodeJPEG(scaled, e.Quality)
	if err != nil {
		return models.Frame{}, err
	}

	return models.Frame{
		Width:      scaled.Bounds().Dx(),
		Height:     scaled.Bounds().Dy(),
		Quality:    e.Quality,
		Data:       data,
		CapturedAt: time.Now(),
	}, nil
}
