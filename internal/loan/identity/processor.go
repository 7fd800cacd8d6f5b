// Package identity validates, normalises and sequences the two national ID captures.
package identity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"gfn-loan-service/internal/models"

	"github.com/disintegration/imaging"
)

var ErrImageRejected = errors.New("IMAGE_REJECTED")

// Validation is the outcome of Validate. Message is user facing.
type Validation struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// ImageProcessor is the validation/normalisation collaborator used by the orchestrator.
type ImageProcessor interface {
	Validate(data []byte) Validation
	Process(ctx context.Context, side models.ImageSide, data []byte) (models.CapturedIdentityImage, error)
}

type ProcessorConfig struct {
	MaxBytes    int64
	MinWidth    int
	MinHeight   int
	MaxEdge     int
	JPEGQuality int
}

func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		MaxBytes:    10 << 20,
		MinWidth:    320,
		MinHeight:   200,
		MaxEdge:     1600,
		JPEGQuality: 85,
	}
}

// Processor accepts JPEG or PNG photos of an ID card and re-encodes them as
// upright JPEGs no larger than MaxEdge on either side.
type Processor struct {
	cfg ProcessorConfig
}

func NewProcessor(cfg ProcessorConfig) *Processor {
	return &Processor{cfg: cfg}
}

var acceptedFormats = map[string]bool{"jpeg": true, "png": true}

func (p *Processor) Validate(data []byte) Validation {
	if len(data) == 0 {
		return Validation{Message: "The selected file is empty. Please take the photo again."}
	}
	if p.cfg.MaxBytes > 0 && int64(len(data)) > p.cfg.MaxBytes {
		return Validation{Message: fmt.Sprintf("The image is too large. Maximum size is %d MB.", p.cfg.MaxBytes>>20)}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Validation{Message: "The file is not a supported image. Please upload a JPEG or PNG photo."}
	}
	if !acceptedFormats[format] {
		return Validation{Message: "Only JPEG or PNG photos of your ID card are accepted."}
	}

	// Photos taken in portrait come through with swapped dimensions.
	long, short := cfg.Width, cfg.Height
	if short > long {
		long, short = short, long
	}
	if long < p.cfg.MinWidth || short < p.cfg.MinHeight {
		return Validation{Message: "The image resolution is too low. Please move closer and make sure the card fills the frame."}
	}

	return Validation{Valid: true}
}

func (p *Processor) Process(ctx context.Context, side models.ImageSide, data []byte) (models.CapturedIdentityImage, error) {
	if err := ctx.Err(); err != nil {
		return models.CapturedIdentityImage{}, err
	}
	if v := p.Validate(data); !v.Valid {
		return models.CapturedIdentityImage{}, fmt.Errorf("%w: %s", ErrImageRejected, v.Message)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return models.CapturedIdentityImage{}, fmt.Errorf("decode %s image: %w", side, err)
	}

	b := img.Bounds()
	if p.cfg.MaxEdge > 0 && (b.Dx() > p.cfg.MaxEdge || b.Dy() > p.cfg.MaxEdge) {
		img = imaging.Fit(img, p.cfg.MaxEdge, p.cfg.MaxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.cfg.JPEGQuality)); err != nil {
		return models.CapturedIdentityImage{}, fmt.Errorf("encode %s image: %w", side, err)
	}

	out := buf.Bytes()
	return models.CapturedIdentityImage{
		Side:        side,
		Data:        out,
		ContentType: "image/jpeg",
		SizeBytes:   int64(len(out)),
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
	}, nil
}
