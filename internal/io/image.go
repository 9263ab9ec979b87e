package ioutils

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // GIF decoder registration
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"golang.org/x/image/draw"
)

// MimeJPEG is the MIME type of every re-encoded image.
const MimeJPEG = "image/jpeg"

// ImageOptions selects what Prepare does to an image.
type ImageOptions struct {
	// Resize shrinks images larger than MaxWidth x MaxHeight, keeping the aspect ratio.
	Resize    bool
	MaxWidth  int
	MaxHeight int

	// ConvertToJPEG re-encodes the image as JPEG even when no resize is needed.
	ConvertToJPEG bool
}

// ImageService prepares cover art for the album folder and for tags.
//
// Example:
//
//	svc := NewImageService()
//	data, mime, err := svc.Prepare(ctx, cover, "image/png", ImageOptions{
//	    Resize: true, MaxWidth: 1000, MaxHeight: 1000, ConvertToJPEG: true,
//	})
type ImageService struct {
	quality int
}

// NewImageService creates an ImageService encoding JPEG at quality 90.
func NewImageService() *ImageService {
	return &ImageService{quality: 90}
}

// Prepare applies opts to data. When nothing needs to change the input is
// returned as is, with its MIME type.
func (s *ImageService) Prepare(ctx context.Context, data []byte, mime string, opts ImageOptions) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	if !opts.Resize && !opts.ConvertToJPEG {
		return data, mime, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	if opts.Resize {
		img = fit(img, opts.MaxWidth, opts.MaxHeight)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, "", fmt.Errorf("encode jpeg: %w", err)
	}

	return buf.Bytes(), MimeJPEG, nil
}

// fit scales img down with Catmull-Rom so it fits in maxWidth x maxHeight.
// Smaller images are returned unchanged.
func fit(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if maxWidth <= 0 || maxHeight <= 0 || (width <= maxWidth && height <= maxHeight) {
		return img
	}

	ratio := float64(width) / float64(height)
	if float64(maxWidth)/float64(maxHeight) > ratio {
		width = int(float64(maxHeight) * ratio)
		height = maxHeight
	} else {
		height = int(float64(maxWidth) / ratio)
		width = maxWidth
	}

	dst := image.NewRGBA(image.Rect(0, 0, max(width, 1), max(height, 1)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	return dst
}
