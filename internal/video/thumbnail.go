package video

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

const (
	defaultThumbnailWidth   = 640
	defaultThumbnailQuality = 85
)

// Thumbnail scales a rendered slide down to thumbnail width, keeping its
// aspect ratio, and encodes it as JPEG.
func (c *Compiler) Thumbnail(slide []byte) ([]byte, error) {
	if len(slide) == 0 {
		return nil, errors.New("no slide to build thumbnail from")
	}

	src, _, err := image.Decode(bytes.NewReader(slide))
	if err != nil {
		return nil, fmt.Errorf("decode slide: %w", err)
	}

	bounds := src.Bounds()
	width := min(c.thumbWidth, bounds.Dx())
	height := max(1, bounds.Dy()*width/bounds.Dx())

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: c.thumbQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
