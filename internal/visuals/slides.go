package visuals

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	DefaultWidth        = 1280
	DefaultHeight       = 720
	DefaultMaxSlides    = 5
	DefaultSlideCount   = 3
	DefaultSlideSeconds = 3
	MaxCaptionLength    = 50

	defaultFontSize = 56
	hueStep         = 60.0
	ellipsis        = "..."
)

var (
	defaultTop    = color.RGBA{R: 0x1e, G: 0x3c, B: 0x72, A: 0xff}
	defaultBottom = color.RGBA{R: 0x2a, G: 0x52, B: 0x98, A: 0xff}
)

type Slide struct {
	Image    []byte
	Caption  string
	Duration time.Duration
}

type SlideSet struct {
	Slides []Slide
	// Generated is false when the fixed default set was rendered.
	Generated bool
}

func (s *SlideSet) Len() int {
	return len(s.Slides)
}

func (s *SlideSet) TotalDuration() time.Duration {
	var total time.Duration
	for _, slide := range s.Slides {
		total += slide.Duration
	}
	return total
}

type Options struct {
	Width         int
	Height        int
	MaxSlides     int
	DefaultCount  int
	SlideDuration time.Duration
	FontSize      float64
}

type SlideGenerator struct {
	width         int
	height        int
	maxSlides     int
	defaultCount  int
	slideDuration time.Duration
	fontSize      float64
	font          *opentype.Font
}

func NewSlideGenerator(opts Options) (*SlideGenerator, error) {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	g := &SlideGenerator{
		width:         opts.Width,
		height:        opts.Height,
		maxSlides:     opts.MaxSlides,
		defaultCount:  opts.DefaultCount,
		slideDuration: opts.SlideDuration,
		fontSize:      opts.FontSize,
		font:          f,
	}
	if g.width <= 0 || g.height <= 0 {
		g.width, g.height = DefaultWidth, DefaultHeight
	}
	if g.maxSlides <= 0 {
		g.maxSlides = DefaultMaxSlides
	}
	if g.defaultCount <= 0 {
		g.defaultCount = DefaultSlideCount
	}
	if g.slideDuration <= 0 {
		g.slideDuration = DefaultSlideSeconds * time.Second
	}
	if g.fontSize <= 0 {
		g.fontSize = defaultFontSize
	}
	return g, nil
}

// Generate renders one slide per sentence segment, up to the configured
// maximum. Content without usable segments gets the default set.
func (g *SlideGenerator) Generate(content string, autoGenerate bool) (*SlideSet, error) {
	face, err := opentype.NewFace(g.font, &opentype.FaceOptions{
		Size:    g.fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	defer func() { _ = face.Close() }()

	var segments []string
	if autoGenerate {
		segments = Segments(content)
	}

	if len(segments) == 0 {
		return g.defaultSet()
	}

	if len(segments) > g.maxSlides {
		segments = segments[:g.maxSlides]
	}

	set := &SlideSet{Slides: make([]Slide, 0, len(segments)), Generated: true}
	for i, segment := range segments {
		caption := Truncate(segment, MaxCaptionLength)
		top, bottom := HueGradient(i)
		data, err := g.render(face, caption, top, bottom)
		if err != nil {
			return nil, fmt.Errorf("render slide %d: %w", i+1, err)
		}
		set.Slides = append(set.Slides, Slide{Image: data, Caption: caption, Duration: g.slideDuration})
	}
	return set, nil
}

func (g *SlideGenerator) defaultSet() (*SlideSet, error) {
	set := &SlideSet{Slides: make([]Slide, 0, g.defaultCount)}
	for i := 0; i < g.defaultCount; i++ {
		data, err := g.render(nil, "", defaultTop, defaultBottom)
		if err != nil {
			return nil, fmt.Errorf("render default slide %d: %w", i+1, err)
		}
		set.Slides = append(set.Slides, Slide{Image: data, Duration: g.slideDuration})
	}
	return set, nil
}

func (g *SlideGenerator) render(face font.Face, caption string, top, bottom color.RGBA) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, g.width, g.height))
	fillGradient(img, top, bottom)

	if face != nil && caption != "" {
		drawCentered(img, face, wrap(face, caption, g.width*85/100))
	}

	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Segments splits content on periods and drops blank pieces.
func Segments(content string) []string {
	var segments []string
	for _, part := range strings.Split(content, ".") {
		part = strings.Join(strings.Fields(part), " ")
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimRight(string(runes[:max]), " ") + ellipsis
}

// HueGradient returns the gradient for slide index, rotating the hue by 60
// degrees per index.
func HueGradient(index int) (color.RGBA, color.RGBA) {
	hue := math.Mod(float64(index)*hueStep, 360)
	return hsvToRGB(hue, 0.65, 0.90), hsvToRGB(math.Mod(hue+30, 360), 0.80, 0.40)
}

func hsvToRGB(h, s, v float64) color.RGBA {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return color.RGBA{
		R: uint8(math.Round((r + m) * 255)),
		G: uint8(math.Round((g + m) * 255)),
		B: uint8(math.Round((b + m) * 255)),
		A: 0xff,
	}
}

func fillGradient(img *image.RGBA, top, bottom color.RGBA) {
	bounds := img.Bounds()
	height := bounds.Dy()
	for y := 0; y < height; y++ {
		t := 0.0
		if height > 1 {
			t = float64(y) / float64(height-1)
		}
		row := color.RGBA{
			R: lerp(top.R, bottom.R, t),
			G: lerp(top.G, bottom.G, t),
			B: lerp(top.B, bottom.B, t),
			A: 0xff,
		}
		offset := y * img.Stride
		for x := 0; x < bounds.Dx(); x++ {
			i := offset + x*4
			img.Pix[i] = row.R
			img.Pix[i+1] = row.G
			img.Pix[i+2] = row.B
			img.Pix[i+3] = row.A
		}
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

func wrap(face font.Face, text string, maxWidth int) []string {
	limit := fixed.I(maxWidth)
	var lines []string
	var current string
	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if current != "" && font.MeasureString(face, candidate) > limit {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func drawCentered(img *image.RGBA, face font.Face, lines []string) {
	metrics := face.Metrics()
	lineHeight := (metrics.Ascent + metrics.Descent).Ceil()
	blockHeight := lineHeight * len(lines)
	y := (img.Bounds().Dy()-blockHeight)/2 + metrics.Ascent.Ceil()

	shadow := &font.Drawer{Dst: img, Src: image.NewUniform(color.RGBA{A: 0x99}), Face: face}
	text := &font.Drawer{Dst: img, Src: image.White, Face: face}

	for _, line := range lines {
		width := font.MeasureString(face, line).Ceil()
		x := (img.Bounds().Dx() - width) / 2

		shadow.Dot = fixed.P(x+3, y+3)
		shadow.DrawString(line)
		text.Dot = fixed.P(x, y)
		text.DrawString(line)

		y += lineHeight
	}
}
