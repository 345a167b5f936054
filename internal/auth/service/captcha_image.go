package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	CaptchaWidth      = 120
	CaptchaHeight     = 40
	captchaNoiseLines = 10
)

// RenderCaptcha draws code as a PNG with per-glyph jitter and colour plus
// random noise lines. rng only affects appearance, never the code.
func RenderCaptcha(code string, rng *rand.Rand) ([]byte, error) {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	img := image.NewRGBA(image.Rect(0, 0, CaptchaWidth, CaptchaHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{0xF4, 0xF4, 0xF0, 0xFF}}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	glyphW, glyphH := face.Advance, face.Height
	slot := CaptchaWidth / max(len(code), 1)

	for i, r := range code {
		// Render the glyph small, then scale it up into its slot.
		glyph := image.NewRGBA(image.Rect(0, 0, glyphW, glyphH))
		d := font.Drawer{
			Dst:  glyph,
			Src:  image.NewUniform(randomInk(rng)),
			Face: face,
			Dot:  fixed.P(0, face.Ascent),
		}
		d.DrawString(string(r))

		w := glyphW*2 + rng.IntN(5)
		h := glyphH*2 + rng.IntN(5) - 2
		x := i*slot + (slot-w)/2 + rng.IntN(7) - 3
		y := (CaptchaHeight-h)/2 + rng.IntN(7) - 3
		draw.NearestNeighbor.Scale(img, image.Rect(x, y, x+w, y+h), glyph, glyph.Bounds(), draw.Over, nil)
	}

	for range captchaNoiseLines {
		line(img,
			rng.IntN(CaptchaWidth), rng.IntN(CaptchaHeight),
			rng.IntN(CaptchaWidth), rng.IntN(CaptchaHeight),
			randomInk(rng))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func randomInk(rng *rand.Rand) color.RGBA {
	return color.RGBA{
		R: uint8(rng.IntN(150)),
		G: uint8(rng.IntN(150)),
		B: uint8(rng.IntN(150)),
		A: 0xFF,
	}
}

// line is Bresenham's algorithm.
func line(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.SetRGBA(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
