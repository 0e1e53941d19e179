package compose

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// AddLabel draws a caption bar along the bottom edge of a composed slide.
// The bar overlays the lowest part of the image so the slide keeps its
// exact canvas dimensions.
func AddLabel(img image.Image, text string) (image.Image, error) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	barHeight := h / 24
	if barHeight < 24 {
		barHeight = 24
	}

	dc := gg.NewContext(w, h)
	dc.DrawImage(img, 0, 0)

	yBar := float64(h - barHeight)
	dc.SetColor(color.NRGBA{A: 200})
	dc.DrawRectangle(0, yBar, float64(w), float64(barHeight))
	dc.Fill()

	face, err := labelFace(float64(barHeight) * 0.5)
	if err != nil {
		return nil, err
	}
	dc.SetFontFace(face)
	dc.SetColor(color.White)
	dc.DrawStringAnchored(text, float64(w)/2, yBar+float64(barHeight)/2, 0.5, 0.35)

	return dc.Image(), nil
}

func labelFace(size float64) (font.Face, error) {
	ttFont, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse label font: %w", err)
	}

	return truetype.NewFace(ttFont, &truetype.Options{
		Size: size,
	}), nil
}
