// Package chart renders report data as PNG bar charts.
package chart

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"unicode/utf8"

	"github.com/erazemk/blagajna/internal/model"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// MaxWidth is the widest chart produced. Wider charts are scaled down.
const MaxWidth = 1024

// Layout, in pixels at natural size.
const (
	barWidth    = 48
	barGap      = 16
	margin      = 24
	titleHeight = 28
	plotHeight  = 240
	labelHeight = 36
	minWidth    = 320
)

var (
	barColor  = color.RGBA{0x2f, 0x6f, 0xb3, 0xff}
	axisColor = color.RGBA{0x55, 0x55, 0x55, 0xff}
)

// Bar is one bar of a chart. Display is printed above the bar.
type Bar struct {
	Label   string
	Value   float64
	Display string
}

// Render draws a bar chart and returns it as an image.
func Render(title string, bars []Bar) image.Image {
	w := max(2*margin+len(bars)*(barWidth+barGap), minWidth)
	h := titleHeight + plotHeight + labelHeight + margin
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	text(img, margin, 18, title)

	baseline := titleHeight + plotHeight
	fill(img, image.Rect(margin, baseline, w-margin, baseline+1), axisColor)

	if len(bars) == 0 {
		text(img, margin, titleHeight+plotHeight/2, "no data")
		return fit(img, MaxWidth)
	}

	peak := 0.0
	for _, b := range bars {
		peak = max(peak, b.Value)
	}

	for i, b := range bars {
		x := margin + barGap/2 + i*(barWidth+barGap)
		bh := 0
		if peak > 0 && b.Value > 0 {
			bh = max(int(b.Value/peak*float64(plotHeight-14)), 1)
		}
		fill(img, image.Rect(x, baseline-bh, x+barWidth, baseline), barColor)

		maxChars := (barWidth + barGap) / 7
		text(img, x-barGap/2+2, baseline-bh-3, truncate(b.Display, maxChars))
		text(img, x-barGap/2+2, baseline+16, truncate(b.Label, maxChars))
	}
	return fit(img, MaxWidth)
}

// WritePNG renders a chart and encodes it as PNG.
func WritePNG(w io.Writer, title string, bars []Bar) error {
	if err := png.Encode(w, Render(title, bars)); err != nil {
		return fmt.Errorf("encoding chart: %w", err)
	}
	return nil
}

// TopProducts charts quantity sold per product.
func TopProducts(ps []model.TopProduct) []Bar {
	bars := make([]Bar, len(ps))
	for i, p := range ps {
		bars[i] = Bar{Label: p.Name, Value: float64(p.TotalQuantity), Display: fmt.Sprint(p.TotalQuantity)}
	}
	return bars
}

// TopDebtors charts outstanding debt per customer.
func TopDebtors(ds []model.TopDebtor) []Bar {
	bars := make([]Bar, len(ds))
	for i, d := range ds {
		bars[i] = Bar{Label: d.Name, Value: d.TotalDebt.InexactFloat64(), Display: d.TotalDebt.StringFixed(0)}
	}
	return bars
}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

func text(img *image.RGBA, x, y int, s string) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "~"
}

// fit scales img down so its width does not exceed maxW, keeping the
// aspect ratio. Smaller images are returned as is.
func fit(img image.Image, maxW int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxW {
		return img
	}
	h := max(b.Dy()*maxW/b.Dx(), 1)
	dst := image.NewRGBA(image.Rect(0, 0, maxW, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
