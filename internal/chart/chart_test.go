package chart

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/erazemk/blagajna/internal/model"
	"github.com/shopspring/decimal"
)

func TestRenderBars(t *testing.T) {
	bars := []Bar{
		{Label: "Widget", Value: 10, Display: "10"},
		{Label: "Gadget", Value: 5, Display: "5"},
	}
	img := Render("Top products", bars)

	b := img.Bounds()
	if b.Dx() != minWidth || b.Dy() != titleHeight+plotHeight+labelHeight+margin {
		t.Fatalf("unexpected size %v", b)
	}

	baseline := titleHeight + plotHeight
	x0 := margin + barGap/2 + barWidth/2
	x1 := x0 + barWidth + barGap

	// Just above the axis both bars are drawn.
	for _, x := range []int{x0, x1} {
		if got := img.At(x, baseline-1); got != barColor {
			t.Errorf("pixel at bar %d = %v, want bar color", x, got)
		}
	}
	// Three quarters up the tallest bar only the first one reaches.
	mid := baseline - (plotHeight-14)*3/4
	if img.At(x0, mid) != barColor {
		t.Error("tallest bar too short")
	}
	if img.At(x1, mid) == barColor {
		t.Error("half-height bar too tall")
	}
}

func TestRenderEmpty(t *testing.T) {
	img := Render("Nothing", nil)
	if img.Bounds().Dx() != minWidth {
		t.Errorf("empty chart width = %d", img.Bounds().Dx())
	}
}

func TestRenderScalesDownWideCharts(t *testing.T) {
	bars := make([]Bar, 40)
	for i := range bars {
		bars[i] = Bar{Label: "x", Value: float64(i)}
	}
	img := Render("Wide", bars)
	if img.Bounds().Dx() != MaxWidth {
		t.Errorf("width = %d, want %d", img.Bounds().Dx(), MaxWidth)
	}
}

func TestWritePNG(t *testing.T) {
	bars := TopDebtors([]model.TopDebtor{{Name: "Ana", TotalDebt: decimal.RequireFromString("120.40")}})
	if bars[0].Display != "120" || bars[0].Value != 120.4 {
		t.Errorf("unexpected bar %+v", bars[0])
	}

	var buf bytes.Buffer
	if err := WritePNG(&buf, "Debtors", bars); err != nil {
		t.Fatal(err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Widget", 9); got != "Widget" {
		t.Errorf("got %q", got)
	}
	if got := truncate("Extra long product", 9); got != "Extra lo~" {
		t.Errorf("got %q", got)
	}
}
