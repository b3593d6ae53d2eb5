package chart

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"maintenance_audit/audit"
	"maintenance_audit/formatting"
)

// Bar is one labelled value of a bar chart.
type Bar struct {
	Label string
	Value int
	// Alert highlights the bar, e.g. a month that raised an alarm.
	Alert bool
}

// Options controls the rendered image.
type Options struct {
	Width  int
	Height int
	Title  string
}

var (
	background = color.RGBA{0xff, 0xff, 0xff, 0xff}
	axisColor  = color.RGBA{0x44, 0x44, 0x44, 0xff}
	barColor   = color.RGBA{0x2f, 0x6f, 0xb5, 0xff}
	alertColor = color.RGBA{0xd6, 0x3b, 0x2f, 0xff}
	textColor  = color.RGBA{0x11, 0x11, 0x11, 0xff}
)

const (
	marginLeft   = 40
	marginRight  = 16
	marginTop    = 28
	marginBottom = 32
)

// MonthlyTotals turns a site's coverage history into bars, flagging the months
// present in alerts.
func MonthlyTotals(history []audit.CoverageRow, alerts []audit.Alarm) []Bar {
	flagged := make(map[audit.Month]bool, len(alerts))
	for _, a := range alerts {
		if a.Raised() {
			flagged[a.Month] = true
		}
	}
	bars := make([]Bar, 0, len(history))
	for _, row := range history {
		bars = append(bars, Bar{Label: formatting.FormatMonthLabel(string(row.Month)), Value: row.Total, Alert: flagged[row.Month]})
	}
	return bars
}

// Render draws a vertical bar chart.
func Render(bars []Bar, opts Options) *image.RGBA {
	if opts.Width <= 0 {
		opts.Width = 640
	}
	if opts.Height <= 0 {
		opts.Height = 320
	}
	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	plot := image.Rect(marginLeft, marginTop, opts.Width-marginRight, opts.Height-marginBottom)
	if plot.Dx() <= 0 || plot.Dy() <= 0 {
		return img
	}
	if opts.Title != "" {
		drawText(img, opts.Title, marginLeft, 18)
	}
	fill(img, image.Rect(plot.Min.X-1, plot.Min.Y, plot.Min.X, plot.Max.Y), axisColor)
	fill(img, image.Rect(plot.Min.X-1, plot.Max.Y, plot.Max.X, plot.Max.Y+1), axisColor)
	if len(bars) == 0 {
		return img
	}

	maxVal := 0
	for _, b := range bars {
		if b.Value > maxVal {
			maxVal = b.Value
		}
	}
	drawText(img, strconv.Itoa(maxVal), 4, plot.Min.Y+10)
	drawText(img, "0", 4, plot.Max.Y)

	slot := plot.Dx() / len(bars)
	if slot < 2 {
		slot = 2
	}
	width := slot * 2 / 3
	if width < 1 {
		width = 1
	}
	for i, b := range bars {
		x0 := plot.Min.X + i*slot + (slot-width)/2
		if x0 >= plot.Max.X {
			break
		}
		h := 0
		if maxVal > 0 && b.Value > 0 {
			h = b.Value * plot.Dy() / maxVal
		}
		c := barColor
		if b.Alert {
			c = alertColor
		}
		fill(img, image.Rect(x0, plot.Max.Y-h, x0+width, plot.Max.Y), c)
		drawText(img, b.Label, x0, plot.Max.Y+16)
	}
	return img
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

func drawText(img *image.RGBA, text string, x, y int) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
