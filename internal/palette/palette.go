// Package palette holds the colour math shared by every renderer: hex
// parsing, lighten/darken, WCAG luminance and contrast, and the accessible
// text colour choice for user-picked backgrounds.
//
// Two brightness formulas live here on purpose and are not interchangeable:
//
//   - RelativeLuminance: WCAG 2.x, gamma-linearised sRGB with
//     0.2126/0.7152/0.0722 weights. Used for contrast ratios.
//   - Luma: plain 0.299/0.587/0.114 on gamma-encoded channels. Used for
//     cheap light/dark decisions (IsDark).
package palette

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

const (
	// White and DarkText are the two text colour candidates.
	White    = "#FFFFFF"
	DarkText = "#1F2937"

	// AAThreshold is the WCAG AA minimum contrast for normal text.
	AAThreshold = 4.5

	// lightLumaThreshold splits light from dark backgrounds for Luma.
	lightLumaThreshold = 0.8
)

var ErrInvalidHex = errors.New("palette: invalid hex color")

// ParseHex parses "#RRGGBB" or "RRGGBB".
func ParseHex(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, nil
}

// Valid reports whether s is a 6-digit hex colour.
func Valid(s string) bool {
	_, err := ParseHex(s)
	return err == nil
}

// ToHex formats c as "#RRGGBB".
func ToHex(c color.NRGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// Lighten mixes hex towards white by amount (0..1). Invalid input is
// returned unchanged.
func Lighten(hex string, amount float64) string {
	return mix(hex, color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}, amount)
}

// Darken mixes hex towards black by amount (0..1). Invalid input is
// returned unchanged.
func Darken(hex string, amount float64) string {
	return mix(hex, color.NRGBA{A: 0xFF}, amount)
}

func mix(hex string, target color.NRGBA, amount float64) string {
	c, err := ParseHex(hex)
	if err != nil {
		return hex
	}
	amount = clamp01(amount)
	blend := func(from, to uint8) uint8 {
		return uint8(math.Round(float64(from) + (float64(to)-float64(from))*amount))
	}
	return ToHex(color.NRGBA{
		R: blend(c.R, target.R),
		G: blend(c.G, target.G),
		B: blend(c.B, target.B),
		A: 0xFF,
	})
}

// RelativeLuminance is the WCAG relative luminance of c, in [0, 1].
func RelativeLuminance(c color.NRGBA) float64 {
	return 0.2126*linearize(c.R) + 0.7152*linearize(c.G) + 0.0722*linearize(c.B)
}

func linearize(v uint8) float64 {
	c := float64(v) / 255
	if c <= 0.03928 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

// ContrastRatio is the WCAG ratio between two luminances, in [1, 21].
func ContrastRatio(l1, l2 float64) float64 {
	lighter, darker := l1, l2
	if darker > lighter {
		lighter, darker = darker, lighter
	}
	return (lighter + 0.05) / (darker + 0.05)
}

// Contrast returns the contrast ratio between two hex colours.
func Contrast(a, b string) (float64, error) {
	ca, err := ParseHex(a)
	if err != nil {
		return 0, err
	}
	cb, err := ParseHex(b)
	if err != nil {
		return 0, err
	}
	return ContrastRatio(RelativeLuminance(ca), RelativeLuminance(cb)), nil
}

// TextColor picks White or DarkText for legible text on bg. Candidates that
// clear AA win over ones that do not; otherwise the higher ratio wins. An
// invalid bg yields "" (no styling).
func TextColor(bg string) string {
	fg, _ := TextContrast(bg)
	return fg
}

// TextContrast is TextColor plus the achieved contrast ratio.
func TextContrast(bg string) (string, float64) {
	c, err := ParseHex(bg)
	if err != nil {
		return "", 0
	}
	lbg := RelativeLuminance(c)
	white := ContrastRatio(lbg, 1.0)
	dark, _ := ParseHex(DarkText)
	darkRatio := ContrastRatio(lbg, RelativeLuminance(dark))

	whitePasses := white >= AAThreshold
	darkPasses := darkRatio >= AAThreshold
	switch {
	case whitePasses && !darkPasses:
		return White, white
	case darkPasses && !whitePasses:
		return DarkText, darkRatio
	case white >= darkRatio:
		return White, white
	default:
		return DarkText, darkRatio
	}
}

// Luma is the perceptual brightness 0.299R + 0.587G + 0.114B, in [0, 1].
func Luma(c color.NRGBA) float64 {
	return (0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)) / 255
}

// IsDark reports whether hex is a dark background by the Luma heuristic.
// Invalid input is not dark.
func IsDark(hex string) bool {
	c, err := ParseHex(hex)
	if err != nil {
		return false
	}
	return Luma(c) <= lightLumaThreshold
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
