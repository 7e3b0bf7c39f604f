package palette

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#1f2937")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 0x1F, G: 0x29, B: 0x37, A: 0xFF}, c)

	c, err = ParseHex("FCD34D")
	require.NoError(t, err)
	assert.Equal(t, "#FCD34D", ToHex(c))

	for _, in := range []string{"", "#FFF", "#GGGGGG", "red", "#1234567"} {
		_, err := ParseHex(in)
		assert.ErrorIs(t, err, ErrInvalidHex, "input %q", in)
		assert.False(t, Valid(in))
	}
}

func TestLightenDarken(t *testing.T) {
	assert.Equal(t, "#FFFFFF", Lighten("#000000", 1))
	assert.Equal(t, "#808080", Lighten("#000000", 0.5019))
	assert.Equal(t, "#000000", Darken("#FFFFFF", 1))
	assert.Equal(t, "#3B82F6", Darken("#3B82F6", 0))
	assert.Equal(t, "#FFFFFF", Lighten("#3B82F6", 7), "amount is clamped")

	t.Run("Invalid Input Returned Unchanged", func(t *testing.T) {
		assert.Equal(t, "tomato", Lighten("tomato", 0.3))
		assert.Equal(t, "#abc", Darken("#abc", 0.3))
	})
}

func TestLuminanceAndContrast(t *testing.T) {
	assert.InDelta(t, 1.0, RelativeLuminance(color.NRGBA{R: 255, G: 255, B: 255}), 1e-9)
	assert.InDelta(t, 0.0, RelativeLuminance(color.NRGBA{}), 1e-9)

	ratio, err := Contrast("#FFFFFF", "#000000")
	require.NoError(t, err)
	assert.InDelta(t, 21.0, ratio, 1e-9)

	ratio, err = Contrast("#777777", "#777777")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, ratio, 1e-9)

	assert.Equal(t, ContrastRatio(0.2, 0.7), ContrastRatio(0.7, 0.2), "ratio is symmetric")

	_, err = Contrast("nope", "#000000")
	assert.Error(t, err)
}

func TestTextColor(t *testing.T) {
	t.Run("Amber Background Meets AA", func(t *testing.T) {
		fg, ratio := TextContrast("#FCD34D")
		assert.Equal(t, DarkText, fg)
		assert.GreaterOrEqual(t, ratio, AAThreshold)
	})

	t.Run("Dark Background Gets White", func(t *testing.T) {
		assert.Equal(t, White, TextColor("#1E3A8A"))
		assert.Equal(t, White, TextColor("#000000"))
	})

	t.Run("Light Background Gets Dark", func(t *testing.T) {
		assert.Equal(t, DarkText, TextColor("#FFFFFF"))
		assert.Equal(t, DarkText, TextColor("#E0F2FE"))
	})

	t.Run("Neither Passes Picks Higher Ratio", func(t *testing.T) {
		w, _ := Contrast("#EF4444", White)
		d, _ := Contrast("#EF4444", DarkText)
		require.Less(t, w, AAThreshold)
		require.Less(t, d, AAThreshold)

		fg, ratio := TextContrast("#EF4444")
		assert.Equal(t, DarkText, fg)
		assert.InDelta(t, d, ratio, 1e-9)
	})

	t.Run("Only One Passes", func(t *testing.T) {
		// Mid grey clears AA against white only.
		assert.Equal(t, White, TextColor("#6B7280"))
	})

	t.Run("Invalid Means No Styling", func(t *testing.T) {
		fg, ratio := TextContrast("blue")
		assert.Equal(t, "", fg)
		assert.Zero(t, ratio)
	})
}

func TestIsDark(t *testing.T) {
	assert.True(t, IsDark("#1F2937"))
	assert.True(t, IsDark("#3B82F6"))
	assert.False(t, IsDark("#FFFFFF"))
	assert.False(t, IsDark("#FCD34D"), "luma ~0.82 is light")
	assert.False(t, IsDark("garbage"))
}
