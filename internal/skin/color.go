package skin

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ParseHexColor parses #RGB, #RRGGBB or #RRGGBBAA. The leading '#' is optional.
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimSpace(s)
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}

	alpha := uint8(0xFF)

	if len(hex) == 9 {
		a, err := strconv.ParseUint(hex[7:], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("%w: %q", ErrColorInvalid, s)
		}

		alpha = uint8(a)
		hex = hex[:7]
	}

	if len(hex) != 4 && len(hex) != 7 {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrColorInvalid, s)
	}

	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q: %w", ErrColorInvalid, s, err)
	}

	r, g, b := c.RGB255()

	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

// FormatHexColor renders c as #RRGGBB, or #RRGGBBAA when not opaque.
func FormatHexColor(c color.NRGBA) string {
	if c.A == 0xFF {
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	}

	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}
