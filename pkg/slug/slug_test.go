package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"brand upper case", "UGREEN", "ugreen"},
		{"brand padded", "  Ugreen  ", "ugreen"},
		{"words", "Tarjetas de Video", "tarjetas-de-video"},
		{"acute accents", "Cámaras Periféricas Ópticas", "camaras-perifericas-opticas"},
		{"enye", "Diseño Pequeño", "diseno-pequeno"},
		{"dieresis", "Pingüino", "pinguino"},
		{"upper accents", "ÁREA ÚNICA", "area-unica"},
		{"symbols", "Accesorios & Periféricos!!", "accesorios-perifericos"},
		{"colon and dollar", "precio: $100", "precio-100"},
		{"tabs and spaces", "hola\t\t mundo", "hola-mundo"},
		{"digits kept", "095", "095"},
		{"consecutive hyphens", "a---b", "a-b"},
		{"spaced hyphens", "a - - b", "a-b"},
		{"leading trailing", "-hola-", "hola"},
		{"underscore kept", "usb_c", "usb_c"},
		{"underscore brand", "TP_Link", "tp_link"},
		{"edge underscores trimmed", "_usb_c_", "usb_c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Generate(tt.input))
		})
	}
}

func TestGenerate_EdgeCases(t *testing.T) {
	assert.Equal(t, "", Generate(""))
	assert.Equal(t, "", Generate("   "))
	assert.Equal(t, "", Generate("!!!"))
	assert.Equal(t, "a", Generate("a"))
}
