package slug

import (
	"regexp"
	"strings"
)

var (
	nonSlug = regexp.MustCompile(`[^a-z0-9_]+`)

	spanish = strings.NewReplacer(
		"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u",
		"ü", "u", "ñ", "n",
		"à", "a", "è", "e", "ì", "i", "ò", "o", "ù", "u",
	)
)

// Generate creates a URL-friendly slug from the given name. Spanish accents
// are transliterated to ASCII, underscores are kept and any run of other
// characters collapses to a single hyphen.
//
// Examples:
//   - "Cámaras de Seguridad" → "camaras-de-seguridad"
//   - "  UGREEN " → "ugreen"
//   - "Accesorios & Periféricos" → "accesorios-perifericos"
//   - "TP_Link" → "tp_link"
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = spanish.Replace(s)
	s = nonSlug.ReplaceAllString(s, "-")
	return strings.Trim(s, "-_")
}
