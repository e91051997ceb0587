package fieldbook

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Default file and sheet names used by the export.
const (
	ResultSheet    = "Compensacion"
	ResultFileName = "Nivelacion_ALTUM.xlsx"
	CSVFileName    = "Nivelacion_ALTUM.csv"
	TemplateSheet  = "Registro"
	TemplateName   = "Plantilla_ALTUM.xlsx"
)

// Column identifies one input column of the field book.
type Column int

const (
	ColPoint Column = iota
	ColDistance
	ColBacksight
	ColIntermediate
	ColForesight
	columnCount
)

// InputHeaders are the canonical input headers, in template order.
var InputHeaders = []string{"Punto", "Distancia", "Atras", "Intermedia", "Adelante"}

// ResultHeaders are the headers of the exported compensation table.
var ResultHeaders = []string{
	"Punto", "Distancia", "Atras", "Intermedia", "Adelante",
	"AI", "Cota_Calc", "Dist_Acum", "Compensacion", "Cota_Compensada",
}

var headerAliases = map[string]Column{
	"punto":          ColPoint,
	"point":          ColPoint,
	"pto":            ColPoint,
	"estacion":       ColPoint,
	"distancia":      ColDistance,
	"distance":       ColDistance,
	"dist":           ColDistance,
	"atras":          ColBacksight,
	"vista atras":    ColBacksight,
	"backsight":      ColBacksight,
	"bs":             ColBacksight,
	"intermedia":     ColIntermediate,
	"intermediate":   ColIntermediate,
	"is":             ColIntermediate,
	"adelante":       ColForesight,
	"vista adelante": ColForesight,
	"foresight":      ColForesight,
	"fs":             ColForesight,
}

// String returns the canonical header of the column
func (c Column) String() string {
	if c < 0 || c >= columnCount {
		return "unknown"
	}
	return InputHeaders[c]
}

// normalizeHeader lower-cases, trims and strips diacritics so "ATRÁS " and
// "atras" compare equal.
func normalizeHeader(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(strings.TrimSpace(folded))
	folded = strings.Join(strings.Fields(strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(folded)), " ")
	return folded
}

// matchColumn reports which input column a header cell names.
func matchColumn(header string) (Column, bool) {
	c, ok := headerAliases[normalizeHeader(header)]
	return c, ok
}
