package domain

// FallbackGlyph is shown for categories missing from the glyph table.
const FallbackGlyph = "❓"

// CategoryGlyph pairs an EONET category title with its display glyph.
type CategoryGlyph struct {
	Category string `json:"category" yaml:"category"`
	Glyph    string `json:"glyph" yaml:"glyph"`
}

var glyphTable = [...]CategoryGlyph{
	{Category: "Wildfires", Glyph: "🔥"},
	{Category: "Severe Storms", Glyph: "🌪️"},
	{Category: "Volcanoes", Glyph: "🌋"},
	{Category: "Sea and Lake Ice", Glyph: "🧊"},
}

// Glyph returns the emoji for an EONET category title. Matching is exact;
// anything else yields FallbackGlyph.
func Glyph(category string) string {
	for _, cg := range glyphTable {
		if cg.Category == category {
			return cg.Glyph
		}
	}
	return FallbackGlyph
}

// Categories returns a copy of the glyph table in display order.
func Categories() []CategoryGlyph {
	out := make([]CategoryGlyph, len(glyphTable))
	copy(out, glyphTable[:])
	return out
}
