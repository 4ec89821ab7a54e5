package habit

import "fmt"

// Slug identifies one of the fixed habit categories.
type Slug string

const (
	Water     Slug = "water"
	Sleep     Slug = "sleep"
	Exercise  Slug = "exercise"
	Nutrition Slug = "nutrition"
)

// Slugs lists every habit in dashboard order.
var Slugs = []Slug{Water, Sleep, Exercise, Nutrition}

// Meta is the display metadata of a habit.
type Meta struct {
	Slug         Slug   `json:"slug"`
	Name         string `json:"name"`
	Icon         string `json:"icon"`
	Color        string `json:"color"`
	Unit         string `json:"unit"`
	SettingsType string `json:"settingsType"`
}

var catalog = map[Slug]Meta{
	Water:     {Slug: Water, Name: "Agua", Icon: "water_drop", Color: "#2196F3", Unit: "ml", SettingsType: "water"},
	Sleep:     {Slug: Sleep, Name: "Sueño", Icon: "bedtime", Color: "#673AB7", Unit: "horas", SettingsType: "sleep"},
	Exercise:  {Slug: Exercise, Name: "Ejercicio", Icon: "fitness_center", Color: "#FF5722", Unit: "min", SettingsType: "exercise"},
	Nutrition: {Slug: Nutrition, Name: "Nutrición", Icon: "restaurant", Color: "#4CAF50", Unit: "comidas", SettingsType: "nutrition"},
}

// Lookup returns the catalog entry for slug.
func Lookup(slug Slug) (Meta, bool) {
	m, ok := catalog[slug]
	return m, ok
}

// MetaOf returns the catalog entry for a known slug. Unknown slugs get a bare entry.
func MetaOf(slug Slug) Meta {
	if m, ok := catalog[slug]; ok {
		return m
	}
	return Meta{Slug: slug, Name: string(slug)}
}

// ParseSlug validates a raw habit identifier.
func ParseSlug(s string) (Slug, error) {
	if _, ok := catalog[Slug(s)]; !ok {
		return "", NewValidationError("type", fmt.Sprintf("unknown habit %q", s))
	}
	return Slug(s), nil
}
