package geocode

// Derived field suffixes that carry request diagnostics and geometry.
const (
	SuffixJSON             = "json"
	SuffixTimeMS           = "time_ms"
	SuffixMsg              = "msg"
	SuffixLat              = "lat"
	SuffixLon              = "lon"
	SuffixViewportNELat    = "viewport_ne_lat"
	SuffixViewportNELon    = "viewport_ne_lon"
	SuffixViewportSWLat    = "viewport_sw_lat"
	SuffixViewportSWLon    = "viewport_sw_lon"
	SuffixViewportArea     = "viewport_area"
	SuffixFormattedAddress = "formatted_address"
)

// componentSuffixes are the address component types copied from a match.
// See https://developers.google.com/maps/documentation/geocoding/requests-geocoding#Types
var componentSuffixes = []string{
	"street_number",
	"route",
	"intersection",
	"country",
	"administrative_area_level_1",
	"administrative_area_level_2",
	"administrative_area_level_3",
	"administrative_area_level_4",
	"administrative_area_level_5",
	"colloquial_area",
	"locality",
	"sub_locality_1",
	"sub_locality_2",
	"sub_locality_3",
	"sub_locality_4",
	"sub_locality_5",
	"ward",
	"sublocality",
	"neighborhood",
	"premise",
	"subpremise",
	"postal_code",
	"postal_code_suffix",
	"natural_feature",
	"airport",
	"park",
	"point_of_interest",
}

// Suffixes is the full output schema in emission order. Every enriched
// input field F gets one F_<suffix> field per entry.
var Suffixes = append([]string{
	SuffixJSON,
	SuffixTimeMS,
	SuffixMsg,
	SuffixLat,
	SuffixLon,
	SuffixViewportNELat,
	SuffixViewportNELon,
	SuffixViewportSWLat,
	SuffixViewportSWLon,
	SuffixViewportArea,
	SuffixFormattedAddress,
}, componentSuffixes...)

var componentSet = func() map[string]bool {
	m := make(map[string]bool, len(componentSuffixes))
	for _, s := range componentSuffixes {
		m[s] = true
	}
	return m
}()

// IsComponent reports whether an address component type has its own output field.
func IsComponent(componentType string) bool {
	return componentSet[componentType]
}

// FieldName returns the derived field name for an input field and suffix.
func FieldName(field, suffix string) string {
	return field + "_" + suffix
}
