package enrich

import "github.com/couchcryptid/location-enrichment/internal/domain"

// DefaultFields are the enrichment columns extracted when the caller does
// not request a specific set. The component-type names follow the Google
// Geocoding vocabulary; renames like administrative_area_level_1 → state
// are left to the caller.
var DefaultFields = []string{
	"formatted_address",
	"country",
	"administrative_area_level_1", // state
	"administrative_area_level_2", // county
	"locality",                    // city
	"postal_code",
	"place_id",
}

// extractFields flattens a geocoding payload into one enrichment row.
// formatted_address and place_id come straight off the payload and are
// always present. Every other requested field is resolved through the
// component index: a match yields the long name plus a "<field>_short"
// companion with the short name; a field absent from the payload yields
// nil under both names rather than an error.
func extractFields(data *domain.GeocodingData, fields []string) Row {
	row := Row{
		"formatted_address": nilIfEmpty(data.FormattedAddress),
		"place_id":          nilIfEmpty(data.PlaceID),
	}

	components := data.ComponentIndex()
	for _, field := range fields {
		if comp, ok := components[field]; ok {
			row[field] = comp.LongName
			row[field+"_short"] = comp.ShortName
			continue
		}
		if _, ok := row[field]; !ok {
			row[field] = nil
			row[field+"_short"] = nil
		}
	}
	return row
}

// enrichmentColumns lists the columns every output row carries, so rows
// whose pair went unresolved still have the full column set (as nil).
// Component fields bring their "<field>_short" companion along.
func enrichmentColumns(fields []string) []string {
	cols := []string{"formatted_address", "place_id"}
	seen := map[string]bool{"formatted_address": true, "place_id": true}
	for _, field := range fields {
		if seen[field] {
			continue
		}
		seen[field] = true
		cols = append(cols, field, field+"_short")
	}
	return cols
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
