// Package record holds the vehicle-sighting record model and the text codec
// that renders a record for chat display and parses that same rendering back.
package record

import "strings"

// Record is the descriptive information stored for one normalized plate.
// Every field is optional; an absent field shows up as the "?" placeholder
// in rendered text. A record with all fields absent is valid and is not the
// same thing as "no record stored".
//
// JSON field names match the values already sitting in the store.
type Record struct {
	ReportedInCity *string `json:"reported_in_city"`
	Brand          *string `json:"car_brand"`
	Color          *string `json:"car_color"`
	Comment        *string `json:"comment"`
	OccupantCount  *uint8  `json:"number_of_people"`
}

// PartialRecord pairs a plate fragment with a record, for records where only
// part of the plate was seen. No handler consults partial records yet; the
// matcher backs the planned partial-match search.
type PartialRecord struct {
	PartialPlate string `json:"partial_license_plate"`
	Record       Record `json:"car_info"`
}

// Matches reports whether the candidate normalized plate contains the
// stored fragment.
func (p PartialRecord) Matches(candidate string) bool {
	return strings.Contains(candidate, p.PartialPlate)
}
