package airports

import (
	"strings"

	"github.com/jetvision/broker-backend/internal/models"
)

// directory holds common charter airports so the typeahead keeps working when
// the marketplace search degrades to an empty result.
var directory = []models.Airport{
	{ICAO: "KTEB", IATA: "TEB", Name: "Teterboro", City: "Teterboro", Country: "US"},
	{ICAO: "KJFK", IATA: "JFK", Name: "John F. Kennedy International", City: "New York", Country: "US"},
	{ICAO: "KLGA", IATA: "LGA", Name: "LaGuardia", City: "New York", Country: "US"},
	{ICAO: "KHPN", IATA: "HPN", Name: "Westchester County", City: "White Plains", Country: "US"},
	{ICAO: "KVNY", IATA: "VNY", Name: "Van Nuys", City: "Los Angeles", Country: "US"},
	{ICAO: "KLAX", IATA: "LAX", Name: "Los Angeles International", City: "Los Angeles", Country: "US"},
	{ICAO: "KLAS", IATA: "LAS", Name: "Harry Reid International", City: "Las Vegas", Country: "US"},
	{ICAO: "KMIA", IATA: "MIA", Name: "Miami International", City: "Miami", Country: "US"},
	{ICAO: "KOPF", IATA: "OPF", Name: "Miami-Opa Locka Executive", City: "Miami", Country: "US"},
	{ICAO: "KFLL", IATA: "FLL", Name: "Fort Lauderdale-Hollywood International", City: "Fort Lauderdale", Country: "US"},
	{ICAO: "KPBI", IATA: "PBI", Name: "Palm Beach International", City: "West Palm Beach", Country: "US"},
	{ICAO: "KBOS", IATA: "BOS", Name: "Logan International", City: "Boston", Country: "US"},
	{ICAO: "KIAD", IATA: "IAD", Name: "Washington Dulles International", City: "Washington", Country: "US"},
	{ICAO: "KDAL", IATA: "DAL", Name: "Dallas Love Field", City: "Dallas", Country: "US"},
	{ICAO: "KHOU", IATA: "HOU", Name: "William P. Hobby", City: "Houston", Country: "US"},
	{ICAO: "KORD", IATA: "ORD", Name: "O'Hare International", City: "Chicago", Country: "US"},
	{ICAO: "KPDK", IATA: "PDK", Name: "DeKalb-Peachtree", City: "Atlanta", Country: "US"},
	{ICAO: "KASE", IATA: "ASE", Name: "Aspen-Pitkin County", City: "Aspen", Country: "US"},
	{ICAO: "KSDL", IATA: "SDL", Name: "Scottsdale", City: "Scottsdale", Country: "US"},
	{ICAO: "KSFO", IATA: "SFO", Name: "San Francisco International", City: "San Francisco", Country: "US"},
	{ICAO: "EGGW", IATA: "LTN", Name: "London Luton", City: "London", Country: "GB"},
	{ICAO: "EGLF", IATA: "FAB", Name: "Farnborough", City: "Farnborough", Country: "GB"},
	{ICAO: "LFPB", IATA: "LBG", Name: "Paris-Le Bourget", City: "Paris", Country: "FR"},
	{ICAO: "LSGG", IATA: "GVA", Name: "Geneva", City: "Geneva", Country: "CH"},
	{ICAO: "LSZH", IATA: "ZRH", Name: "Zurich", City: "Zurich", Country: "CH"},
	{ICAO: "LEIB", IATA: "IBZ", Name: "Ibiza", City: "Ibiza", Country: "ES"},
	{ICAO: "LIML", IATA: "LIN", Name: "Milan Linate", City: "Milan", Country: "IT"},
	{ICAO: "OMDB", IATA: "DXB", Name: "Dubai International", City: "Dubai", Country: "AE"},
	{ICAO: "TJSJ", IATA: "SJU", Name: "Luis Munoz Marin International", City: "San Juan", Country: "PR"},
	{ICAO: "MYNN", IATA: "NAS", Name: "Lynden Pindling International", City: "Nassau", Country: "BS"},
}

// Search filters the static directory by ICAO, IATA, name, or city.
func Search(query string) []models.Airport {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []models.Airport
	for _, a := range directory {
		if strings.HasPrefix(strings.ToLower(a.ICAO), q) ||
			strings.HasPrefix(strings.ToLower(a.IATA), q) ||
			strings.Contains(strings.ToLower(a.Name), q) ||
			strings.Contains(strings.ToLower(a.City), q) {
			out = append(out, a)
		}
	}
	return out
}

// Lookup returns the directory entry for an exact ICAO code, if present.
func Lookup(icao string) (models.Airport, bool) {
	code := strings.ToUpper(strings.TrimSpace(icao))
	for _, a := range directory {
		if a.ICAO == code {
			return a, true
		}
	}
	return models.Airport{}, false
}

// IsICAOCode reports whether the query looks like a manually typed 4-letter
// ICAO code.
func IsICAOCode(query string) bool {
	q := strings.TrimSpace(query)
	if len(q) != 4 {
		return false
	}
	for _, r := range q {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
