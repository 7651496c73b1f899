package medsearch

import (
	"strconv"
	"strings"
)

// Location is a WGS84 coordinate.
type Location struct {
	Lat float64
	Lon float64
}

// MarshalJSON always writes lat/lon as floating-point literals; the gateway rejects 40 but accepts 40.0.
func (l Location) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteString(`{"lat":`)
	b.WriteString(floatLiteral(l.Lat))
	b.WriteString(`,"lon":`)
	b.WriteString(floatLiteral(l.Lon))
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func floatLiteral(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Prescription describes the medication to search for.
type Prescription struct {
	Name           string `json:"name"`
	Dosage         string `json:"dosage"`
	BrandOrGeneric string `json:"brand_or_generic"`
	Quantity       string `json:"quantity"`
	Type           string `json:"type"`
}

// SearchRequest is the body of a search submission.
type SearchRequest struct {
	SessionToken string       `json:"user_session_token"`
	PhoneNumber  string       `json:"phone_number"`
	Location     Location     `json:"user_location"`
	Prescription Prescription `json:"prescription"`
}

// SearchResult is an accepted search submission.
type SearchResult struct {
	Message     string
	ShowPayment bool // true when the user has no free credits left
}

// HealthStatus represents the gateway health.
type HealthStatus struct {
	Status  string            // "ok", "degraded", "error"
	Checks  map[string]string // component → "ok"/"error"
	Version string
}
