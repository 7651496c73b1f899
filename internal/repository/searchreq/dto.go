package searchreq

import "github.com/rx-radar/medsearch/internal/domain/search/record"

type locationDoc struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// prescriptionDoc stores brand_or_generic under "brand", the key downstream readers use.
type prescriptionDoc struct {
	Name     string `json:"name"`
	Dosage   string `json:"dosage"`
	Brand    string `json:"brand"`
	Quantity string `json:"quantity"`
	Type     string `json:"type"`
}

type requestDoc struct {
	SearchRequestUUID string          `json:"search_request_uuid"`
	UserUUID          string          `json:"user_uuid"`
	UserLocation      locationDoc     `json:"user_location"`
	Prescription      prescriptionDoc `json:"prescription"`
	EpochInitiated    int64           `json:"epoch_initiated"`
}

func toDoc(r *record.Record) requestDoc {
	loc := r.Location()
	rx := r.Prescription()
	return requestDoc{
		SearchRequestUUID: r.ID(),
		UserUUID:          r.UserUUID(),
		UserLocation:      locationDoc{Lat: loc.Lat, Lon: loc.Lon},
		Prescription: prescriptionDoc{
			Name:     rx.Name,
			Dosage:   rx.Dosage,
			Brand:    rx.BrandOrGeneric,
			Quantity: rx.Quantity,
			Type:     rx.Type,
		},
		EpochInitiated: r.EpochInitiated(),
	}
}
