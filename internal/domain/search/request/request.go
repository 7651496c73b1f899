package request

// Top-level request fields, in the order they are checked.
const (
	FieldSessionToken = "user_session_token"
	FieldPhoneNumber  = "phone_number"
	FieldUserLocation = "user_location"
	FieldPrescription = "prescription"
)

// Location and prescription sub-fields, in the order they are checked.
const (
	FieldLat = "lat"
	FieldLon = "lon"

	FieldName           = "name"
	FieldDosage         = "dosage"
	FieldBrandOrGeneric = "brand_or_generic"
	FieldQuantity       = "quantity"
	FieldType           = "type"
)

var (
	requiredFields     = []string{FieldSessionToken, FieldPhoneNumber, FieldUserLocation, FieldPrescription}
	locationFields     = []string{FieldLat, FieldLon}
	prescriptionFields = []string{FieldName, FieldDosage, FieldBrandOrGeneric, FieldQuantity, FieldType}
)

// Location is the searcher's position in degrees.
type Location struct {
	Lat float64
	Lon float64
}

// Prescription describes the medication being searched for.
type Prescription struct {
	Name           string
	Dosage         string
	BrandOrGeneric string
	Quantity       string
	Type           string
}

// Payload is a validated medication search request.
type Payload struct {
	SessionToken string
	PhoneNumber  string
	Location     Location
	Prescription Prescription
}
