package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/rx-radar/medsearch/internal/domain"
	"github.com/rx-radar/medsearch/internal/domain/geo"
)

// Parse decodes and validates a raw request body.
// Checks run top-level presence, top-level types, location, then prescription,
// and stop at the first failure with a *domain.ValidationError.
func Parse(body []byte) (Payload, error) {
	obj, ok := decodeObject(body)
	if !ok || len(obj) == 0 {
		return Payload{}, domain.NewValidationError("", "request is empty")
	}

	for _, f := range requiredFields {
		if _, ok := obj[f]; !ok {
			return Payload{}, domain.NewValidationError(f, "Missing required field: %s", f)
		}
	}

	token, ok := obj[FieldSessionToken].(string)
	if !ok {
		return Payload{}, domain.NewValidationError(FieldSessionToken, "user_session_token must be a string")
	}
	phone, ok := obj[FieldPhoneNumber].(string)
	if !ok {
		return Payload{}, domain.NewValidationError(FieldPhoneNumber, "phone_number must be a string")
	}

	loc, err := parseLocation(obj[FieldUserLocation])
	if err != nil {
		return Payload{}, err
	}

	rx, err := parsePrescription(obj[FieldPrescription])
	if err != nil {
		return Payload{}, err
	}

	return Payload{
		SessionToken: token,
		PhoneNumber:  phone,
		Location:     loc,
		Prescription: rx,
	}, nil
}

func parseLocation(v any) (Location, error) {
	if isEmpty(v) {
		return Location{}, domain.NewValidationError(FieldUserLocation, "user_location object cannot be empty")
	}
	m, _ := v.(map[string]any)
	for _, f := range locationFields {
		if _, ok := m[f]; !ok {
			return Location{}, domain.NewValidationError(f, "Missing required field inside user_location: %s", f)
		}
	}

	lat, ok := asFloat(m[FieldLat])
	if !ok {
		return Location{}, domain.NewValidationError(FieldLat, "user_location lat must be a float")
	}
	lon, ok := asFloat(m[FieldLon])
	if !ok {
		return Location{}, domain.NewValidationError(FieldLon, "user_location lon must be a float")
	}
	if !geo.ValidateCoordinates(lat, lon) {
		return Location{}, domain.NewValidationError(FieldUserLocation, "user_location lat and lon must be valid")
	}
	return Location{Lat: lat, Lon: lon}, nil
}

func parsePrescription(v any) (Prescription, error) {
	if isEmpty(v) {
		return Prescription{}, domain.NewValidationError(FieldPrescription, "prescription object cannot be empty")
	}
	m, _ := v.(map[string]any)
	for _, f := range prescriptionFields {
		if _, ok := m[f]; !ok {
			return Prescription{}, domain.NewValidationError(f, "Missing required field inside prescription: %s", f)
		}
	}

	values := make(map[string]string, len(prescriptionFields))
	for _, f := range prescriptionFields {
		s, ok := m[f].(string)
		if !ok {
			return Prescription{}, domain.NewValidationError(f, "prescription %s must be a string", f)
		}
		values[f] = s
	}

	return Prescription{
		Name:           values[FieldName],
		Dosage:         values[FieldDosage],
		BrandOrGeneric: values[FieldBrandOrGeneric],
		Quantity:       values[FieldQuantity],
		Type:           values[FieldType],
	}, nil
}

func decodeObject(body []byte) (map[string]any, bool) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, false
	}
	// exactly one JSON value: anything after the object makes the body malformed
	var trailing json.RawMessage
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return obj, true
}

// asFloat accepts only floating-point JSON literals: 40.7 and 4e1 pass, 40 does not.
func asFloat(v any) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok || !strings.ContainsAny(n.String(), ".eE") {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

// isEmpty mirrors JSON falsiness: null, false, 0, "", {} and [].
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}
