package request

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rx-radar/medsearch/internal/domain"
)

const validBody = `{
	"user_session_token": "tok123",
	"phone_number": "+12032248444",
	"user_location": {"lat": 40.7128, "lon": -74.006},
	"prescription": {
		"name": "Focalin",
		"dosage": "10",
		"brand_or_generic": "Generic",
		"quantity": "30",
		"type": "Extended Release"
	}
}`

// mutate decodes validBody, applies fn and re-encodes it.
func mutate(t *testing.T, fn func(m map[string]any)) []byte {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(validBody), &m))
	fn(m)
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return out
}

func location(m map[string]any) map[string]any     { return m[FieldUserLocation].(map[string]any) }
func prescription(m map[string]any) map[string]any { return m[FieldPrescription].(map[string]any) }

func requireValidationError(t *testing.T, err error, field, message string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest), "expected ErrInvalidRequest, got %v", err)

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve), "expected *domain.ValidationError, got %T", err)
	assert.Equal(t, field, ve.Field)
	assert.Equal(t, message, ve.Message)
}

func TestParse_Valid(t *testing.T) {
	p, err := Parse([]byte(validBody))
	require.NoError(t, err)

	assert.Equal(t, "tok123", p.SessionToken)
	assert.Equal(t, "+12032248444", p.PhoneNumber)
	assert.InDelta(t, 40.7128, p.Location.Lat, 1e-9)
	assert.InDelta(t, -74.006, p.Location.Lon, 1e-9)
	assert.Equal(t, Prescription{
		Name:           "Focalin",
		Dosage:         "10",
		BrandOrGeneric: "Generic",
		Quantity:       "30",
		Type:           "Extended Release",
	}, p.Prescription)
}

func TestParse_EmptyBody(t *testing.T) {
	for _, body := range []string{"", "   ", "{}", "null", "not json", "[1,2]"} {
		t.Run(body, func(t *testing.T) {
			_, err := Parse([]byte(body))
			requireValidationError(t, err, "", "request is empty")
		})
	}
}

func TestParse_TrailingData(t *testing.T) {
	for _, tail := range []string{" garbage", " {}", "}", " 1"} {
		t.Run(tail, func(t *testing.T) {
			_, err := Parse([]byte(validBody + tail))
			requireValidationError(t, err, "", "request is empty")
		})
	}

	_, err := Parse([]byte(validBody + " \n\t"))
	require.NoError(t, err, "trailing whitespace is allowed")
}

func TestParse_MissingTopLevelField(t *testing.T) {
	for _, f := range requiredFields {
		t.Run(f, func(t *testing.T) {
			body := mutate(t, func(m map[string]any) { delete(m, f) })
			_, err := Parse(body)
			requireValidationError(t, err, f, "Missing required field: "+f)
		})
	}
}

func TestParse_MissingFieldsReportedInOrder(t *testing.T) {
	body := mutate(t, func(m map[string]any) {
		delete(m, FieldPhoneNumber)
		delete(m, FieldPrescription)
	})
	_, err := Parse(body)
	requireValidationError(t, err, FieldPhoneNumber, "Missing required field: phone_number")
}

func TestParse_TopLevelTypes(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		value   any
		message string
	}{
		{"token number", FieldSessionToken, 123, "user_session_token must be a string"},
		{"token null", FieldSessionToken, nil, "user_session_token must be a string"},
		{"phone number", FieldPhoneNumber, 12032248444, "phone_number must be a string"},
		{"phone object", FieldPhoneNumber, map[string]any{"n": "1"}, "phone_number must be a string"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body := mutate(t, func(m map[string]any) { m[tc.field] = tc.value })
			_, err := Parse(body)
			requireValidationError(t, err, tc.field, tc.message)
		})
	}
}

func TestParse_Location(t *testing.T) {
	tests := []struct {
		name    string
		body    []byte
		field   string
		message string
	}{
		{
			name:    "empty object",
			body:    mutate(t, func(m map[string]any) { m[FieldUserLocation] = map[string]any{} }),
			field:   FieldUserLocation,
			message: "user_location object cannot be empty",
		},
		{
			name:    "null",
			body:    mutate(t, func(m map[string]any) { m[FieldUserLocation] = nil }),
			field:   FieldUserLocation,
			message: "user_location object cannot be empty",
		},
		{
			name:    "missing lat",
			body:    mutate(t, func(m map[string]any) { delete(location(m), FieldLat) }),
			field:   FieldLat,
			message: "Missing required field inside user_location: lat",
		},
		{
			name:    "missing lon",
			body:    mutate(t, func(m map[string]any) { delete(location(m), FieldLon) }),
			field:   FieldLon,
			message: "Missing required field inside user_location: lon",
		},
		{
			name:    "lat string",
			body:    mutate(t, func(m map[string]any) { location(m)[FieldLat] = "40.7" }),
			field:   FieldLat,
			message: "user_location lat must be a float",
		},
		{
			name:    "lon bool",
			body:    mutate(t, func(m map[string]any) { location(m)[FieldLon] = true }),
			field:   FieldLon,
			message: "user_location lon must be a float",
		},
		{
			name:    "lat out of range",
			body:    mutate(t, func(m map[string]any) { location(m)[FieldLat] = 90.5 }),
			field:   FieldUserLocation,
			message: "user_location lat and lon must be valid",
		},
		{
			name:    "lon out of range",
			body:    mutate(t, func(m map[string]any) { location(m)[FieldLon] = -180.25 }),
			field:   FieldUserLocation,
			message: "user_location lat and lon must be valid",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.body)
			requireValidationError(t, err, tc.field, tc.message)
		})
	}
}

func TestParse_IntegerCoordinateRejected(t *testing.T) {
	body := []byte(`{"user_session_token":"t","phone_number":"p",
		"user_location":{"lat":40,"lon":-74.0},
		"prescription":{"name":"a","dosage":"b","brand_or_generic":"c","quantity":"d","type":"e"}}`)
	_, err := Parse(body)
	requireValidationError(t, err, FieldLat, "user_location lat must be a float")
}

func TestParse_ExponentCoordinateAccepted(t *testing.T) {
	body := []byte(`{"user_session_token":"t","phone_number":"p",
		"user_location":{"lat":4.07e1,"lon":-7.4E1},
		"prescription":{"name":"a","dosage":"b","brand_or_generic":"c","quantity":"d","type":"e"}}`)
	p, err := Parse(body)
	require.NoError(t, err)
	assert.InDelta(t, 40.7, p.Location.Lat, 1e-9)
	assert.InDelta(t, -74.0, p.Location.Lon, 1e-9)
}

func TestParse_BoundaryCoordinatesAccepted(t *testing.T) {
	body := []byte(`{"user_session_token":"t","phone_number":"p",
		"user_location":{"lat":-90.0,"lon":180.0},
		"prescription":{"name":"a","dosage":"b","brand_or_generic":"c","quantity":"d","type":"e"}}`)
	_, err := Parse(body)
	require.NoError(t, err)
}

func TestParse_PrescriptionEmpty(t *testing.T) {
	body := mutate(t, func(m map[string]any) { m[FieldPrescription] = map[string]any{} })
	_, err := Parse(body)
	requireValidationError(t, err, FieldPrescription, "prescription object cannot be empty")
}

func TestParse_PrescriptionMissingField(t *testing.T) {
	for _, f := range prescriptionFields {
		t.Run(f, func(t *testing.T) {
			body := mutate(t, func(m map[string]any) { delete(prescription(m), f) })
			_, err := Parse(body)
			requireValidationError(t, err, f, "Missing required field inside prescription: "+f)
		})
	}
}

func TestParse_PrescriptionFieldType(t *testing.T) {
	for _, f := range prescriptionFields {
		t.Run(f, func(t *testing.T) {
			body := mutate(t, func(m map[string]any) { prescription(m)[f] = 10 })
			_, err := Parse(body)
			requireValidationError(t, err, f, "prescription "+f+" must be a string")
		})
	}
}

func TestParse_LocationCheckedBeforePrescription(t *testing.T) {
	body := mutate(t, func(m map[string]any) {
		location(m)[FieldLat] = 200.5
		m[FieldPrescription] = map[string]any{}
	})
	_, err := Parse(body)
	requireValidationError(t, err, FieldUserLocation, "user_location lat and lon must be valid")
}
