package record

import (
	"fmt"

	"github.com/rx-radar/medsearch/internal/domain/search/request"
)

// Destination selects which queue a search request is stored in.
type Destination string

const (
	// Immediate holds requests from users with free search credits.
	Immediate Destination = "immediate"
	// Pending holds requests waiting on payment.
	Pending Destination = "pending"
)

// IsValid reports whether d is a known destination.
func (d Destination) IsValid() bool {
	return d == Immediate || d == Pending
}

// ForCredits picks the destination for a user holding the given number of credits.
func ForCredits(credits int) Destination {
	if credits > 0 {
		return Immediate
	}
	return Pending
}

// Record is a persisted search request. Immutable once created.
type Record struct {
	id             string
	userUUID       string
	location       request.Location
	prescription   request.Prescription
	epochInitiated int64
}

// New builds a Record from a validated payload.
func New(id, userUUID string, p request.Payload, epochInitiated int64) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("search request id is required")
	}
	if userUUID == "" {
		return Record{}, fmt.Errorf("user uuid is required")
	}
	return Record{
		id:             id,
		userUUID:       userUUID,
		location:       p.Location,
		prescription:   p.Prescription,
		epochInitiated: epochInitiated,
	}, nil
}

// ID returns the search request identifier.
func (r *Record) ID() string { return r.id }

// UserUUID returns the requesting user's identifier.
func (r *Record) UserUUID() string { return r.userUUID }

// Location returns the searcher's location.
func (r *Record) Location() request.Location { return r.location }

// Prescription returns the requested medication.
func (r *Record) Prescription() request.Prescription { return r.prescription }

// EpochInitiated returns creation time in epoch seconds.
func (r *Record) EpochInitiated() int64 { return r.epochInitiated }
