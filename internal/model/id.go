package model

import "github.com/google/uuid"

// newID returns a UUIDv7. Version 7 identifiers are time-ordered, so sorting
// rows by primary key yields insertion order ("lowest id" == "earliest row").
func newID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
