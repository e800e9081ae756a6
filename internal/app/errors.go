package app

import (
	"fmt"

	"costa_listings/internal/domain"
)

// Stage names where a per-entity failure happened.
const (
	StageLookup   = "lookup"
	StageGenerate = "generate"
	StageParse    = "parse"
	StageValidate = "validate"
	StagePersist  = "persist"
)

// EntityError is a failure confined to one entity. The batch logs it and
// moves on.
type EntityError struct {
	Kind  domain.EntityKind
	Slug  string
	Stage string
	Err   error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Kind, e.Slug, e.Stage, e.Err)
}

func (e *EntityError) Unwrap() error { return e.Err }
