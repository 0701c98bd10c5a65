// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"errors"
	"fmt"

	"github.com/pdiddy/litcurate/pkg/types"
)

var (
	// ErrDuplicate marks a paper or annotation that already exists by natural key.
	ErrDuplicate = errors.New("duplicate entity")

	// ErrIDConflict marks a paper whose source id is held by a different paper.
	ErrIDConflict = errors.New("paper id already in use")

	// ErrMissingReference marks a row that references a paper absent from the store.
	ErrMissingReference = errors.New("missing paper reference")

	// ErrNotFound is returned by point lookups.
	ErrNotFound = errors.New("not found")

	// ErrInvalidAnnotation marks an annotation with missing keys or a probability outside [0,1].
	ErrInvalidAnnotation = errors.New("invalid annotation")

	// ErrInvalidSpan marks an entity span whose offsets fall outside the prediction input.
	ErrInvalidSpan = errors.New("invalid entity span")
)

// ValidateAnnotation checks a before it is written. Failures wrap
// ErrInvalidAnnotation.
func ValidateAnnotation(a types.Annotation) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAnnotation, err)
	}
	return nil
}

// DuplicateError reports that a row was not written because the store
// already holds it. It wraps ErrDuplicate.
type DuplicateError struct {
	Kind       string
	ExistingID int64
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s of paper %d", e.Kind, e.ExistingID)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }
