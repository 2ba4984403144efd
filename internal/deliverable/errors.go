package deliverable

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedPrice = errors.New("malformed_price")

type Kind string

const (
	KindQR   Kind = "qr"
	KindPDF  Kind = "pdf"
	KindText Kind = "text"
)

var kinds = []Kind{KindQR, KindPDF, KindText}

func ParseKind(v string) (Kind, bool) {
	for _, k := range kinds {
		if string(k) == v {
			return k, true
		}
	}
	return "", false
}

type ArtifactError struct {
	Kind Kind
	Err  error
}

// PartialGenerationError reports every artifact that failed. A bundle is
// only usable when all artifacts succeed.
type PartialGenerationError struct {
	Failed    []ArtifactError
	Succeeded []Kind
}

func (e *PartialGenerationError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Kind, f.Err))
	}
	return "deliverable generation failed (" + strings.Join(parts, "; ") + ")"
}

func (e *PartialGenerationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		errs = append(errs, f.Err)
	}
	return errs
}

func (e *PartialGenerationError) FailedKinds() []Kind {
	out := make([]Kind, 0, len(e.Failed))
	for _, f := range e.Failed {
		out = append(out, f.Kind)
	}
	return out
}
