package anomaly

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotReady is matched by every *NotReadyError via errors.Is.
var ErrNotReady = errors.New("anomaly model not ready")

// NotReadyError reports that training has not happened yet, or that the
// batch offered for training was too small.
type NotReadyError struct {
	Available int
	Required  int
}

// Missing returns how many more samples are needed before training succeeds.
func (e *NotReadyError) Missing() int {
	if e.Available >= e.Required {
		return 0
	}
	return e.Required - e.Available
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("not enough data for training: have %d samples, need %d (%d more)",
		e.Available, e.Required, e.Missing())
}

// Is makes errors.Is(err, ErrNotReady) hold.
func (e *NotReadyError) Is(target error) bool {
	return target == ErrNotReady
}

// FeatureMismatchError reports a sample or vector whose shape differs from
// the one fixed at training time.
type FeatureMismatchError struct {
	Missing    []string
	Unexpected []string
	// Expected and Got are vector lengths; set when the mismatch was detected
	// on raw vectors rather than named metrics.
	Expected int
	Got      int
}

func (e *FeatureMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Unexpected, ", "))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("expected %d features, got %d", e.Expected, e.Got))
	}
	return "feature mismatch: " + strings.Join(parts, "; ")
}
