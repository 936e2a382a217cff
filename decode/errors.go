package decode

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/ufarch/syndec/backend"
	"github.com/ufarch/syndec/qec"
)

// ErrShotTimeout is the cause of a DecodeError for a shot that ran past
// DecodeJobConfig.ShotTimeout.
var ErrShotTimeout = errors.New("shot timed out")

// DecodeError is the typed failure of one shot. The service coerces the
// shot's parity to false and counts it; it never aborts the batch.
type DecodeError struct {
	Shot int
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("shot %d: %v", e.Shot, e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// Failure reasons, as reported in Report.Failures and metrics.
const (
	ReasonLayout  = "layout"
	ReasonBackend = "backend"
	ReasonTimeout = "timeout"
	ReasonOther   = "other"
)

// Reason buckets a per-shot failure.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrShotTimeout):
		return ReasonTimeout
	case errors.Is(err, qec.ErrIndexOutOfRange):
		return ReasonLayout
	case errors.Is(err, backend.ErrBackend):
		return ReasonBackend
	}
	return ReasonOther
}
