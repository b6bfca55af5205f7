package importapp

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/google/uuid"
)

// FailureStage names the step at which a run aborted
type FailureStage string

const (
	StageHistory FailureStage = "history"
	StageProfile FailureStage = "profile"
	StageDecode  FailureStage = "decode"
	StageRows    FailureStage = "rows"
	StageStore   FailureStage = "store"
)

// FatalImportError is a job-level failure. Row-level failures never produce one.
// HistoryID is uuid.Nil when the run record could not be created.
type FatalImportError struct {
	HistoryID uuid.UUID
	Stage     FailureStage
	Err       error
}

func (e *FatalImportError) Error() string {
	if e.HistoryID == uuid.Nil {
		return fmt.Sprintf("import failed at %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("import %s failed at %s: %v", e.HistoryID, e.Stage, e.Err)
}

func (e *FatalImportError) Unwrap() error {
	return e.Err
}

// ErrStoreUnavailable marks repository and lock errors that mean the catalog
// cannot be reached. Connection-level driver and network errors count too.
var ErrStoreUnavailable = errors.New("catalog store unavailable")

// storeUnavailable reports whether err is the store's fault rather than the row's.
func storeUnavailable(err error) bool {
	for _, target := range []error{
		ErrStoreUnavailable,
		driver.ErrBadConn,
		sql.ErrConnDone,
		context.DeadlineExceeded,
		syscall.ECONNREFUSED,
		syscall.ECONNRESET,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
