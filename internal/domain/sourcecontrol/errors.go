package sourcecontrol

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors for source control operations.
var (
	// ErrNotARepository indicates the path is not a git repository.
	ErrNotARepository = errors.New("not a git repository")

	// ErrRemoteNotFound indicates the default remote is missing.
	ErrRemoteNotFound = errors.New("remote not found")

	// ErrBranchNotFound indicates the branch was not found.
	ErrBranchNotFound = errors.New("branch not found")

	// ErrNothingToCommit indicates the working tree has no changes.
	ErrNothingToCommit = errors.New("nothing to commit")

	// ErrWorkingTreeDirty indicates uncommitted changes block the
	// operation.
	ErrWorkingTreeDirty = errors.New("working tree has uncommitted changes")

	// ErrPushRejected indicates the remote refused the push.
	ErrPushRejected = errors.New("push rejected by remote")

	// ErrTagAlreadyExists indicates the tag already exists.
	ErrTagAlreadyExists = errors.New("tag already exists")

	// ErrAuthenticationRequired indicates the remote requires
	// credentials.
	ErrAuthenticationRequired = errors.New("authentication required")
)

// MergeConflictError reports a failed merge with the conflicting paths.
type MergeConflictError struct {
	Branch string
	Target string
	Paths  []string
}

// Error implements the error interface.
func (e *MergeConflictError) Error() string {
	msg := fmt.Sprintf("merge of %s into %s has conflicts", e.Branch, e.Target)
	if len(e.Paths) > 0 {
		msg += ": " + strings.Join(e.Paths, ", ")
	}
	return msg
}
