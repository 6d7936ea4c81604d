package storage

import "errors"

// Sentinel errors reported by every implementation.
var (
	ErrNoSuchPath        = errors.New("no such path")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrHostUnreachable   = errors.New("host unreachable")
	ErrRmSafety          = errors.New("rm safety triggered")
	ErrNotDirectory      = errors.New("not a directory")
	ErrIsDirectory       = errors.New("is a directory but rm instruction is not recursive")
	ErrExists            = errors.New("path already exists")
	ErrNoImplementation  = errors.New("no installed implementation")
	ErrMaxWalkRequests   = errors.New("walk reached the maximum number of requests")
	ErrNotRemote         = errors.New("path does not contain an mgm")
	ErrWildcardForbidden = errors.New("wildcards are not allowed here")
)

// PathError records the operation and path that caused an error.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

func pathError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PathError
	if errors.As(err, &pe) && pe.Path == path {
		return err
	}
	return &PathError{Op: op, Path: path, Err: err}
}
