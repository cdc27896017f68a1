package workspace

import "errors"

// Error kinds shared by every tool that touches the filesystem.
var (
	ErrAccessDenied = errors.New("access denied to paths outside workspace")
	ErrNotFound     = errors.New("path does not exist")
	ErrIsDirectory  = errors.New("path is a directory")
	ErrNotDirectory = errors.New("path is not a directory")
)
