package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest     = errors.New("bad request")
	ErrReportNotReady = errors.New("report not ready: run is still in progress")
)
