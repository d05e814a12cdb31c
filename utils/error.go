package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrorSyncAlreadyRunning signals that another sync pass holds the pass lock.
// Overlapping passes for the same batch type are not supported.
var ErrorSyncAlreadyRunning = errors.New("sync already running")
