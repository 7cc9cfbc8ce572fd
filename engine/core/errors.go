package core

import (
	"errors"
)

var (
	ErrQueryFailed         = errors.New("feature query failed")
	ErrServiceError        = errors.New("feature service returned an error")
	ErrMeshConstruction    = errors.New("mesh construction failed")
	ErrAssetNotFound       = errors.New("asset not found")
	ErrUnsupportedGeometry = errors.New("unsupported geometry")
	ErrUnknownVariant      = errors.New("unknown scene variant")
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrNoWorkers           = errors.New("attempting to create worker pool with less than 1 worker")
	ErrNegativeChannelSize = errors.New("attempting to create worker pool with a negative channel size")
	ErrJobSystemClosed     = errors.New("job system is shut down")
	ErrUnknown             = errors.New("unknown")
)
