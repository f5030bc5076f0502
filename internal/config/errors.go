package config

import "errors"

// ErrConfig marks a bad run configuration — units, negative activity,
// voxel-size mismatch, an unknown material reference — caught by
// Bundle.Validate before any worker starts.
var ErrConfig = errors.New("invalid run configuration")
