package model

import "errors"

// ErrInvalidSnapshot is returned when a leaderboard payload cannot be decoded
// into a consistent Snapshot.
var ErrInvalidSnapshot = errors.New("invalid snapshot")
