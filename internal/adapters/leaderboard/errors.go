package leaderboard

import "errors"

// Sentinel kinds for leaderboard source errors.
var (
	ErrUnexpectedStatus = errors.New("unexpected leaderboard status")
	ErrCacheMiss        = errors.New("cache miss")
)
