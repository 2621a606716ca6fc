package api

import "errors"

var (
	ErrNotFound    = errors.New("symbol not found")
	ErrRateLimited = errors.New("rate limited by API")
	ErrNoData      = errors.New("no data returned")
)
