package config

import "errors"

var (
	ErrReadConfig    = errors.New("failed to read config file")
	ErrParseConfig   = errors.New("failed to parse config file")
	ErrInvalidConfig = errors.New("invalid configuration")
)
