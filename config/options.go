package config

import "time"

var (
	IDMappingRequestTimeout   = 30 * time.Second
	IDMappingRetryMaxElapsed  = 2 * time.Minute
	IDMappingRetryMaxInterval = 10 * time.Second
)
