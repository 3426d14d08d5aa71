package params

import "time"

const (
	ServerBodyLimit    = 1048576 // 1 MiB
	ServerIdleTimeout  = 30 * time.Second
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 10 * time.Second

	AuthCodeKeyPrefix     = "ac:"
	AccessTokenKeyPrefix  = "at:"
	RefreshTokenKeyPrefix = "rt:"
	ClientKeyPrefix       = "cl:"

	TokenIdentifierLength = 40               // base64url chars, >192 bits of entropy
	ConsentStateTTL       = 15 * time.Minute // signed consent form must be submitted within this window

	RemoteAuthTimeout = 5 * time.Second // timeout for the account-info authentication check

	HealthCheckServerAddr = ":3001"
)
