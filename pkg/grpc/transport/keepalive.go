package transport

import (
	"time"

	"google.golang.org/grpc/keepalive"
)

// ClientKeepalive returns the keepalive parameters used by table store clients
func ClientKeepalive() keepalive.ClientParameters {
	return keepalive.ClientParameters{
		Time:                15 * time.Second,
		Timeout:             5 * time.Second,
		PermitWithoutStream: true,
	}
}

// maxConnectionAgeGrace is how long streams may finish once a connection
// reaches its maximum age
const maxConnectionAgeGrace = 5 * time.Second

// ServerKeepalive returns the keepalive parameters of the server. Connections
// are recycled after maxConnectionAge; zero keeps them open for as long as
// they are used, so long scans are never cut off.
func ServerKeepalive(maxConnectionAge time.Duration) keepalive.ServerParameters {
	params := keepalive.ServerParameters{
		MaxConnectionIdle: 60 * time.Second,
		Time:              15 * time.Second,
		Timeout:           5 * time.Second,
	}
	if maxConnectionAge > 0 {
		params.MaxConnectionAge = maxConnectionAge
		params.MaxConnectionAgeGrace = maxConnectionAgeGrace
	}
	return params
}

// ServerEnforcement returns the keepalive enforcement policy of the server
func ServerEnforcement() keepalive.EnforcementPolicy {
	return keepalive.EnforcementPolicy{
		MinTime:             5 * time.Second,
		PermitWithoutStream: true,
	}
}
