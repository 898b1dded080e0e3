package redis

const (
	// KeyPrefixStatus is the prefix for per-service status snapshot keys
	KeyPrefixStatus = "mcpgw:status:"
	// KeyAllServices is the key for the set of all snapshotted service names
	KeyAllServices = "mcpgw:services:all"
)

// StatusKey returns the Redis key for a service's status snapshot
func StatusKey(name string) string {
	return KeyPrefixStatus + name
}

// AllServicesKey returns the key for the set of all snapshotted names
func AllServicesKey() string {
	return KeyAllServices
}
