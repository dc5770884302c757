package instance

import "os"

const fallbackID = "storefront-0"

// ID names this process in distributed leases and logs. STOREFRONT_INSTANCE_ID
// wins, then the hostname.
func ID() string {
	if id := os.Getenv("STOREFRONT_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
