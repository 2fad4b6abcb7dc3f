package instance

import "os"

// ID identifies the running process in logs: the dyno name on Heroku, then
// the host name, then "local".
func ID() string {
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
