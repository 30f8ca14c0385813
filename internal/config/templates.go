package config

import (
	"fmt"
	"os"
	"strings"
)

// Kinds lists the template names Template accepts.
var Kinds = []string{"llrpd", "secure"}

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "llrpd", "":
		return defaultTemplate, nil
	case "secure":
		return secureTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const defaultTemplate = `name = "llrpd"
log_level = "info"

[http]
enabled = true
addr = ":8080"
cors_origins = ["http://localhost:3000"]

[session]
stitch_frames = true
report_all_tags = false

[transport]
connect_timeout = "5s"
handshake_timeout = "5s"
read_timeout = "0s"
write_timeout = "5s"
max_connect_attempts = 0

[transport.backoff]
initial_delay = "250ms"
multiplier = 2.0
max_delay = "5s"
jitter = true

[[readers]]
name = "local"
address = "localhost:5084"

[sinks.log]
enabled = true

[sinks.websocket]
enabled = true
buffer = 64
write_timeout = "5s"

[sinks.redis]
enabled = false
addr = "localhost:6379"
channel = "llrpd:readings"
history = 1000

[sinks.journal]
enabled = false
dir = "data/journal"
ttl = "168h"
recent_limit = 100
`

const secureTemplate = `name = "llrpd"
log_level = "info"

[http]
enabled = true
addr = "127.0.0.1:8080"
token = "change-me"

[session]
stitch_frames = true
report_all_tags = true

[transport]
security_mode = "production"
read_timeout = "2m"

[transport.tls]
enabled = true
ca_file = "/etc/llrpd/ca.crt"

[[readers]]
name = "dock-door-1"
address = "reader-1.example.internal:5085"

[[readers]]
name = "dock-door-2"
address = "reader-2.example.internal:5085"

[sinks.log]
enabled = false

[sinks.websocket]
enabled = true

[sinks.redis]
enabled = true
addr = "localhost:6379"
history = 5000

[sinks.journal]
enabled = true
dir = "/var/lib/llrpd/journal"
ttl = "720h"
`
