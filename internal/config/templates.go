package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "nlprobe", "probe":
		return probeTemplate, nil
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

// Render encodes cfg as TOML, e.g. to show the effective configuration.
func Render(cfg ProbeConfig) (string, error) {
	b, err := toml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

const probeTemplate = `# nlprobe: enumerate network interfaces over NETLINK_ROUTE.
log_level = "info"

# Bytes read per receive call; 0 sizes each read to the pending datagram.
receive_size = 0

# SO_RCVBUF for the netlink socket; 0 keeps the kernel default.
receive_buffer = 131072

# Per-receive timeout set on the socket; empty blocks.
read_timeout = "2s"

# Receive calls allowed before an unterminated multipart dump is an error.
max_receives = 16

# Drop replies whose sequence number belongs to another exchange.
match_seq = true

[backoff]
initial = "1ms"
multiplier = 2.0
max = "100ms"
jitter = false
`
