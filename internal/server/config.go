// config.go - Access-key allowlist loading.
//
// The allowlist is a small YAML file loaded once at startup and immutable
// for the process lifetime:
//
//	keys:
//	  - name: laptop
//	    key: s3cr3t
//	    clientIp: "*"
//	  - name: office
//	    key: 0ff1ce
//	    clientIp: "10.0.0.5,10.0.0.6"
package server

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AccessKey is one allowlist entry: a label, the shared secret, and the
// set of source IPs permitted to use it ("*" means any).
type AccessKey struct {
	Name     string `yaml:"name"`
	Key      string `yaml:"key"`
	ClientIP string `yaml:"clientIp"`
}

type accessKeyFile struct {
	Keys []AccessKey `yaml:"keys"`
}

// LoadAccessKeys parses the YAML allowlist at path. A missing file yields
// an empty allowlist (every gated request will be refused), which is logged
// by the caller rather than treated as a startup failure.
func LoadAccessKeys(path string) ([]AccessKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read access keys: %w", err)
	}

	var f accessKeyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse access keys: %w", err)
	}

	for i := range f.Keys {
		if f.Keys[i].ClientIP == "" {
			f.Keys[i].ClientIP = "*"
		}
	}
	return f.Keys, nil
}

// allowsIP reports whether the entry permits the given source IP.
func (k AccessKey) allowsIP(ip string) bool {
	if k.ClientIP == "*" {
		return true
	}
	for _, allowed := range strings.Split(k.ClientIP, ",") {
		if strings.TrimSpace(allowed) == ip {
			return true
		}
	}
	return false
}
