package config

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// readFileDefaults parses a flat YAML mapping of environment keys to values, e.g.
//
//	RELAY_SEND_URL: http://responder:5000/sms
//	RELAY_TIMEOUT: 15s
func readFileDefaults(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}

	var entries map[string]interface{}
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file %s", path)
	}

	defaults := make(map[string]string, len(entries))
	for key, value := range entries {
		switch v := value.(type) {
		case nil:
			continue
		case map[string]interface{}, []interface{}:
			return nil, fmt.Errorf("config file %s: %s must be a scalar", path, key)
		default:
			defaults[key] = fmt.Sprint(v)
		}
	}
	return defaults, nil
}
