// Copyright 2026 The Callboard Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// LoadMappings reads the operator mapping file: a JSONC object of
// interface string → display name. JSONC allows comments and trailing
// commas, which suits a hand-maintained file:
//
//	{
//	    // front desk
//	    "PJSIP/101": "Dana Reeve",
//	    "102": "Sam Ortiz",
//	}
//
// The mappings seed the mirror as manual entries; the sync worker's
// automatic reconciliation never overwrites them.
func LoadMappings(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read mappings: %w", err)
	}

	mappings := make(map[string]string)
	if err := json.Unmarshal(jsonc.ToJSON(data), &mappings); err != nil {
		return nil, fmt.Errorf("config: parse mappings %s: %w", path, err)
	}

	for iface, name := range mappings {
		if iface == "" {
			return nil, fmt.Errorf("config: mappings %s: empty interface key", path)
		}
		if name == "" {
			return nil, fmt.Errorf("config: mappings %s: empty display name for %q", path, iface)
		}
	}
	return mappings, nil
}
