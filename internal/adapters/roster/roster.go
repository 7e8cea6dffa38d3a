// Package roster loads the team roster from a YAML file of the form
//
//	Team A:
//	  - "123456"  # Joe Doe
//	  - "789012"
//	Unknown:
//	  - "100000"
package roster

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/okian/starbot/internal/domain/model"
	"gopkg.in/yaml.v3"
)

// ErrInvalidRoster marks a roster file that parses but is unusable.
var ErrInvalidRoster = errors.New("invalid roster")

// Load reads path. An empty path yields an empty roster, which disables
// team aggregation.
func Load(path string) (model.Roster, error) {
	if strings.TrimSpace(path) == "" {
		return model.Roster{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return Parse(raw)
}

// Parse decodes roster YAML. Ids may be written as strings or numbers.
// Blank team names and blank ids are rejected; repeated ids within one
// team are collapsed.
func Parse(raw []byte) (model.Roster, error) {
	decoded := map[string][]string{}
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("unmarshal roster: %w", err)
	}

	out := make(model.Roster, len(decoded))
	for team, ids := range decoded {
		name := strings.TrimSpace(team)
		if name == "" {
			return nil, fmt.Errorf("%w: blank team name", ErrInvalidRoster)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("%w: team %q declared twice", ErrInvalidRoster, name)
		}
		seen := make(map[string]struct{}, len(ids))
		members := make([]string, 0, len(ids))
		for _, id := range ids {
			id = strings.TrimSpace(id)
			if id == "" {
				return nil, fmt.Errorf("%w: team %q has a blank id", ErrInvalidRoster, name)
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			members = append(members, id)
		}
		out[name] = members
	}
	return out, nil
}
