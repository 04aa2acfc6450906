package extractor

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed selectors.yaml
var selectorsYAML []byte

// Probe reads one value out of the first element matching Selector: the
// element text, or Attr when set, narrowed to Pattern's first group.
type Probe struct {
	Selector string `yaml:"selector"`
	Attr     string `yaml:"attr,omitempty"`
	Pattern  string `yaml:"pattern,omitempty"`

	re *regexp.Regexp
}

type Profile struct {
	UserName    []Probe  `yaml:"user_name"`
	Author      []Probe  `yaml:"author"`
	Comments    []string `yaml:"comments"`
	CommentText []string `yaml:"comment_text"`
}

// LoadProfiles decodes selector profiles and compiles their patterns.
func LoadProfiles(data []byte) (map[Platform]Profile, error) {
	var profiles map[Platform]Profile
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to decode selector profiles: %w", err)
	}

	for platform, p := range profiles {
		if len(p.Comments) == 0 {
			return nil, fmt.Errorf("profile %s has no comment selectors", platform)
		}
		for _, probes := range [][]Probe{p.UserName, p.Author} {
			for i := range probes {
				if probes[i].Pattern == "" {
					continue
				}
				re, err := regexp.Compile(probes[i].Pattern)
				if err != nil {
					return nil, fmt.Errorf("profile %s: bad pattern %q: %w", platform, probes[i].Pattern, err)
				}
				probes[i].re = re
			}
		}
	}
	return profiles, nil
}

// DefaultProfiles returns the embedded profiles.
func DefaultProfiles() map[Platform]Profile {
	profiles, err := LoadProfiles(selectorsYAML)
	if err != nil {
		panic(err)
	}
	return profiles
}

func (p Probe) extract(value string) string {
	if p.re == nil {
		return value
	}
	m := p.re.FindStringSubmatch(value)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
