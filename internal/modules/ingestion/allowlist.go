package ingestion

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultAllowlist is the set of pages scraped when no ALLOWLIST_FILE is given.
var DefaultAllowlist = []string{
	"https://en.wikipedia.org/wiki/Formula_One",
	"https://en.wikipedia.org/wiki/2024_Formula_One_World_Championship",
	"https://en.wikipedia.org/wiki/2025_Formula_One_World_Championship",
	"https://en.wikipedia.org/wiki/List_of_Formula_One_World_Drivers%27_Champions",
	"https://en.wikipedia.org/wiki/List_of_Formula_One_constructors",
	"https://en.wikipedia.org/wiki/List_of_Formula_One_circuits",
	"https://en.wikipedia.org/wiki/Lewis_Hamilton",
	"https://en.wikipedia.org/wiki/Max_Verstappen",
	"https://www.formula1.com/en/latest/all",
	"https://www.formula1.com/en/racing/2025",
}

type allowlistFile struct {
	URLs []string `yaml:"urls"`
}

// LoadAllowlist returns DefaultAllowlist when path is empty, otherwise the
// urls listed in the YAML file at path.
func LoadAllowlist(path string) ([]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return append([]string(nil), DefaultAllowlist...), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read allowlist %s: %w", path, err)
	}
	var f allowlistFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse allowlist %s: %w", path, err)
	}
	urls, err := NormalizeAllowlist(f.URLs)
	if err != nil {
		return nil, fmt.Errorf("allowlist %s: %w", path, err)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("allowlist %s has no urls", path)
	}
	return urls, nil
}

// NormalizeAllowlist trims entries, drops blanks and duplicates (first one
// wins) and rejects anything that is not an absolute http(s) URL.
func NormalizeAllowlist(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		u := strings.TrimSpace(raw)
		if u == "" {
			continue
		}
		parsed, err := url.Parse(u)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return nil, fmt.Errorf("invalid url %q", u)
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out, nil
}
