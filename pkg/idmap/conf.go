package idmap

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Pair is one key/value override with the conf-file line it came from.
type Pair struct {
	Key   string
	Value string
	Line  int
}

// ParseConf reads a line-oriented conf file: `key = value` or
// `key = "quoted value"`, `#` starting a comment, blank lines ignored.
// The comment marker terminates the line even inside quotes.
func ParseConf(path string) ([]Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("conf: %w", err)
	}
	defer f.Close()

	var pairs []Pair
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		p, ok, err := parsePair(scanner.Text(), line)
		if err != nil {
			return nil, err
		}
		if ok {
			pairs = append(pairs, p)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("conf: reading %s: %w", path, err)
	}
	return pairs, nil
}

func parsePair(raw string, line int) (Pair, bool, error) {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Pair{}, false, nil
	}

	key, rest, found := strings.Cut(raw, "=")
	if !found {
		return Pair{}, false, &ConfigError{Line: line, Reason: "missing '='"}
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return Pair{}, false, &ConfigError{Line: line, Reason: "missing option name"}
	}

	value := strings.TrimSpace(rest)
	if strings.HasPrefix(value, `"`) {
		end := strings.IndexByte(value[1:], '"')
		if end < 0 {
			return Pair{}, false, &ConfigError{Key: key, Line: line, Reason: "unterminated quoted value"}
		}
		value = value[1 : 1+end]
	} else if value == "" {
		return Pair{}, false, &ConfigError{Key: key, Line: line, Reason: "end of line looking for value"}
	}

	return Pair{Key: key, Value: value, Line: line}, true, nil
}

// LoadConfFile parses path and applies it over the defaults.
func LoadConfFile(path string) (*Config, error) {
	pairs, err := ParseConf(path)
	if err != nil {
		return nil, err
	}
	return LoadConfig(pairs)
}
