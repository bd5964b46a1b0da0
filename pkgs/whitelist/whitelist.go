// Package whitelist reads mint whitelist files.
//
// A file is either a YAML/JSON sequence of strings or plain text with one
// address per line. Blank lines and lines starting with # are skipped.
package whitelist

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

func Load(path string) ([]string, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read whitelist %s: %w", path, err)
	}
	entries, err := Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse whitelist %s: %w", path, err)
	}
	return entries, nil
}

func Parse(body []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if isSequence(trimmed) {
		var list []string
		if err := yaml.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return clean(list), nil
	}
	var list []string
	sc := bufio.NewScanner(bytes.NewReader(trimmed))
	for sc.Scan() {
		list = append(list, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return clean(list), nil
}

// isSequence reports whether body looks like a JSON array or a YAML block
// sequence rather than a bare address list.
func isSequence(body []byte) bool {
	if body[0] == '[' {
		return true
	}
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return strings.HasPrefix(line, "- ") || line == "-"
	}
	return false
}

func clean(list []string) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		e = strings.TrimSpace(e)
		if e == "" || strings.HasPrefix(e, "#") {
			continue
		}
		out = append(out, strings.Trim(e, `",`))
	}
	return out
}
