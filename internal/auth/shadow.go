package auth

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/hnrobert/macallow/internal/hostfs"
)

type shadowEntry struct {
	Name string
	Hash string
}

func shadowPath() (string, error) {
	return hostfs.Path(hostfs.EtcShadowRel)
}

func loadShadow(path string) ([]shadowEntry, error) {
	b, err := hostfs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseShadow(b)
}

func parseShadow(b []byte) ([]shadowEntry, error) {
	s := bufio.NewScanner(bytes.NewReader(b))
	buf := make([]byte, 0, 64*1024)
	s.Buffer(buf, 1024*1024)

	var out []shadowEntry
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Keep trailing empty fields.
		parts := strings.Split(line, ":")
		if len(parts) < 2 {
			continue
		}
		out = append(out, shadowEntry{Name: parts[0], Hash: parts[1]})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func findShadow(entries []shadowEntry, name string) *shadowEntry {
	for i := range entries {
		if entries[i].Name == name {
			return &entries[i]
		}
	}
	return nil
}
