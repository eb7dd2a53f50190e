// Package netcfg finds and edits the netplan document that declares the
// host's static addresses.
package netcfg

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/danmuck/hostctl/internal/hostfs"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultDir is where netplan reads its configuration.
const DefaultDir = "/etc/netplan"

var (
	ErrNoNetworkConfig = errors.New("netcfg: no network configuration declares static addresses")
)

// Locate returns the first document in dir, in lexical order, that declares
// a non-empty addresses list.
func Locate(fsys afero.Fs, dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultDir
	}
	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrNoNetworkConfig, dir, err)
	}
	for _, info := range infos {
		if info.IsDir() || !isYAML(info.Name()) {
			continue
		}
		path := filepath.Join(dir, info.Name())
		addrs, err := Addresses(fsys, path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("netcfg: skipping unreadable document")
			continue
		}
		if len(addrs) > 0 {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNoNetworkConfig, dir)
}

// Addresses returns every entry of every addresses list in the document.
func Addresses(fsys afero.Fs, path string) ([]string, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	var out []string
	collectAddresses(&doc, &out)
	return out, nil
}

func collectAddresses(n *yaml.Node, out *[]string) {
	if n == nil {
		return
	}
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			if key.Value == "addresses" && val.Kind == yaml.SequenceNode {
				for _, item := range val.Content {
					if item.Kind == yaml.ScalarNode && strings.TrimSpace(item.Value) != "" {
						*out = append(*out, strings.TrimSpace(item.Value))
					}
				}
				continue
			}
			collectAddresses(val, out)
		}
		return
	}
	for _, child := range n.Content {
		collectAddresses(child, out)
	}
}

// ContainsIP reports whether the document at path mentions ip.
func ContainsIP(fsys afero.Fs, path string, ip string) (bool, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	_, n := ReplaceIPText(string(data), ip, ip)
	return n > 0, nil
}

// ReplaceIP rewrites every occurrence of oldIP in the document at path.
func ReplaceIP(fsys afero.Fs, path string, oldIP string, newIP string) (bool, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	out, n := ReplaceIPText(string(data), oldIP, newIP)
	if n == 0 || out == string(data) {
		return false, nil
	}
	if err := hostfs.WriteFile(fsys, path, []byte(out), 0o600); err != nil {
		return false, err
	}
	return true, nil
}

// ReplaceIPText replaces whole-address occurrences of oldIP. "10.0.0.1" does
// not match inside "10.0.0.10" or "110.0.0.1"; a following "/24" prefix
// length is kept.
func ReplaceIPText(text string, oldIP string, newIP string) (string, int) {
	if oldIP == "" {
		return text, 0
	}
	var b strings.Builder
	count := 0
	pos := 0
	for {
		i := strings.Index(text[pos:], oldIP)
		if i < 0 {
			break
		}
		start := pos + i
		end := start + len(oldIP)
		if !boundaryBefore(text, start) || !boundaryAfter(text, end) {
			b.WriteString(text[pos : start+1])
			pos = start + 1
			continue
		}
		b.WriteString(text[pos:start])
		b.WriteString(newIP)
		pos = end
		count++
	}
	b.WriteString(text[pos:])
	return b.String(), count
}

func boundaryBefore(text string, start int) bool {
	if start == 0 {
		return true
	}
	c := text[start-1]
	return !isDigit(c) && c != '.'
}

func boundaryAfter(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	c := text[end]
	if isDigit(c) {
		return false
	}
	if c == '.' && end+1 < len(text) && isDigit(text[end+1]) {
		return false
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
