// Package hostsfile models the static name-resolution file as an ordered list
// of lines. Lines the caller never touches are rendered byte-for-byte as read.
package hostsfile

import (
	"net/netip"
	"strings"
)

// DefaultPath is the system hosts file.
const DefaultPath = "/etc/hosts"

// Entry is one address line: an IP and the names it resolves.
type Entry struct {
	IP    string
	Names []string
}

type line struct {
	raw     string
	entry   bool
	ip      string
	names   []string
	comment string
	dirty   bool
}

func (l *line) String() string {
	if !l.entry || !l.dirty {
		return l.raw
	}
	var b strings.Builder
	b.WriteString(l.ip)
	for _, name := range l.names {
		b.WriteByte(' ')
		b.WriteString(name)
	}
	if l.comment != "" {
		b.WriteByte(' ')
		b.WriteString(l.comment)
	}
	return b.String()
}

func (l *line) has(name string) bool {
	for _, n := range l.names {
		if n == name {
			return true
		}
	}
	return false
}

func (l *line) without(name string) []string {
	out := make([]string, 0, len(l.names))
	for _, n := range l.names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

// File is a parsed hosts file.
type File struct {
	lines []*line
}

// Parse splits data into lines. Parsing never fails: anything that is not
// "<ip> <name>..." is kept as an opaque line.
func Parse(data []byte) *File {
	f := &File{}
	text := string(data)
	if text == "" {
		return f
	}
	text = strings.TrimSuffix(text, "\n")
	for _, raw := range strings.Split(text, "\n") {
		f.lines = append(f.lines, parseLine(raw))
	}
	return f
}

func parseLine(raw string) *line {
	l := &line{raw: raw}
	content := raw
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		content = raw[:i]
		l.comment = strings.TrimSpace(raw[i:])
	}
	fields := strings.Fields(content)
	if len(fields) < 2 {
		return l
	}
	if _, err := netip.ParseAddr(fields[0]); err != nil {
		return l
	}
	l.entry = true
	l.ip = fields[0]
	l.names = fields[1:]
	return l
}

// Bytes renders the file. Non-empty output always ends in a newline.
func (f *File) Bytes() []byte {
	if len(f.lines) == 0 {
		return nil
	}
	var b strings.Builder
	for _, l := range f.lines {
		b.WriteString(l.String())
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// Entries returns the address lines in file order.
func (f *File) Entries() []Entry {
	out := make([]Entry, 0, len(f.lines))
	for _, l := range f.lines {
		if !l.entry {
			continue
		}
		names := make([]string, len(l.names))
		copy(names, l.names)
		out = append(out, Entry{IP: l.ip, Names: names})
	}
	return out
}

// Get returns the IP of the first line naming name.
func (f *File) Get(name string) (string, bool) {
	for _, l := range f.lines {
		if l.entry && l.has(name) {
			return l.ip, true
		}
	}
	return "", false
}

// Set makes name resolve to ip. A missing name is appended as a new line. The
// first line naming it is the rewrite target; later lines naming it lose the
// name, so repeated calls converge on one entry per name.
func (f *File) Set(name string, ip string) bool {
	first := -1
	changed := false
	out := make([]*line, 0, len(f.lines)+1)
	for _, l := range f.lines {
		if !l.entry || !l.has(name) {
			out = append(out, l)
			continue
		}
		if first < 0 {
			first = len(out)
			out = append(out, l)
			continue
		}
		changed = true
		l.names = l.without(name)
		l.dirty = true
		if len(l.names) > 0 {
			out = append(out, l)
		}
	}

	switch {
	case first < 0:
		out = append(out, &line{entry: true, ip: ip, names: []string{name}, dirty: true})
		changed = true
	case out[first].ip != ip:
		target := out[first]
		if len(target.names) == 1 {
			target.ip = ip
			target.dirty = true
		} else {
			target.names = target.without(name)
			target.dirty = true
			split := &line{entry: true, ip: ip, names: []string{name}, dirty: true}
			out = append(out[:first+1], append([]*line{split}, out[first+1:]...)...)
		}
		changed = true
	}
	f.lines = out
	return changed
}

// Remove drops name from every line. Lines left without names are deleted.
func (f *File) Remove(name string) bool {
	changed := false
	out := make([]*line, 0, len(f.lines))
	for _, l := range f.lines {
		if !l.entry || !l.has(name) {
			out = append(out, l)
			continue
		}
		changed = true
		l.names = l.without(name)
		l.dirty = true
		if len(l.names) > 0 {
			out = append(out, l)
		}
	}
	f.lines = out
	return changed
}

// RenameHost replaces every oldName token with newName. Qualified names under
// oldName ("old.example.lan") keep their domain suffix.
func (f *File) RenameHost(oldName string, newName string) bool {
	if oldName == "" || oldName == newName {
		return false
	}
	changed := false
	for _, l := range f.lines {
		if !l.entry {
			continue
		}
		renamed := false
		names := make([]string, 0, len(l.names))
		seen := make(map[string]struct{}, len(l.names))
		for _, n := range l.names {
			switch {
			case n == oldName:
				n = newName
				renamed = true
			case strings.HasPrefix(n, oldName+"."):
				n = newName + n[len(oldName):]
				renamed = true
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			names = append(names, n)
		}
		if renamed {
			l.names = names
			l.dirty = true
			changed = true
		}
	}
	return changed
}

// ReplaceIP moves every line addressed to oldIP over to newIP.
func (f *File) ReplaceIP(oldIP string, newIP string) bool {
	if oldIP == "" || oldIP == newIP {
		return false
	}
	changed := false
	for _, l := range f.lines {
		if l.entry && l.ip == oldIP {
			l.ip = newIP
			l.dirty = true
			changed = true
		}
	}
	return changed
}
