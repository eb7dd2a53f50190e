package hostsfile

import (
	"testing"
)

func TestParseRoundTripPreservesUntouchedLines(t *testing.T) {
	in := "# static table\n127.0.0.1\tlocalhost\n\n::1     ip6-localhost ip6-loopback\nnot an entry\n"
	f := Parse([]byte(in))
	if got := string(f.Bytes()); got != in {
		t.Fatalf("round trip changed content\nwant: %q\ngot:  %q", in, got)
	}
}

func TestParseAddsTrailingNewline(t *testing.T) {
	f := Parse([]byte("127.0.0.1 localhost"))
	if got := string(f.Bytes()); got != "127.0.0.1 localhost\n" {
		t.Fatalf("unexpected render: %q", got)
	}
}

func TestGetFirstMatch(t *testing.T) {
	f := Parse([]byte("192.168.1.4 webhost\n192.168.1.3 loghost\n10.0.0.1 loghost\n"))
	ip, ok := f.Get("loghost")
	if !ok || ip != "192.168.1.3" {
		t.Fatalf("unexpected get: %q %v", ip, ok)
	}
	if _, ok := f.Get("missing"); ok {
		t.Fatalf("expected missing name")
	}
}

func TestSetUpsertCases(t *testing.T) {
	base := "192.168.1.4 webhost\n192.168.1.3 loghost\n"

	f := Parse([]byte(base))
	if f.Set("loghost", "192.168.1.3") {
		t.Fatalf("expected no change for satisfied entry")
	}
	if got := string(f.Bytes()); got != base {
		t.Fatalf("unexpected content after no-op: %q", got)
	}

	f = Parse([]byte(base))
	if !f.Set("loghost", "10.0.0.9") {
		t.Fatalf("expected change for new ip")
	}
	if got, want := string(f.Bytes()), "192.168.1.4 webhost\n10.0.0.9 loghost\n"; got != want {
		t.Fatalf("unexpected rewrite\nwant: %q\ngot:  %q", want, got)
	}

	f = Parse([]byte(base))
	if !f.Set("newhost", "10.0.0.5") {
		t.Fatalf("expected change for new name")
	}
	if got, want := string(f.Bytes()), base+"10.0.0.5 newhost\n"; got != want {
		t.Fatalf("unexpected append\nwant: %q\ngot:  %q", want, got)
	}
}

func TestSetSplitsSharedLine(t *testing.T) {
	f := Parse([]byte("10.0.0.1 alpha beta # rack 3\n10.0.0.2 gamma\n"))
	if !f.Set("beta", "10.0.0.9") {
		t.Fatalf("expected change")
	}
	want := "10.0.0.1 alpha # rack 3\n10.0.0.9 beta\n10.0.0.2 gamma\n"
	if got := string(f.Bytes()); got != want {
		t.Fatalf("unexpected split\nwant: %q\ngot:  %q", want, got)
	}
}

func TestSetCollapsesDuplicates(t *testing.T) {
	f := Parse([]byte("10.0.0.1 loghost\n10.0.0.2 webhost loghost\n10.0.0.3 loghost\n"))
	if !f.Set("loghost", "10.0.0.1") {
		t.Fatalf("expected duplicates to be collapsed")
	}
	want := "10.0.0.1 loghost\n10.0.0.2 webhost\n"
	if got := string(f.Bytes()); got != want {
		t.Fatalf("unexpected collapse\nwant: %q\ngot:  %q", want, got)
	}
	if f.Set("loghost", "10.0.0.1") {
		t.Fatalf("expected converged file to be a no-op")
	}
}

func TestRemove(t *testing.T) {
	f := Parse([]byte("10.0.0.1 a b\n10.0.0.2 b\n"))
	if !f.Remove("b") {
		t.Fatalf("expected change")
	}
	if got, want := string(f.Bytes()), "10.0.0.1 a\n"; got != want {
		t.Fatalf("unexpected remove\nwant: %q\ngot:  %q", want, got)
	}
	if f.Remove("b") {
		t.Fatalf("expected second remove to be a no-op")
	}
}

func TestRenameHost(t *testing.T) {
	f := Parse([]byte("127.0.0.1 localhost\n127.0.1.1 oldname.example.lan oldname\n10.0.0.1 oldnamex\n"))
	if !f.RenameHost("oldname", "newname") {
		t.Fatalf("expected change")
	}
	want := "127.0.0.1 localhost\n127.0.1.1 newname.example.lan newname\n10.0.0.1 oldnamex\n"
	if got := string(f.Bytes()); got != want {
		t.Fatalf("unexpected rename\nwant: %q\ngot:  %q", want, got)
	}
	if f.RenameHost("oldname", "newname") {
		t.Fatalf("expected second rename to be a no-op")
	}
}

func TestReplaceIP(t *testing.T) {
	f := Parse([]byte("192.168.16.2 server1 # primary\n192.168.16.21 other\n"))
	if !f.ReplaceIP("192.168.16.2", "192.168.16.9") {
		t.Fatalf("expected change")
	}
	want := "192.168.16.9 server1 # primary\n192.168.16.21 other\n"
	if got := string(f.Bytes()); got != want {
		t.Fatalf("unexpected replace\nwant: %q\ngot:  %q", want, got)
	}
}

func TestEntries(t *testing.T) {
	f := Parse([]byte("# c\n127.0.0.1 localhost\n10.0.0.1 a b\n"))
	entries := f.Entries()
	if len(entries) != 2 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[1].IP != "10.0.0.1" || len(entries[1].Names) != 2 || entries[1].Names[1] != "b" {
		t.Fatalf("unexpected entry: %+v", entries[1])
	}
}
