package backup_test

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"xdao.co/agentchain/backup"
	"xdao.co/agentchain/chain"
	"xdao.co/agentchain/entry"
	"xdao.co/agentchain/storage"
	"xdao.co/agentchain/storage/memory"
)

func commit(t *testing.T, c *chain.Chain, e entry.Entry) {
	t.Helper()
	addr, err := c.Store().Put(e)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	h, err := c.Prepare(e.Type, addr)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if _, err := c.Append(h); err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func sampleChain(t *testing.T) *chain.Chain {
	t.Helper()
	c := chain.New(storage.NewEntryStore(memory.New()))
	commit(t, c, entry.New(entry.DNAType, `{"name":"app"}`))
	commit(t, c, entry.New(entry.AgentIDType, "alex"))
	commit(t, c, entry.New("testEntryType", `{"stuff":"non fail"}`))
	commit(t, c, entry.New("testEntryType", `{"stuff":"non fail"}`))
	commit(t, c, entry.New("testEntryType", `{"stuff":"entry1"}`))
	return c
}

func export(t *testing.T, c *chain.Chain) []byte {
	t.Helper()
	var buf bytes.Buffer
	if _, err := backup.Export(&buf, c); err != nil {
		t.Fatalf("Export: %v", err)
	}
	return buf.Bytes()
}

type file struct {
	name string
	body []byte
}

func readArchive(t *testing.T, b []byte) []file {
	t.Helper()
	var out []file
	tr := tar.NewReader(bytes.NewReader(b))
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatal(err)
		}
		body, err := io.ReadAll(tr)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, file{h.Name, body})
	}
}

func writeArchive(t *testing.T, files []file) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, f := range files {
		if err := tw.WriteHeader(&tar.Header{Typeflag: tar.TypeReg, Name: f.name, Mode: 0o644, Size: int64(len(f.body))}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write(f.body); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExport_LayoutAndDeterminism(t *testing.T) {
	c := sampleChain(t)
	a := export(t, c)
	if !bytes.Equal(a, export(t, c)) {
		t.Fatalf("expected byte-identical archives")
	}

	files := readArchive(t, a)
	// checkpoint + 5 headers + 4 distinct entries
	if len(files) != 10 {
		t.Fatalf("expected 10 files, got %d", len(files))
	}
	if files[0].name != backup.CheckpointFile {
		t.Fatalf("checkpoint must come first, got %s", files[0].name)
	}
	head, _ := c.Head()
	if files[5].name != "chain/00000004-"+head.String() {
		t.Fatalf("last header file = %s", files[5].name)
	}
	cp, err := chain.UnmarshalCheckpoint(files[0].body)
	if err != nil {
		t.Fatalf("UnmarshalCheckpoint: %v", err)
	}
	if cp.Head != head || cp.Length != 5 {
		t.Fatalf("checkpoint = %+v", cp)
	}
}

func TestImport_RestoresChain(t *testing.T) {
	c := sampleChain(t)
	dst := storage.NewEntryStore(memory.New())

	restored, err := backup.Import(bytes.NewReader(export(t, c)), dst)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if restored.Len() != c.Len() {
		t.Fatalf("restored %d headers, want %d", restored.Len(), c.Len())
	}
	h1, _ := c.Head()
	h2, _ := restored.Head()
	if h1 != h2 {
		t.Fatalf("head %s, want %s", h2, h1)
	}
	if len(restored.HeadersOfType("testEntryType")) != 3 {
		t.Fatalf("same-type links lost")
	}
	e, ok, err := dst.Get("QmbagHKV6kU89Z4FzQGMHpCYMxpR8WPxnse6KMArQ2wPJa")
	if err != nil || !ok || e.Value != `{"stuff":"entry1"}` {
		t.Fatalf("entry1 not imported: %+v ok=%v err=%v", e, ok, err)
	}
}

func TestImport_EmptyChain(t *testing.T) {
	c := chain.New(storage.NewEntryStore(memory.New()))
	restored, err := backup.Import(bytes.NewReader(export(t, c)), storage.NewEntryStore(memory.New()))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if restored.Len() != 0 {
		t.Fatalf("expected an empty chain, got %d headers", restored.Len())
	}
}

func TestImport_RejectsDamage(t *testing.T) {
	files := readArchive(t, export(t, sampleChain(t)))

	replace := func(i int, f file) []file {
		out := append([]file(nil), files...)
		out[i] = f
		return out
	}
	drop := func(i int) []file {
		out := append([]file(nil), files[:i]...)
		return append(out, files[i+1:]...)
	}

	cases := []struct {
		name  string
		files []file
		want  error
	}{
		{"tampered header", replace(2, file{files[2].name, []byte(`{"entry_type":"AgentId"}`)}), storage.ErrCIDMismatch},
		{"tampered entry", replace(9, file{files[9].name, []byte("x")}), storage.ErrCIDMismatch},
		{"missing checkpoint", files[1:], backup.ErrFormat},
		{"missing header", drop(3), backup.ErrFormat},
		{"missing entry", drop(9), chain.ErrBrokenLink},
		{"unknown file", append(append([]file(nil), files...), file{"notes.txt", []byte("hi")}), backup.ErrFormat},
		{"path escape", replace(9, file{"../" + files[9].name, files[9].body}), backup.ErrFormat},
		{"duplicate checkpoint", append([]file{files[0]}, files...), backup.ErrFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := backup.Import(bytes.NewReader(writeArchive(t, tc.files)), storage.NewEntryStore(memory.New()))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestImport_RejectsHeadersThatDoNotLink(t *testing.T) {
	// Every object hashes and the counts agree, but the last header belongs
	// to another chain and links outside the archive.
	a := readArchive(t, export(t, sampleChain(t)))
	other := chain.New(storage.NewEntryStore(memory.New()))
	commit(t, other, entry.New(entry.AgentIDType, "bob"))
	commit(t, other, entry.New("testEntryType", `{"stuff":"bob"}`))
	b := readArchive(t, export(t, other))

	stranger := strings.SplitN(b[2].name, "-", 2)[1]
	cp, err := chain.Checkpoint{Version: chain.CheckpointVersion, Head: entry.Address(stranger), Length: 5}.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	forged := []file{{backup.CheckpointFile, cp}, a[1], a[2], a[3], a[4]}
	forged = append(forged, file{"chain/00000004-" + stranger, b[2].body})
	forged = append(forged, a[6:]...)
	forged = append(forged, b[3:]...)

	_, err = backup.Import(bytes.NewReader(writeArchive(t, forged)), storage.NewEntryStore(memory.New()))
	if !errors.Is(err, chain.ErrBrokenLink) {
		t.Fatalf("expected ErrBrokenLink, got %v", err)
	}
}
