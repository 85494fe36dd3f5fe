// Package backup moves an agent's source chain between entry stores as a
// deterministic TAR archive.
//
// An archive holds, in this order:
//
//	checkpoint.cbor        the chain checkpoint (head address and length)
//	chain/<seq>-<address>  every header, oldest first, seq zero-padded
//	entries/<address>      every entry a header references, once
//
// Import verifies each object against its address and then rebuilds the
// chain with chain.Restore, so an archive whose headers do not link up is
// rejected even when every object hashes correctly.
package backup

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"xdao.co/agentchain/chain"
	"xdao.co/agentchain/entry"
	"xdao.co/agentchain/errs"
	"xdao.co/agentchain/storage"
)

const (
	// CheckpointFile names the checkpoint inside an archive.
	CheckpointFile = "checkpoint.cbor"

	headerDir = "chain/"
	entryDir  = "entries/"
	seqWidth  = 8
)

// ErrFormat is wrapped by every error about archive layout.
var ErrFormat = errors.New("backup: malformed archive")

var epoch = time.Unix(0, 0).UTC()

// Export writes c to w and returns the checkpoint recorded in the archive.
// Equal chains give byte-identical archives.
func Export(w io.Writer, c *chain.Chain) (chain.Checkpoint, error) {
	headers := c.Headers()
	cp := chain.Checkpoint{Version: chain.CheckpointVersion, Length: len(headers)}
	if n := len(headers); n > 0 {
		cp.Head = headers[n-1].Address()
	}
	b, err := cp.MarshalBinary()
	if err != nil {
		return chain.Checkpoint{}, err
	}

	tw := tar.NewWriter(w)
	if err := writeFile(tw, CheckpointFile, b); err != nil {
		return chain.Checkpoint{}, err
	}
	for i, h := range headers {
		name := fmt.Sprintf("%s%0*d-%s", headerDir, seqWidth, i, h.Address())
		if err := writeFile(tw, name, h.Bytes()); err != nil {
			return chain.Checkpoint{}, err
		}
	}

	written := make(map[entry.Address]struct{}, len(headers))
	for _, h := range headers {
		if _, ok := written[h.EntryAddress]; ok {
			continue
		}
		raw, ok, err := c.Store().GetRaw(h.EntryAddress)
		if err != nil {
			return chain.Checkpoint{}, err
		}
		if !ok {
			return chain.Checkpoint{}, errs.Wrap(errs.KindStorage, "BACKUP-101", "missing entry "+h.EntryAddress.String(), storage.ErrNotFound)
		}
		if err := writeFile(tw, entryDir+h.EntryAddress.String(), raw); err != nil {
			return chain.Checkpoint{}, err
		}
		written[h.EntryAddress] = struct{}{}
	}
	if err := tw.Close(); err != nil {
		return chain.Checkpoint{}, err
	}
	return cp, nil
}

// Import reads an archive from r into store and returns the restored chain.
// Objects are written as they are read; an archive rejected afterwards may
// leave verified objects behind, which is harmless in a content-addressed
// store.
func Import(r io.Reader, store *storage.EntryStore, opts ...chain.Option) (*chain.Chain, error) {
	tr := tar.NewReader(r)
	var cp *chain.Checkpoint
	headers := 0

	for {
		th, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.KindStructural, "BACKUP-001", "read archive", err)
		}
		if th.Typeflag != tar.TypeReg {
			return nil, formatError("BACKUP-002", fmt.Sprintf("unexpected entry type %q for %s", th.Typeflag, th.Name))
		}
		name := path.Clean(th.Name)
		if name != th.Name || path.IsAbs(name) || strings.HasPrefix(name, "..") {
			return nil, formatError("BACKUP-003", "invalid entry path "+strconv.Quote(th.Name))
		}
		body, err := io.ReadAll(tr)
		if err != nil {
			return nil, errs.Wrap(errs.KindStructural, "BACKUP-001", "read "+name, err)
		}

		switch {
		case name == CheckpointFile:
			if cp != nil {
				return nil, formatError("BACKUP-004", "duplicate checkpoint")
			}
			got, err := chain.UnmarshalCheckpoint(body)
			if err != nil {
				return nil, err
			}
			cp = &got
		case strings.HasPrefix(name, headerDir):
			if cp == nil {
				return nil, formatError("BACKUP-005", "header before checkpoint")
			}
			seq, addr, ok := strings.Cut(strings.TrimPrefix(name, headerDir), "-")
			if !ok || len(seq) != seqWidth {
				return nil, formatError("BACKUP-006", "invalid header name "+name)
			}
			if n, err := strconv.Atoi(seq); err != nil || n != headers {
				return nil, formatError("BACKUP-007", fmt.Sprintf("header %s out of order, want sequence %d", name, headers))
			}
			if err := putVerified(store, addr, body); err != nil {
				return nil, err
			}
			headers++
		case strings.HasPrefix(name, entryDir):
			if err := putVerified(store, strings.TrimPrefix(name, entryDir), body); err != nil {
				return nil, err
			}
		default:
			return nil, formatError("BACKUP-008", "unknown entry "+name)
		}
	}

	if cp == nil {
		return nil, formatError("BACKUP-009", "missing "+CheckpointFile)
	}
	if headers != cp.Length {
		return nil, formatError("BACKUP-010", fmt.Sprintf("archive holds %d headers, checkpoint says %d", headers, cp.Length))
	}
	return chain.Restore(store, *cp, opts...)
}

// putVerified stores body after checking that it hashes to name.
func putVerified(store *storage.EntryStore, name string, body []byte) error {
	addr, err := entry.ParseAddress(name)
	if err != nil {
		return formatError("BACKUP-011", "invalid address "+strconv.Quote(name))
	}
	if got := entry.HashBytes(body); got != addr {
		return errs.Wrap(errs.KindStorage, "BACKUP-102", "object "+name+" hashes to "+got.String(), storage.ErrCIDMismatch)
	}
	_, err = store.PutRaw(body)
	return err
}

func formatError(ruleID, msg string) error {
	return errs.Wrap(errs.KindStructural, ruleID, msg, ErrFormat)
}

func writeFile(tw *tar.Writer, name string, body []byte) error {
	err := tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(body)),
		ModTime:  epoch,
		Format:   tar.FormatUSTAR,
	})
	if err != nil {
		return err
	}
	_, err = tw.Write(body)
	return err
}
