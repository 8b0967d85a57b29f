package ingest

import (
	"bytes"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
)

// DefaultEncodings is the candidate probe order. UTF-8 first, then the
// East-Asian codepages common in exported inventory sheets, then latin1 which
// accepts any byte sequence.
var DefaultEncodings = []string{"utf-8", "cp949", "euc-kr", "latin1"}

// probeSize bounds how much of the file each candidate decode attempt sees.
// The probe can split a multibyte sequence at the boundary; that risk is
// accepted in exchange for never scanning the whole file here.
const probeSize = 1024

// DetectEncoding probes the first candidate encoding that decodes a bounded
// prefix of the file. It always returns a usable encoding name and never
// fails: unreadable files and exhausted candidates both fall back to utf-8.
func DetectEncoding(path string, candidates []string) string {
	if len(candidates) == 0 {
		candidates = DefaultEncodings
	}
	f, err := os.Open(path)
	if err != nil {
		return "utf-8"
	}
	defer f.Close()

	buf := make([]byte, probeSize)
	n, _ := io.ReadFull(f, buf)
	sample := buf[:n]

	for _, name := range candidates {
		if decodes(sample, name) {
			return name
		}
	}
	return "utf-8"
}

// decodes reports whether sample is valid in the named encoding.
func decodes(sample []byte, name string) bool {
	switch normalizeEncoding(name) {
	case "utf-8":
		return utf8.Valid(sample)
	case "latin1":
		// Single-byte map with no holes; every byte sequence is valid latin1.
		return true
	default:
		dec := decoderFor(name)
		if dec == nil {
			return false
		}
		out, err := dec.Bytes(sample)
		if err != nil {
			return false
		}
		// x/text decoders substitute U+FFFD instead of failing.
		return !bytes.ContainsRune(out, utf8.RuneError)
	}
}

// decoderFor maps an encoding name to its x/text decoder. utf-8 and latin1
// callers that need a transforming reader get one too; nil means passthrough.
func decoderFor(name string) *encoding.Decoder {
	switch normalizeEncoding(name) {
	case "cp949", "euc-kr":
		// korean.EUCKR implements the windows-949 superset, covering both names.
		return korean.EUCKR.NewDecoder()
	case "latin1":
		return charmap.ISO8859_1.NewDecoder()
	default:
		return nil
	}
}

func normalizeEncoding(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8", "":
		return "utf-8"
	case "cp949", "windows-949", "ms949":
		return "cp949"
	case "euc-kr", "euckr":
		return "euc-kr"
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return "latin1"
	default:
		return strings.ToLower(name)
	}
}
