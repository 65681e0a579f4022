// Package textdiff compares entry payloads for merge reports and
// interactive conflict resolution.
package textdiff

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	SampleSize         = 8192 // Bytes inspected by IsText
	BinaryThresholdPct = 10   // Max % control chars for text
)

// IsText reports whether a payload looks like text. Payloads with NUL
// bytes, invalid UTF-8 or too many control characters are binary.
func IsText(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	if bytes.IndexByte(data, 0) != -1 {
		return false
	}

	sample := data
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}
	if !utf8.Valid(sample) {
		return false
	}

	control := 0
	for _, b := range sample {
		if (b < 32 && b != '\t' && b != '\n' && b != '\r') || b == 127 {
			control++
		}
	}
	return control <= len(sample)*BinaryThresholdPct/100
}

// Equal compares two payloads in constant time
func Equal(a, b []byte) bool {
	return crypto.ConstantTimeCompare(a, b)
}

func lineDiff(a, b string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffMain(ca, cb, false)
	return dmp.DiffCharsToLines(diffs, lines)
}

// Unified renders a unified diff of an entry between two vaults.
// It returns "" when the payloads are equal.
func Unified(name string, ours, theirs []byte, oursLabel, theirsLabel string) string {
	if Equal(ours, theirs) {
		return ""
	}
	if !IsText(ours) || !IsText(theirs) {
		return fmt.Sprintf("Binary entry %s differs\n", name)
	}

	dmp := diffmatchpatch.New()
	a := string(ours)
	patches := dmp.PatchMake(a, lineDiff(a, string(theirs)))
	if len(patches) == 0 {
		return ""
	}

	var out strings.Builder
	fmt.Fprintf(&out, "--- %s/%s\n", oursLabel, name)
	fmt.Fprintf(&out, "+++ %s/%s\n", theirsLabel, name)
	out.WriteString(dmp.PatchToText(patches))
	return out.String()
}

// Conflict merges two text payloads line by line, wrapping each differing
// hunk in git-style conflict markers.
func Conflict(ours, theirs []byte, oursLabel, theirsLabel string) []byte {
	diffs := lineDiff(string(ours), string(theirs))

	var buf bytes.Buffer
	writeSide := func(typ diffmatchpatch.Operation, i int) int {
		for i < len(diffs) && diffs[i].Type == typ {
			text := diffs[i].Text
			buf.WriteString(text)
			if text != "" && !strings.HasSuffix(text, "\n") {
				buf.WriteByte('\n')
			}
			i++
		}
		return i
	}

	for i := 0; i < len(diffs); {
		if diffs[i].Type == diffmatchpatch.DiffEqual {
			buf.WriteString(diffs[i].Text)
			i++
			continue
		}
		buf.WriteString("<<<<<<< " + oursLabel + "\n")
		i = writeSide(diffmatchpatch.DiffDelete, i)
		buf.WriteString("=======\n")
		i = writeSide(diffmatchpatch.DiffInsert, i)
		buf.WriteString(">>>>>>> " + theirsLabel + "\n")
	}
	return buf.Bytes()
}

// HasMarkers reports whether unresolved conflict markers remain
func HasMarkers(data []byte) bool {
	return bytes.Contains(data, []byte("<<<<<<<")) ||
		bytes.Contains(data, []byte("=======")) ||
		bytes.Contains(data, []byte(">>>>>>>"))
}
