package extract

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/richardlehane/mscfb"
)

// docText recovers text from a legacy binary Word file. The .doc container is
// an OLE compound file whose "WordDocument" stream holds the text pieces,
// stored either as single-byte CP1252 or UTF-16LE depending on the piece.
// Rather than parse the piece table we decode the stream both ways and keep
// whichever reading yields more text.
func docText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening doc: %w", err)
	}
	defer f.Close()

	r, err := mscfb.New(f)
	if err != nil {
		return "", fmt.Errorf("parsing doc container: %w", err)
	}

	for {
		entry, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading doc container: %w", err)
		}
		if entry.Name != "WordDocument" {
			continue
		}
		stream, err := io.ReadAll(entry)
		if err != nil {
			return "", fmt.Errorf("reading WordDocument stream: %w", err)
		}
		wide := printableRuns(decodeUTF16LE(stream))
		narrow := printableRuns([]rune(string(stream)))
		if len(wide) >= len(narrow) {
			return wide, nil
		}
		return narrow, nil
	}
	return "", fmt.Errorf("doc file has no WordDocument stream")
}

// minRun filters out the control-byte noise that surrounds real text in the
// WordDocument stream; genuine sentences comfortably exceed it.
const minRun = 8

func decodeUTF16LE(b []byte) []rune {
	runes := make([]rune, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		runes = append(runes, rune(uint16(b[i])|uint16(b[i+1])<<8))
	}
	return runes
}

func printableRuns(runes []rune) string {
	var sb strings.Builder
	var run []rune
	flush := func() {
		if len(run) >= minRun {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(string(run))
		}
		run = run[:0]
	}
	for _, r := range runes {
		if r == '\t' || r == ' ' || (unicode.IsPrint(r) && r != unicode.ReplacementChar) {
			run = append(run, r)
			continue
		}
		flush()
	}
	flush()
	return sb.String()
}
