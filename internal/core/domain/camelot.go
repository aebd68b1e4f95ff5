package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// CamelotKey is a position on the Camelot wheel. Letter A is minor, B is major.
type CamelotKey struct {
	Number int
	Letter byte
}

// String renders the key as e.g. "8A".
func (k CamelotKey) String() string {
	return fmt.Sprintf("%d%c", k.Number, k.Letter)
}

// Valid reports whether the key is a real wheel position.
func (k CamelotKey) Valid() bool {
	return k.Number >= 1 && k.Number <= 12 && (k.Letter == 'A' || k.Letter == 'B')
}

// Transpose shifts the key by a number of equal-tempered semitones.
// One semitone moves seven positions around the wheel; the letter is kept.
func (k CamelotKey) Transpose(semitones int) CamelotKey {
	steps := mod12((semitones % 12) * 7)
	return CamelotKey{
		Number: mod12(k.Number-1+steps) + 1,
		Letter: k.Letter,
	}
}

func mod12(v int) int {
	r := v % 12
	if r < 0 {
		r += 12
	}
	return r
}

// ParseCamelot accepts "<1-12><A|B>" in either case.
func ParseCamelot(raw string) (CamelotKey, bool) {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))
	if len(trimmed) < 2 {
		return CamelotKey{}, false
	}
	letter := trimmed[len(trimmed)-1]
	if letter != 'A' && letter != 'B' {
		return CamelotKey{}, false
	}
	number, err := strconv.Atoi(trimmed[:len(trimmed)-1])
	if err != nil || number < 1 || number > 12 {
		return CamelotKey{}, false
	}
	return CamelotKey{Number: number, Letter: letter}, true
}

var minorKeys = map[string]int{
	"G#": 1, "Ab": 1,
	"D#": 2, "Eb": 2,
	"A#": 3, "Bb": 3,
	"F":  4,
	"C":  5,
	"G":  6,
	"D":  7,
	"A":  8,
	"E":  9,
	"B":  10,
	"F#": 11, "Gb": 11,
	"C#": 12, "Db": 12,
}

var majorKeys = map[string]int{
	"B":  1,
	"F#": 2, "Gb": 2,
	"C#": 3, "Db": 3,
	"G#": 4, "Ab": 4,
	"D#": 5, "Eb": 5,
	"A#": 6, "Bb": 6,
	"F":  7,
	"C":  8,
	"G":  9,
	"D":  10,
	"A":  11,
	"E":  12,
}

// CamelotFromMusical maps standard key names ("Am", "F#m", "Bb", "Dbm",
// "C major", "E minor") onto the wheel.
func CamelotFromMusical(raw string) (CamelotKey, bool) {
	normalized := strings.TrimSpace(raw)
	normalized = strings.ReplaceAll(normalized, "♯", "#")
	normalized = strings.ReplaceAll(normalized, "♭", "b")
	if normalized == "" {
		return CamelotKey{}, false
	}
	lower := strings.ToLower(normalized)

	root := normalized
	minor := false
	switch {
	case strings.HasSuffix(lower, "minor") && len(normalized) > 5:
		root, minor = normalized[:len(normalized)-5], true
	case strings.HasSuffix(lower, "min") && len(normalized) > 3:
		root, minor = normalized[:len(normalized)-3], true
	case strings.HasSuffix(lower, "m") && len(normalized) > 1:
		root, minor = normalized[:len(normalized)-1], true
	case strings.HasSuffix(lower, "major") && len(normalized) > 5:
		root = normalized[:len(normalized)-5]
	case strings.HasSuffix(lower, "maj") && len(normalized) > 3:
		root = normalized[:len(normalized)-3]
	}

	note, ok := normalizeKeyRoot(root)
	if !ok {
		return CamelotKey{}, false
	}
	if minor {
		number, ok := minorKeys[note]
		return CamelotKey{Number: number, Letter: 'A'}, ok
	}
	number, ok := majorKeys[note]
	return CamelotKey{Number: number, Letter: 'B'}, ok
}

func normalizeKeyRoot(root string) (string, bool) {
	stripped := strings.Join(strings.Fields(root), "")
	if stripped == "" || len(stripped) > 2 {
		return "", false
	}
	letter := strings.ToUpper(stripped[:1])
	if !strings.Contains("ABCDEFG", letter) {
		return "", false
	}
	if len(stripped) == 1 {
		return letter, true
	}
	switch stripped[1] {
	case '#':
		return letter + "#", true
	case 'b', 'B':
		return letter + "b", true
	default:
		return "", false
	}
}

// ResolveKey tries Camelot notation first, then musical notation.
func ResolveKey(raw string) (CamelotKey, bool) {
	if k, ok := ParseCamelot(raw); ok {
		return k, true
	}
	return CamelotFromMusical(raw)
}
