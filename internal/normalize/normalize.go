// Package normalize reconciles heterogeneous record shapes, spreadsheet
// rows, legacy blobs, and remote documents, into the canonical piece schema.
// Normalization is pure: inputs are never mutated and only key names change.
package normalize

import (
	"sort"
	"strings"

	"piececore/pkg/domain"
)

// Record maps every recognized key of rec to its canonical field name and
// returns a new record. Resolution per input key:
//
//  1. clean the key: trim, lowercase, collapse runs of underscores and
//     spaces into a single space
//  2. look the cleaned key up in the synonym table
//  3. assign under the canonical name only if a higher-priority key has not
//     already claimed it (first match wins)
//  4. on a miss, retry with all non-alphanumeric characters stripped
//  5. keep unrecognized keys verbatim so no data is silently dropped
//
// An "id" field on the input is always copied through untransformed, in
// addition to taking part in synonym resolution.
func Record(rec domain.RawRecord) domain.RawRecord {
	out := domain.RawRecord{}
	if rec == nil {
		return out
	}

	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	// Canonical spellings take priority over synonym variants; the remaining
	// order is lexicographic so resolution is deterministic.
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := isCanonicalKey(keys[i]), isCanonicalKey(keys[j])
		if ci != cj {
			return ci
		}
		return keys[i] < keys[j]
	})

	for _, key := range keys {
		val := rec[key]
		if key == domain.FieldID {
			out[domain.FieldID] = val
		}
		canonical, ok := resolve(key)
		if !ok {
			if _, taken := out[key]; !taken {
				out[key] = val
			}
			continue
		}
		if _, taken := out[canonical]; taken {
			continue
		}
		out[canonical] = val
	}
	return out
}

// HolderName forces the holder-name field into array shape, in place:
// a comma-delimited string splits into trimmed non-empty elements, a missing
// or malformed value becomes an empty sequence. Returns rec for chaining.
func HolderName(rec domain.RawRecord) domain.RawRecord {
	if rec == nil {
		return rec
	}
	val, ok := rec[domain.FieldHolderName]
	if !ok || val == nil {
		rec[domain.FieldHolderName] = []string{}
		return rec
	}
	switch v := val.(type) {
	case []string:
		// already canonical
	case string, []any:
		rec[domain.FieldHolderName] = domain.CoerceStringSlice(v)
	default:
		rec[domain.FieldHolderName] = []string{}
	}
	return rec
}

func resolve(key string) (string, bool) {
	cleaned := cleanKey(key)
	if canonical, ok := cleanedLookup[cleaned]; ok {
		return canonical, true
	}
	if canonical, ok := strippedLookup[stripKey(cleaned)]; ok {
		return canonical, true
	}
	return "", false
}

var keyCollapser = strings.NewReplacer("_", " ")

func cleanKey(key string) string {
	cleaned := strings.ToLower(strings.TrimSpace(key))
	cleaned = keyCollapser.Replace(cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}

func stripKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return strings.ToLower(b.String())
}

func isCanonicalKey(key string) bool {
	for _, canonical := range canonicalOrder {
		if key == canonical {
			return true
		}
	}
	return key == domain.FieldID
}
