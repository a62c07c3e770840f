// internal/domain/identity/uri.go
package identity

import (
	"fmt"
	"strconv"
	"strings"

	tierdom "presale/internal/domain/tier"
)

// DeriveFromURI deterministically derives the collector identity from a
// metadata path of the form
//
//	/metadata/nft/{tierSlug}/{tierCode}[/v{NN}]/{serial6}.json
//
// where serial6 is exactly six zero-padded digits. Query string and
// fragment are stripped before parsing. The v{NN} variant segment is
// mandatory for silver and, wherever present, must equal the computed
// design key exactly; a mismatch is rejected, never corrected.
//
// The function is pure: any structural or consistency failure yields an
// error and no partial result.
func DeriveFromURI(raw string) (*URIDerivation, error) {
	path := strings.TrimSpace(raw)
	if i := strings.IndexByte(path, '#'); i >= 0 {
		path = path[:i]
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidURI)
	}

	segs := strings.Split(path, "/")
	// metadata/nft/{slug}/{code}/{file} or .../{code}/v{NN}/{file}
	if len(segs) < 5 || len(segs) > 6 || segs[0] != "metadata" || segs[1] != "nft" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURI, raw)
	}

	t, err := tierdom.FromSlug(segs[2])
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURI, segs[2])
	}

	code := tierdom.Code(segs[3])
	if _, err := tierdom.FromCode(code); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURI, segs[3])
	}
	if !t.CodeCompatible(code) {
		return nil, fmt.Errorf("%w: code %s under slug %s", ErrInvalidURI, code, t.Slug())
	}

	var declaredKey *uint32
	file := segs[len(segs)-1]
	if len(segs) == 6 {
		v, err := parseVariantSegment(segs[4])
		if err != nil {
			return nil, err
		}
		declaredKey = &v
	}
	if t == tierdom.Silver && declaredKey == nil {
		return nil, fmt.Errorf("%w: silver requires a v{NN} segment", ErrInvalidURI)
	}

	serial, err := parseSerialFile(file)
	if err != nil {
		return nil, err
	}

	designKey, err := t.DesignKey(serial, designChoiceFromCode(code))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	if declaredKey != nil && *declaredKey != designKey {
		return nil, fmt.Errorf("%w: declared v%02d, computed %d (serial %d)",
			ErrInconsistentDesignKey, *declaredKey, designKey, serial)
	}

	return &URIDerivation{
		Tier:        t,
		TierCode:    code,
		Serial:      serial,
		DesignKey:   designKey,
		CollectorID: FormatCollectorID(t, code, serial, designKey),
	}, nil
}

// designChoiceFromCode recovers the tree-steel design choice implied by a
// tier code. Nil for single-code tiers, which ignore the choice.
func designChoiceFromCode(code tierdom.Code) *int {
	var c int
	switch code {
	case tierdom.CodeTR:
		c = 1
	case tierdom.CodeFE:
		c = 2
	default:
		return nil
	}
	return &c
}

// parseVariantSegment accepts exactly "v" + two digits.
func parseVariantSegment(seg string) (uint32, error) {
	if len(seg) != 3 || seg[0] != 'v' || !allDigits(seg[1:]) {
		return 0, fmt.Errorf("%w: variant segment %q", ErrInvalidURI, seg)
	}
	v, err := strconv.ParseUint(seg[1:], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: variant segment %q", ErrInvalidURI, seg)
	}
	return uint32(v), nil
}

// parseSerialFile accepts exactly six zero-padded digits + ".json" and
// requires the serial to be >= 1. An unparseable serial fails; it never
// falls back to a default.
func parseSerialFile(file string) (uint32, error) {
	name, ok := strings.CutSuffix(file, ".json")
	if !ok || len(name) != 6 || !allDigits(name) {
		return 0, fmt.Errorf("%w: filename %q", ErrInvalidURI, file)
	}
	n, err := strconv.ParseUint(name, 10, 32)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: serial %q", ErrInvalidURI, name)
	}
	return uint32(n), nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
