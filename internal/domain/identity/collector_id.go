// internal/domain/identity/collector_id.go
package identity

import (
	"fmt"
	"strconv"
	"strings"

	tierdom "presale/internal/domain/tier"
)

// CollectorIDYear is the roman-numeral vintage segment of every collector
// ID minted by this presale.
const CollectorIDYear = "MMXXVI"

// FormatCollectorID renders the canonical collector ID:
//
//	{code}-MMXXVI-{serial, 4 digits}-{designKey, 2 or 3 digits}
//
// The design segment is 3 digits wide for the serial-keyed tiers
// (Gold/Platinum/WS20) and 2 digits otherwise.
func FormatCollectorID(t tierdom.Tier, code tierdom.Code, serial, designKey uint32) string {
	return fmt.Sprintf("%s-%s-%04d-%0*d", code, CollectorIDYear, serial, t.DesignKeyWidth(), designKey)
}

// ParseCollectorID is the inverse of FormatCollectorID. It exists for
// verification tooling; the deriver itself never parses collector IDs.
func ParseCollectorID(s string) (code tierdom.Code, serial, designKey uint32, err error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 4 || parts[1] != CollectorIDYear {
		return "", 0, 0, fmt.Errorf("%w: %q", ErrInvalidURI, s)
	}
	code = tierdom.Code(parts[0])
	t, err := tierdom.FromCode(code)
	if err != nil {
		return "", 0, 0, err
	}
	ser, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil || ser < 1 {
		return "", 0, 0, fmt.Errorf("%w: serial segment %q", ErrInvalidURI, parts[2])
	}
	if len(parts[3]) != t.DesignKeyWidth() {
		return "", 0, 0, fmt.Errorf("%w: design segment %q", ErrInvalidURI, parts[3])
	}
	key, err := strconv.ParseUint(parts[3], 10, 32)
	if err != nil || key < 1 {
		return "", 0, 0, fmt.Errorf("%w: design segment %q", ErrInvalidURI, parts[3])
	}
	return code, uint32(ser), uint32(key), nil
}
