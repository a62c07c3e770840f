// internal/domain/identity/uri_test.go
package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tierdom "presale/internal/domain/tier"
)

func TestDeriveFromURI(t *testing.T) {
	tests := []struct {
		name        string
		uri         string
		wantTier    tierdom.Tier
		wantCode    tierdom.Code
		wantSerial  uint32
		wantKey     uint32
		wantID      string
	}{
		{
			name:       "tree-steel TR",
			uri:        "/metadata/nft/tree-steel/TR/000001.json",
			wantTier:   tierdom.TreeSteel,
			wantCode:   tierdom.CodeTR,
			wantSerial: 1,
			wantKey:    1,
			wantID:     "TR-MMXXVI-0001-01",
		},
		{
			name:       "tree-steel FE",
			uri:        "/metadata/nft/tree-steel/FE/000042.json",
			wantTier:   tierdom.TreeSteel,
			wantCode:   tierdom.CodeFE,
			wantSerial: 42,
			wantKey:    2,
			wantID:     "FE-MMXXVI-0042-02",
		},
		{
			name:       "bronze always design 1",
			uri:        "/metadata/nft/bronze/CU/000123.json",
			wantTier:   tierdom.Bronze,
			wantCode:   tierdom.CodeCU,
			wantSerial: 123,
			wantKey:    1,
			wantID:     "CU-MMXXVI-0123-01",
		},
		{
			name:       "silver with mandatory variant",
			uri:        "/metadata/nft/silver/AG/v08/000058.json",
			wantTier:   tierdom.Silver,
			wantCode:   tierdom.CodeAG,
			wantSerial: 58,
			wantKey:    8,
			wantID:     "AG-MMXXVI-0058-08",
		},
		{
			name:       "silver wraps after ten",
			uri:        "/metadata/nft/silver/AG/v01/000011.json",
			wantTier:   tierdom.Silver,
			wantCode:   tierdom.CodeAG,
			wantSerial: 11,
			wantKey:    1,
			wantID:     "AG-MMXXVI-0011-01",
		},
		{
			name:       "gold keys on serial, wide design segment",
			uri:        "/metadata/nft/gold/AU/000007.json",
			wantTier:   tierdom.Gold,
			wantCode:   tierdom.CodeAU,
			wantSerial: 7,
			wantKey:    7,
			wantID:     "AU-MMXXVI-0007-007",
		},
		{
			name:       "query and fragment stripped",
			uri:        "/metadata/nft/bronze/CU/000123.json?cache=no#top",
			wantTier:   tierdom.Bronze,
			wantCode:   tierdom.CodeCU,
			wantSerial: 123,
			wantKey:    1,
			wantID:     "CU-MMXXVI-0123-01",
		},
		{
			name:       "no leading slash",
			uri:        "metadata/nft/platinum/PT/000015.json",
			wantTier:   tierdom.Platinum,
			wantCode:   tierdom.CodePT,
			wantSerial: 15,
			wantKey:    15,
			wantID:     "PT-MMXXVI-0015-015",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, err := DeriveFromURI(tc.uri)
			require.NoError(t, err)
			assert.Equal(t, tc.wantTier, d.Tier)
			assert.Equal(t, tc.wantCode, d.TierCode)
			assert.Equal(t, tc.wantSerial, d.Serial)
			assert.Equal(t, tc.wantKey, d.DesignKey)
			assert.Equal(t, tc.wantID, d.CollectorID)
		})
	}
}

func TestDeriveFromURIRejects(t *testing.T) {
	tests := []struct {
		name  string
		uri   string
		errIs error
	}{
		{"empty", "", ErrInvalidURI},
		{"wrong prefix", "/meta/nft/bronze/CU/000123.json", ErrInvalidURI},
		{"unknown slug", "/metadata/nft/copper/CU/000123.json", ErrInvalidURI},
		{"unknown code", "/metadata/nft/bronze/XX/000123.json", ErrInvalidURI},
		{"code under wrong slug", "/metadata/nft/bronze/AG/000123.json", ErrInvalidURI},
		{"silver missing variant", "/metadata/nft/silver/AG/000058.json", ErrInvalidURI},
		{"silver wrong variant", "/metadata/nft/silver/AG/v03/000058.json", ErrInconsistentDesignKey},
		{"bronze wrong variant", "/metadata/nft/bronze/CU/v02/000123.json", ErrInconsistentDesignKey},
		{"variant not two digits", "/metadata/nft/silver/AG/v008/000058.json", ErrInvalidURI},
		{"serial not six digits", "/metadata/nft/bronze/CU/123.json", ErrInvalidURI},
		{"serial seven digits", "/metadata/nft/bronze/CU/0000123.json", ErrInvalidURI},
		{"serial zero", "/metadata/nft/bronze/CU/000000.json", ErrInvalidURI},
		{"serial not numeric", "/metadata/nft/bronze/CU/00a123.json", ErrInvalidURI},
		{"wrong extension", "/metadata/nft/bronze/CU/000123.png", ErrInvalidURI},
		{"too many segments", "/metadata/nft/silver/AG/v08/x/000058.json", ErrInvalidURI},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, err := DeriveFromURI(tc.uri)
			assert.Nil(t, d)
			assert.ErrorIs(t, err, tc.errIs)
		})
	}
}

func TestDeriveFromURIMatchingVariantAccepted(t *testing.T) {
	// Optional v-segments on non-silver tiers are allowed when consistent.
	d, err := DeriveFromURI("/metadata/nft/bronze/CU/v01/000123.json")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), d.DesignKey)
}

func TestParseCollectorIDRoundTrip(t *testing.T) {
	cases := []struct {
		tier   tierdom.Tier
		code   tierdom.Code
		serial uint32
		key    uint32
	}{
		{tierdom.TreeSteel, tierdom.CodeTR, 1, 1},
		{tierdom.Silver, tierdom.CodeAG, 58, 8},
		{tierdom.Gold, tierdom.CodeAU, 7, 7},
		{tierdom.WS20, tierdom.CodeWS, 20, 20},
	}
	for _, tc := range cases {
		id := FormatCollectorID(tc.tier, tc.code, tc.serial, tc.key)
		code, serial, key, err := ParseCollectorID(id)
		require.NoError(t, err, id)
		assert.Equal(t, tc.code, code)
		assert.Equal(t, tc.serial, serial)
		assert.Equal(t, tc.key, key)
	}
}

func TestParseCollectorIDRejects(t *testing.T) {
	for _, bad := range []string{
		"",
		"AG-MMXXV-0058-08",   // wrong vintage
		"XX-MMXXVI-0058-08",  // unknown code
		"AG-MMXXVI-0058-008", // wrong width for silver
		"AU-MMXXVI-0007-07",  // wrong width for gold
		"AG-MMXXVI-0000-08",  // serial zero
	} {
		_, _, _, err := ParseCollectorID(bad)
		assert.Error(t, err, bad)
	}
}
