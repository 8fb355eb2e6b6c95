package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDCodeStable(t *testing.T) {
	a := IDCode("u/foo")
	b := IDCode("u/foo")
	require.Equal(t, a, b)
	require.NotEqual(t, a, IDCode("u/bar"))
}

func TestCodeBytesRoundTrip(t *testing.T) {
	c := IDCode("/a/b/c.c")
	require.Equal(t, c, CodeFromBytes(c.Bytes()))
}

func TestCodeBytesOrderingMatchesNumeric(t *testing.T) {
	// Big-endian encoding must preserve unsigned numeric ordering under
	// byte-lexicographic comparison, since that's what bbolt's cursor
	// uses internally.
	lo, hi := Code(1), Code(1<<40)
	require.Less(t, string(lo.Bytes()), string(hi.Bytes()))
}

func TestUnitInfoRoundTrip(t *testing.T) {
	u := &UnitInfo{
		Name:         "unit-a",
		MainFileCode: IDCode("/a.c"),
		OutFileCode:  IDCode("/a.o"),
		Flags:        UnitHasMainFile | UnitHasTestSymbols,
		ProviderKind: ProviderKindClang,
		ModTimeNanos: 1000,
		FileDepends:  []Code{IDCode("/a.c"), IDCode("/b.h")},
		UnitDepends:  []Code{IDCode("unit-b")},
		ProviderDepends: []ProviderDependency{
			{ProviderCode: IDCode("r1"), FileCode: IDCode("/a.c")},
		},
	}

	buf := EncodeUnitInfo(u)
	require.Zero(t, len(buf)%8, "encoded value must be 8-byte aligned")

	got, err := DecodeUnitInfo(buf)
	require.NoError(t, err)
	require.Equal(t, u.Name, got.Name)
	require.Equal(t, u.MainFileCode, got.MainFileCode)
	require.Equal(t, u.OutFileCode, got.OutFileCode)
	require.True(t, got.HasMainFile())
	require.True(t, got.HasTestSymbols())
	require.False(t, got.HasSysroot())
	require.Equal(t, u.FileDepends, got.FileDepends)
	require.Equal(t, u.UnitDepends, got.UnitDepends)
	require.Equal(t, u.ProviderDepends, got.ProviderDepends)
}

func TestUnitInfoRoundTripEmptyDeps(t *testing.T) {
	u := &UnitInfo{Name: "empty"}
	buf := EncodeUnitInfo(u)
	got, err := DecodeUnitInfo(buf)
	require.NoError(t, err)
	require.Equal(t, "empty", got.Name)
	require.Empty(t, got.FileDepends)
	require.Empty(t, got.UnitDepends)
	require.Empty(t, got.ProviderDepends)
}

func TestDecodeUnitInfoTruncated(t *testing.T) {
	_, err := DecodeUnitInfo(make([]byte, 10))
	require.Error(t, err)
}
