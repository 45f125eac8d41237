package ipwry

import (
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openV6Fixture(t *testing.T, ipLen int, entries []v6Fixture) *IPv6Wry {
	t.Helper()
	db, err := OpenIPv6Wry(buildIPv6Wry(t, ipLen, 3, entries))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestIPv6WryHeader(t *testing.T) {
	db := openV6Fixture(t, 8, v6Fixtures)
	h := db.Header
	assert.Equal(t, uint8(3), h.OffsetLen)
	assert.Equal(t, uint8(8), h.IPLen)
	assert.Equal(t, uint64(len(v6Fixtures)), db.Total())
	assert.Equal(t, h.IndexStartOffset+11*h.TotalRecords, h.IndexEndOffset)
}

func TestIPv6WryLookup(t *testing.T) {
	cases := []struct {
		ip      string
		start   string
		end     string
		country string
		area    string
	}{
		{"::1", "::", "2400:31ff:ffff:ffff:ffff:ffff:ffff:ffff", "保留地址", ""},
		{"2400:3200:baba::1", "2400:3200::", "2409:88ff:ffff:ffff:ffff:ffff:ffff:ffff", "中国浙江省杭州市", "阿里云"},
		{"2400:3200::", "2400:3200::", "2409:88ff:ffff:ffff:ffff:ffff:ffff:ffff", "中国浙江省杭州市", "阿里云"},
		{"2409:8900:103f:14f:d7e:cd36:11af:be83", "2409:8900::", "fe7f:ffff:ffff:ffff:ffff:ffff:ffff:ffff", "中国北京市", "中国移动"},
		{"fe80:0000:0001:0000:0440:44ff:1233:5678", "fe80::", "ffff:ffff:ffff:ffff:ffff:ffff:ffff:ffff", "局域网", "链路本地"},
		{"ffff:ffff:ffff:ffff:ffff:ffff:ffff:ffff", "fe80::", "ffff:ffff:ffff:ffff:ffff:ffff:ffff:ffff", "局域网", "链路本地"},
	}

	for _, ipLen := range []int{8, 4, 10, 16} {
		db := openV6Fixture(t, ipLen, v6Fixtures)
		for _, c := range cases {
			loc, err := db.Lookup(c.ip)
			require.NoError(t, err, c.ip)
			assert.Equal(t, c.ip, loc.IP)
			assert.Equal(t, c.start, loc.Start.String(), "iplen=%d %s", ipLen, c.ip)
			assert.Equal(t, c.end, loc.End.String(), "iplen=%d %s", ipLen, c.ip)
			assert.Equal(t, c.country, loc.Country, c.ip)
			assert.Equal(t, c.area, loc.Area, c.ip)
		}
	}
}

func TestIPv6WryWideKeys(t *testing.T) {
	entries := []v6Fixture{
		{"::", "保留地址", "", v6Literal},
		{"2400:3200:0:0:ab00::", "乙", "", v6Literal},
		{"2400:3200:0:0:ac00::", "丙", "", v6Literal},
	}
	db := openV6Fixture(t, 10, entries)
	assert.Equal(t, uint8(10), db.Header.IPLen)

	loc, err := db.Lookup("2400:3200::ab00:0:0:1")
	require.NoError(t, err)
	assert.Equal(t, "乙", loc.Country)
	assert.Equal(t, "2400:3200:0:0:ab00::", loc.Start.String())
	assert.Equal(t, "2400:3200::abff:ffff:ffff:ffff", loc.End.String())

	loc, err = db.Lookup("2400:3200::aaff:ffff:ffff:ffff")
	require.NoError(t, err)
	assert.Equal(t, "保留地址", loc.Country)

	loc, err = db.Lookup("2400:3200::ac00:0:0:0")
	require.NoError(t, err)
	assert.Equal(t, "丙", loc.Country)
	assert.Equal(t, "ffff:ffff:ffff:ffff:ffff:ffff:ffff:ffff", loc.End.String())
}

func TestIPv6WryRangesBracketAddress(t *testing.T) {
	db := openV6Fixture(t, 8, v6Fixtures)
	for i, f := range v6Fixtures {
		start := ipV6ToInt(net.ParseIP(f.start))
		for _, v := range []uint64{0, 1, 1 << 40} {
			ip := intToIPv6(start.Add64(v))
			loc, err := db.Lookup(ip.String())
			require.NoError(t, err)
			assert.Equal(t, f.start, loc.Start.String(), "record %d", i)
			target := ipV6ToInt(ip)
			assert.True(t, ipV6ToInt(loc.Start).Cmp(target) <= 0)
			assert.True(t, target.Cmp(ipV6ToInt(loc.End)) <= 0)
		}
	}
}

func TestIPv6WryIndexSorted(t *testing.T) {
	db := openV6Fixture(t, 8, v6Fixtures)
	prev, err := db.readKey(0)
	require.NoError(t, err)
	for i := uint64(1); i < db.Total(); i++ {
		key, err := db.readKey(i)
		require.NoError(t, err)
		assert.True(t, prev.Cmp(key) < 0, "record %d", i)
		prev = key
	}
}

func TestIPv6WryInvalidAddress(t *testing.T) {
	db := openV6Fixture(t, 8, v6Fixtures)
	for _, ip := range []string{"1.2.3.4", "gggg::1", "2400:::1", "", "999.999.999.999"} {
		_, err := db.Lookup(ip)
		assert.ErrorIs(t, err, ErrInvalidAddress, ip)
	}
}

func TestIPv6WryRedirectCycle(t *testing.T) {
	entries := []v6Fixture{
		{"::", "保留地址", "", v6Literal},
		{"2001::", "", "", v6Cycle},
		{"2400::", "亚太地区", "", v6Literal},
	}
	db := openV6Fixture(t, 8, entries)

	_, err := db.Lookup("2001:db8::1")
	assert.ErrorIs(t, err, ErrMalformedRecord)

	loc, err := db.Lookup("2400::1")
	require.NoError(t, err)
	assert.Equal(t, "亚太地区", loc.Country)
}

func TestIPv6WryLocationRedirectCycle(t *testing.T) {
	entries := []v6Fixture{
		{"::", "保留地址", "", v6Literal},
		{"2001::", "", "", v6LocationCycle},
		{"2400::", "亚太地区", "", v6Literal},
	}
	db := openV6Fixture(t, 8, entries)

	_, err := db.Lookup("2001:db8::1")
	assert.ErrorIs(t, err, ErrMalformedRecord)

	loc, err := db.Lookup("::1")
	require.NoError(t, err)
	assert.Equal(t, "保留地址", loc.Country)
}

func TestIPv6WryBadHeader(t *testing.T) {
	path := buildIPv6Wry(t, 8, 3, v6Fixtures)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	bad := append([]byte(nil), data...)
	bad[6] = 0
	_, err = OpenIPv6Wry(writeFixture(t, "offlen.db", bad))
	assert.ErrorIs(t, err, ErrMalformedRecord)

	bad = append([]byte(nil), data...)
	bad[8] = 0xff // index runs past the end of the file
	_, err = OpenIPv6Wry(writeFixture(t, "total.db", bad))
	assert.ErrorIs(t, err, ErrMalformedRecord)

	_, err = OpenIPv6Wry(writeFixture(t, "short.db", data[:10]))
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestIPv6WryInvalidText(t *testing.T) {
	entries := []v6Fixture{
		{"::", "\xff\xfe", "ok", v6Literal},
	}
	db := openV6Fixture(t, 8, entries)
	loc, err := db.Lookup("::2")
	require.NoError(t, err)
	assert.Equal(t, "", loc.Country)
	assert.Equal(t, "ok", loc.Area)
}
