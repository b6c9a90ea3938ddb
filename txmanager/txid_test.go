package txmanager

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTXIDReversesTimeOrder(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for _, d := range []time.Duration{0, time.Nanosecond, time.Millisecond, time.Hour, 24 * 365 * time.Hour} {
		ids = append(ids, EncodeTXID(base.Add(d)))
	}
	for i := 1; i < len(ids); i++ {
		assert.Greater(t, ids[i-1], ids[i], "older instant must sort after newer one")
	}
	assert.True(t, sort.SliceIsSorted(ids, func(i, j int) bool { return ids[i] > ids[j] }))
}

func TestEncodeTXIDFixedWidth(t *testing.T) {
	for _, ts := range []time.Time{
		time.Unix(0, 0),
		time.Unix(0, 1),
		time.Now(),
		time.Date(2262, 1, 1, 0, 0, 0, 0, time.UTC),
	} {
		assert.Len(t, EncodeTXID(ts), TXIDWidth, ts.String())
	}
	//1970 之前按 1970 处理
	assert.Equal(t, EncodeTXID(time.Unix(0, 0)), EncodeTXID(time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestDecodeTXID(t *testing.T) {
	now := time.Unix(1700000000, 123456789)
	got, err := DecodeTXID(EncodeTXID(now))
	require.NoError(t, err)
	assert.True(t, now.Equal(got))

	for _, bad := range []string{"", "abc", "zzzzzzzzzzzzz", "!!!!!!!!!!!!!"} {
		_, err = DecodeTXID(bad)
		assert.Error(t, err, bad)
	}
}
