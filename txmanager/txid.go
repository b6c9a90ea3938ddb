package txmanager

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxTXIDNanos 事务ID = MaxTXIDNanos - 创建时间的纳秒数, 越新的事务ID越小.
	// 有效期受 time.UnixNano 限制, 到 2262 年; 早于 1970 的时间按 1970 处理.
	MaxTXIDNanos uint64 = 9999999999999999999

	txIDRadix = 36
	// 36^13 > MaxTXIDNanos, 定宽补零后字符串序与数值序一致
	TXIDWidth = 13
)

// EncodeTXID 把时间编码成可排序的事务ID, t1 < t2 则 EncodeTXID(t1) > EncodeTXID(t2)
func EncodeTXID(t time.Time) string {
	var nanos uint64
	if ns := t.UnixNano(); ns > 0 {
		nanos = uint64(ns)
	}
	s := strconv.FormatUint(MaxTXIDNanos-nanos, txIDRadix)
	if pad := TXIDWidth - len(s); pad > 0 {
		s = strings.Repeat("0", pad) + s
	}
	return s
}

// DecodeTXID 从事务ID还原创建时间
func DecodeTXID(txID string) (time.Time, error) {
	if len(txID) != TXIDWidth {
		return time.Time{}, fmt.Errorf("invalid tx id %q: want %d chars", txID, TXIDWidth)
	}
	v, err := strconv.ParseUint(txID, txIDRadix, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid tx id %q: %w", txID, err)
	}
	if v > MaxTXIDNanos || MaxTXIDNanos-v > math.MaxInt64 {
		return time.Time{}, fmt.Errorf("invalid tx id %q: out of range", txID)
	}
	return time.Unix(0, int64(MaxTXIDNanos-v)).UTC(), nil
}
