package statestore

import (
	"github.com/tinylib/msgp/msgp"

	"github.com/duplicationmill/core/morsel"
)

// encodeMorsels and decodeMorsels are hand-written against msgp's runtime
// append/read helpers (not go:generate codegen): each Morsel is a 5-field
// array [account, spaceId, marker, srcStoreId, dstStoreId], matching the
// State blob record shape of the external-interfaces spec. An empty marker
// is written as the empty string, not a separate null encoding, since
// Morsel.Marker's zero value already means "not started".
func encodeMorsels(morsels []morsel.Morsel) ([]byte, error) {
	b := msgp.AppendArrayHeader(nil, uint32(len(morsels)))
	for _, m := range morsels {
		b = msgp.AppendArrayHeader(b, 5)
		b = msgp.AppendString(b, m.Account)
		b = msgp.AppendString(b, m.SpaceID)
		b = msgp.AppendString(b, m.Marker)
		b = msgp.AppendString(b, m.SrcStoreID)
		b = msgp.AppendString(b, m.DstStoreID)
	}
	return b, nil
}

func decodeMorsels(b []byte) ([]morsel.Morsel, error) {
	n, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return nil, err
	}
	out := make([]morsel.Morsel, 0, n)
	for i := uint32(0); i < n; i++ {
		var fieldCount uint32
		fieldCount, b, err = msgp.ReadArrayHeaderBytes(b)
		if err != nil {
			return nil, err
		}
		_ = fieldCount // always 5; tolerated mismatch falls through to field reads below

		var m morsel.Morsel
		m.Account, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return nil, err
		}
		m.SpaceID, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return nil, err
		}
		m.Marker, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return nil, err
		}
		m.SrcStoreID, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return nil, err
		}
		m.DstStoreID, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
