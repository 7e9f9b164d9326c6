// SPDX-License-Identifier: AGPL-3.0-only

package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParameterSetSerializeRoundTrip(t *testing.T) {
	cases := []ParameterSet{
		NewParameterSet(),
		NewParameterSet(Int64Value(42)),
		NewParameterSet(Int64Value(-7), StringValue("hello"), Value{Kind: KindFloat64, F: 3.5}),
		NewParameterSet(Value{Kind: KindNull}, Value{Kind: KindBytes, B: []byte{0x01, 0x02, 0x03}}),
		NewParameterSet(StringValue("")),
	}

	for i, ps := range cases {
		buf, err := ps.Serialize()
		require.NoError(t, err, "case %d", i)

		got, err := DeserializeParameterSet(buf)
		require.NoError(t, err, "case %d", i)
		require.True(t, ps.Equal(got), "case %d: round trip mismatch: %+v != %+v", i, ps, got)
	}
}

func TestParameterSetDeserializeTruncated(t *testing.T) {
	_, err := DeserializeParameterSet([]byte{0x00, 0x00})
	require.Error(t, err)

	ps := NewParameterSet(StringValue("abcdef"))
	buf, err := ps.Serialize()
	require.NoError(t, err)

	_, err = DeserializeParameterSet(buf[:len(buf)-2])
	require.Error(t, err)
}

func TestStableOrderProducersFirst(t *testing.T) {
	fragments := []Fragment{
		{FragmentID: 5, IsProducer: false},
		{FragmentID: 2, IsProducer: true},
		{FragmentID: 1, IsProducer: false},
		{FragmentID: 3, IsProducer: true},
	}

	ordered := StableOrder(fragments)
	require.Equal(t, []FragmentID{2, 3, 1, 5}, []FragmentID{
		ordered[0].FragmentID, ordered[1].FragmentID, ordered[2].FragmentID, ordered[3].FragmentID,
	})

	// Original slice must not be mutated.
	require.Equal(t, FragmentID(5), fragments[0].FragmentID)
}
