package attr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want string
	}{
		{"absent", nil, `null`},
		{"null", Null{}, `null`},
		{"string", String("a<b>&"), `"a<b>&"`},
		{"escapes", String("q\"\\\n\x01"), `"q\"\\\n\u0001"`},
		{"int", Int(-7), `-7`},
		{"float", Float(1.25), `1.25`},
		{"bool", Bool(false), `false`},
		{"list", List{Int(1), Null{}}, `[1,null]`},
		{"sorted keys", Map{"b": Int(2), "a": Int(1)}, `{"a":1,"b":2}`},
		{"store id", Map{"id": NewStoreID(5)}, `{"id":{"$store_id":5}}`},
		{"decomposed kept", String("cafe\u0301"), "\"cafe\u0301\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalNormalized(t *testing.T) {
	got, err := MarshalNormalized(Map{"cafe\u0301": List{String("e\u0301")}})
	require.NoError(t, err)
	assert.Equal(t, "{\"caf\u00e9\":[\"\u00e9\"]}", string(got))

	// Everything else matches MarshalCanonical.
	in := Map{"id": NewStoreID(3), "b": Int(2), "a": Bool(true)}
	want, err := MarshalCanonical(in)
	require.NoError(t, err)
	got, err = MarshalNormalized(in)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestMarshalCanonical_DecomposedRoundTrip(t *testing.T) {
	in := Map{"name": String("e\u0301"), "cafe\u0301": Int(1)}
	data, err := MarshalCanonical(in)
	require.NoError(t, err)

	out, err := UnmarshalMap(data)
	require.NoError(t, err)
	assert.True(t, in.Equal(out), "round trip changed map: %s", data)
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes to a surrogate pair (0xD83D...) which sorts before
	// U+FF61 in UTF-16 but after it in UTF-8.
	got, err := MarshalCanonical(Map{"｡": Int(1), "\U0001F600": Int(2)})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"｡\":1}", string(got))
}

func TestMarshalCanonical_RejectsNonFinite(t *testing.T) {
	_, err := MarshalCanonical(Float(math.NaN()))
	assert.Error(t, err)
	_, err = MarshalCanonical(Map{"x": Float(math.Inf(1))})
	assert.Error(t, err)
}

func TestUnmarshalValue_Numbers(t *testing.T) {
	v, err := UnmarshalValue([]byte(`{"i":3,"f":3.5,"n":null}`))
	require.NoError(t, err)
	m := v.(Map)
	assert.Equal(t, Int(3), m["i"])
	assert.Equal(t, Float(3.5), m["f"])
	assert.Equal(t, Null{}, m["n"])
}

func TestUnmarshalMap_RejectsNonObject(t *testing.T) {
	_, err := UnmarshalMap([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestCanonicalRoundTrip(t *testing.T) {
	in := Map{
		"id":    NewStoreID(2),
		"title": String("hello"),
		"tags":  List{String("a"), String("b")},
		"score": Int(10),
	}
	data, err := MarshalCanonical(in)
	require.NoError(t, err)

	out, err := UnmarshalMap(data)
	require.NoError(t, err)
	assert.True(t, in.Equal(out), "round trip changed map: %s", data)
}
