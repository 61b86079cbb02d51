package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

type pairBA struct {
	B string `json:"b"`
	A uint64 `json:"a"`
}

type pairAB struct {
	A uint64 `json:"a"`
	B string `json:"b"`
}

func TestCanonicalEncode_SortsKeys(t *testing.T) {
	enc, err := CanonicalEncode(pairBA{B: "x", A: 7})
	require.NoError(t, err)
	require.Equal(t, `{"a":7,"b":"x"}`, string(enc))

	other, err := CanonicalEncode(pairAB{A: 7, B: "x"})
	require.NoError(t, err)
	require.Equal(t, enc, other)
}

func TestCanonicalEncode_MapInsertionOrder(t *testing.T) {
	first := map[string]interface{}{}
	first["zeta"] = 1
	first["alpha"] = []interface{}{3, 2, 1}
	first["mid"] = map[string]interface{}{"y": true, "x": false}

	second := map[string]interface{}{}
	second["mid"] = map[string]interface{}{"x": false, "y": true}
	second["alpha"] = []interface{}{3, 2, 1}
	second["zeta"] = 1

	a, err := CanonicalEncode(first)
	require.NoError(t, err)
	b, err := CanonicalEncode(second)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, `{"alpha":[3,2,1],"mid":{"x":false,"y":true},"zeta":1}`, string(a))
}

func TestCanonicalEncode_Values(t *testing.T) {
	enc, err := CanonicalEncode(map[string]interface{}{
		"big":   uint64(math.MaxUint64),
		"float": 1651234567.25,
		"whole": 1651234567.0,
		"url":   "http://a/b",
		"html":  "<&>",
	})
	require.NoError(t, err)
	require.Equal(t,
		`{"big":18446744073709551615,"float":1651234567.25,"html":"<&>","url":"http:\/\/a\/b","whole":1651234567}`,
		string(enc),
	)
}

func TestCanonicalEncode_NaN(t *testing.T) {
	_, err := CanonicalEncode(map[string]float64{"t": math.NaN()})
	require.Error(t, err)
}

func TestSha256Hex(t *testing.T) {
	require.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Sha256Hex(nil),
	)
	require.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		Sha256Hex([]byte("abc")),
	)
}

func TestCanonicalEncode_InvalidUTF8(t *testing.T) {
	type tx struct {
		Sender string `json:"sender"`
	}
	for _, v := range []interface{}{
		"a\xffb",
		tx{Sender: "\xff"},
		&tx{Sender: "\xfe"},
		[]tx{{Sender: "ok"}, {Sender: "bad\xc3"}},
		map[string]interface{}{"k": []interface{}{"\xff"}},
		map[string]int{"\xff": 1},
	} {
		_, err := CanonicalEncode(v)
		require.ErrorIs(t, err, ErrInvalidUTF8)
	}

	enc, err := CanonicalEncode(tx{Sender: "žluťoučký �"})
	require.NoError(t, err)
	require.Equal(t, `{"sender":"žluťoučký �"}`, string(enc))
}
