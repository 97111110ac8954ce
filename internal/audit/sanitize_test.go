package audit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustJSON(t *testing.T, v Value) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestSanitizeKeepsNull(t *testing.T) {
	in := Object(map[string]Value{"a": Null()})
	out := Sanitize(in)
	assert.Equal(t, KindNull, out.Field("a").Kind())
	assert.JSONEq(t, `{"a":null}`, mustJSON(t, out))
}

func TestSanitizeDropsAbsentAtEveryDepth(t *testing.T) {
	in := Object(map[string]Value{
		"keep":    String("x"),
		"missing": Absent(),
		"linked":  Null(),
		"rows": Array(
			Object(map[string]Value{
				"id":   Int(1),
				"gone": Absent(),
				"tags": Array(String("a"), Absent(), Null(), String("b")),
			}),
			Absent(),
			Array(Absent(), Object(map[string]Value{"deep": Array(Absent())})),
		),
	})
	out := Sanitize(in)

	assert.False(t, ContainsAbsent(out))
	assert.JSONEq(t, `{
		"keep": "x",
		"linked": null,
		"rows": [
			{"id": 1, "tags": ["a", null, "b"]},
			[{"deep": []}]
		]
	}`, mustJSON(t, out))
	assert.Len(t, out.Field("rows").Items(), 2, "absent array element must be dropped, not nulled")
}

func TestSanitizeIsIdempotent(t *testing.T) {
	inputs := []Value{
		Absent(),
		Null(),
		String("unknown"),
		Array(),
		Object(nil),
		Array(Absent(), Absent()),
		FromAny(map[string]any{
			"a": nil,
			"b": Missing(),
			"c": []any{Missing(), map[string]any{"d": []any{nil, Missing(), 1.5}}},
		}),
	}
	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		assert.Equal(t, once, twice)
		assert.Equal(t, mustJSON(t, once), mustJSON(t, twice))
	}
}

func TestMissingIsAbsent(t *testing.T) {
	assert.True(t, FromAny(Missing()).IsAbsent())
	assert.Equal(t, Missing(), Missing())
	assert.False(t, FromAny(nil).IsAbsent())
}

func TestFromAnyDistinguishesMissingAndNil(t *testing.T) {
	v := FromAny(map[string]any{"linkedRecord": nil, "comment": Missing()})
	assert.Equal(t, KindNull, v.Field("linkedRecord").Kind())
	assert.True(t, v.Field("comment").IsAbsent())

	clean := Sanitize(v)
	assert.JSONEq(t, `{"linkedRecord":null}`, mustJSON(t, clean))
}

func TestValueUnmarshalRoundTripsNull(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`{"a":null,"b":[1,{"c":null}]}`), &v))
	assert.False(t, ContainsAbsent(v))
	assert.JSONEq(t, `{"a":null,"b":[1,{"c":null}]}`, mustJSON(t, v))
}

func TestFromAnyStructFallback(t *testing.T) {
	type payload struct {
		Name  string  `json:"name"`
		Owner *string `json:"owner"`
	}
	v := FromAny(payload{Name: "n"})
	assert.JSONEq(t, `{"name":"n","owner":null}`, mustJSON(t, v))
}
