package queue

import (
	"testing"

	"github.com/stretchr/testify/require"

	"distq/internal/tree"
)

func mustItem(t *testing.T, id string, size int64, md map[string]any) Item {
	t.Helper()
	item, err := NewItem(id, size, md)
	require.NoError(t, err)
	return item
}

func TestSerializeLayout(t *testing.T) {
	item := mustItem(t, "pkg-1", 2048, map[string]any{
		RequestTypeKey: RequestAdd,
		"paths":        "/content/a",
		"retries":      3,
	})
	props := Serialize(item)
	require.Equal(t, tree.Properties{
		"distribution.item.id":      "pkg-1",
		"distribution.package.size": int64(2048),
		"distribution.request.type": "ADD",
		"distribution.paths":        "/content/a",
		"distribution.retries":      int64(3),
	}, props)
}

func TestSerializeRoundTrip(t *testing.T) {
	item := mustItem(t, "pkg-2", -1, map[string]any{
		RequestTypeKey: RequestDelete,
		"ratio":        0.25,
		"deep":         true,
		"count":        uint16(9),
		"name":         "x",
	})

	back, err := Deserialize(Serialize(item))
	require.NoError(t, err)
	require.Equal(t, item.PackageID(), back.PackageID())
	require.Equal(t, item.Size(), back.Size())
	require.Equal(t, item.Metadata(), back.Metadata())

	rt, ok := back.RequestType()
	require.True(t, ok)
	require.Equal(t, RequestDelete, rt)
}

func TestSerializeRoundTripThroughPropertyCodec(t *testing.T) {
	item := mustItem(t, "pkg-3", 77, map[string]any{RequestTypeKey: "TEST", "n": int64(-4), "f": 1.5})

	raw, err := tree.MarshalProperties(Serialize(item))
	require.NoError(t, err)
	props, err := tree.UnmarshalProperties(raw)
	require.NoError(t, err)

	back, err := Deserialize(props)
	require.NoError(t, err)
	require.Equal(t, item.Metadata(), back.Metadata())
	require.Equal(t, int64(77), back.Size())
}

func TestDeserializeDefaultsAndFilters(t *testing.T) {
	item, err := Deserialize(tree.Properties{
		"distribution.item.id":   "pkg-4",
		"distq:resourceType":     ItemType,
		"jcr:created":            "yesterday",
		"distribution.note":      "kept",
		"distribution.":          "empty name",
		"distribution.requester": "admin",
	})
	require.NoError(t, err)
	require.Equal(t, UnknownSize, item.Size())
	require.Equal(t, map[string]any{"note": "kept", "requester": "admin"}, item.Metadata())

	item, err = Deserialize(tree.Properties{
		"distribution.item.id":      "pkg-5",
		"distribution.package.size": "large",
	})
	require.NoError(t, err)
	require.Equal(t, UnknownSize, item.Size())
}

func TestDeserializeRejectsUnknownRequestType(t *testing.T) {
	_, err := Deserialize(tree.Properties{
		"distribution.item.id":      "pkg-6",
		"distribution.request.type": "UPSERT",
	})
	require.ErrorIs(t, err, ErrUnknownRequestType)
}

func TestDeserializeRequiresPackageID(t *testing.T) {
	_, err := Deserialize(tree.Properties{"distribution.package.size": int64(1)})
	require.ErrorIs(t, err, ErrInvalidItem)
}

func TestNewItemValidation(t *testing.T) {
	_, err := NewItem("", 0, nil)
	require.ErrorIs(t, err, ErrInvalidItem)

	_, err = NewItem("p", 0, map[string]any{"bad": struct{}{}})
	require.ErrorIs(t, err, ErrInvalidItem)

	_, err = NewItem("p", 0, map[string]any{"other": RequestPull})
	require.ErrorIs(t, err, ErrInvalidItem)

	_, err = NewItem("p", 0, map[string]any{RequestTypeKey: "NOPE"})
	require.ErrorIs(t, err, ErrUnknownRequestType)

	_, err = NewItem("p", 0, map[string]any{RequestTypeKey: 3})
	require.ErrorIs(t, err, ErrInvalidItem)

	for _, key := range []string{"item.id", "package.size"} {
		_, err = NewItem("p", 5, map[string]any{key: "user-value"})
		require.ErrorIs(t, err, ErrInvalidItem, key)
	}
}

func TestRoundTripKeepsKeysNearReservedNames(t *testing.T) {
	item := mustItem(t, "pkg-1", 5, map[string]any{"item.idx": "a", "package": int64(2)})
	out, err := Deserialize(Serialize(item))
	require.NoError(t, err)
	require.Equal(t, item.Metadata(), out.Metadata())
	require.Equal(t, "pkg-1", out.PackageID())
	require.Equal(t, int64(5), out.Size())
}

func TestItemIsImmutable(t *testing.T) {
	md := map[string]any{"b": "2", "a": int8(1), "gone": nil}
	item := mustItem(t, "p", 10, md)
	md["b"] = "changed"

	v, ok := item.Get("b")
	require.True(t, ok)
	require.Equal(t, "2", v)
	_, ok = item.Get("gone")
	require.False(t, ok)
	require.Equal(t, []string{"a", "b"}, item.Keys())

	copied := item.Metadata()
	copied["a"] = "mutated"
	v, _ = item.Get("a")
	require.Equal(t, int64(1), v)
}

func TestParseRequestType(t *testing.T) {
	for _, rt := range []RequestType{RequestAdd, RequestDelete, RequestPull, RequestTest, RequestInvalidate} {
		got, err := ParseRequestType(rt.String())
		require.NoError(t, err)
		require.Equal(t, rt, got)
	}
	_, err := ParseRequestType("add")
	require.ErrorIs(t, err, ErrUnknownRequestType)
}
