package queue

import (
	"fmt"
	"maps"
	"slices"

	"distq/internal/tree"
)

// RequestType is the kind of distribution request an item carries.
type RequestType string

const (
	RequestAdd        RequestType = "ADD"
	RequestDelete     RequestType = "DELETE"
	RequestPull       RequestType = "PULL"
	RequestTest       RequestType = "TEST"
	RequestInvalidate RequestType = "INVALIDATE"
)

var requestTypes = []RequestType{
	RequestAdd,
	RequestDelete,
	RequestPull,
	RequestTest,
	RequestInvalidate,
}

func (r RequestType) String() string { return string(r) }

// ParseRequestType resolves a symbolic request type name.
func ParseRequestType(name string) (RequestType, error) {
	for _, rt := range requestTypes {
		if string(rt) == name {
			return rt, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRequestType, name)
}

// RequestTypeKey is the metadata key holding the request type.
const RequestTypeKey = "request.type"

// Item is an immutable queued distribution package reference.
type Item struct {
	packageID string
	size      int64
	metadata  map[string]any
}

// NewItem validates and copies metadata into a new Item. Metadata values
// must be scalars; nil values are dropped. The request type key accepts a
// RequestType or its name.
func NewItem(packageID string, size int64, metadata map[string]any) (Item, error) {
	if packageID == "" {
		return Item{}, fmt.Errorf("%w: package id is required", ErrInvalidItem)
	}
	md := make(map[string]any, len(metadata))
	for key, value := range metadata {
		if value == nil {
			continue
		}
		if key == "" {
			return Item{}, fmt.Errorf("%w: empty metadata key", ErrInvalidItem)
		}
		if isReservedKey(key) {
			return Item{}, fmt.Errorf("%w: metadata key %q is reserved", ErrInvalidItem, key)
		}
		if key == RequestTypeKey {
			rt, err := requestTypeValue(value)
			if err != nil {
				return Item{}, err
			}
			md[key] = rt
			continue
		}
		if _, ok := value.(RequestType); ok {
			return Item{}, fmt.Errorf("%w: request type value under key %q", ErrInvalidItem, key)
		}
		normalized, err := tree.NormalizeValue(value)
		if err != nil {
			return Item{}, fmt.Errorf("%w: metadata %q: %v", ErrInvalidItem, key, err)
		}
		md[key] = normalized
	}
	return Item{packageID: packageID, size: size, metadata: md}, nil
}

// isReservedKey reports whether key would serialize onto a property the
// item itself owns.
func isReservedKey(key string) bool {
	prop := PropertyPrefix + key
	return prop == PropertyPackageID || prop == PropertyPackageSize
}

func requestTypeValue(value any) (RequestType, error) {
	switch v := value.(type) {
	case RequestType:
		return ParseRequestType(string(v))
	case string:
		return ParseRequestType(v)
	default:
		return "", fmt.Errorf("%w: %s must be a request type, got %T", ErrInvalidItem, RequestTypeKey, value)
	}
}

// PackageID returns the distribution package id.
func (i Item) PackageID() string { return i.packageID }

// Size returns the package size in bytes, -1 when unknown.
func (i Item) Size() int64 { return i.size }

// Get returns a metadata value.
func (i Item) Get(key string) (any, bool) {
	v, ok := i.metadata[key]
	return v, ok
}

// Keys returns the metadata keys in sorted order.
func (i Item) Keys() []string {
	return slices.Sorted(maps.Keys(i.metadata))
}

// Metadata returns a copy of the metadata.
func (i Item) Metadata() map[string]any {
	return maps.Clone(i.metadata)
}

// RequestType returns the request type, if the item carries one.
func (i Item) RequestType() (RequestType, bool) {
	rt, ok := i.metadata[RequestTypeKey].(RequestType)
	return rt, ok
}
