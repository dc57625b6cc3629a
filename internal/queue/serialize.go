package queue

import (
	"fmt"
	"strings"

	"distq/internal/tree"
)

// Property names on item nodes. Item metadata lives under PropertyPrefix so
// it never collides with store-owned properties.
const (
	PropertyPrefix      = "distribution."
	PropertyPackageID   = PropertyPrefix + "item.id"
	PropertyPackageSize = PropertyPrefix + "package.size"

	propertyRequestType = PropertyPrefix + RequestTypeKey
)

// UnknownSize is the size of an item whose size was never recorded.
const UnknownSize int64 = -1

// Serialize flattens item into node properties.
func Serialize(item Item) tree.Properties {
	props := make(tree.Properties, len(item.metadata)+2)
	for key, value := range item.metadata {
		if rt, ok := value.(RequestType); ok {
			value = rt.String()
		}
		props[PropertyPrefix+key] = value
	}
	props[PropertyPackageID] = item.packageID
	props[PropertyPackageSize] = item.size
	return props
}

// Deserialize rebuilds an item from node properties. Properties without the
// item prefix are ignored and a missing or non-integer size reads as
// UnknownSize. An unrecognized request type name is an error.
func Deserialize(props tree.Properties) (Item, error) {
	packageID, _ := props.String(PropertyPackageID)
	if packageID == "" {
		return Item{}, fmt.Errorf("%w: %s missing", ErrInvalidItem, PropertyPackageID)
	}
	size, ok := props.Int64(PropertyPackageSize)
	if !ok {
		size = UnknownSize
	}

	md := make(map[string]any, len(props))
	for key, value := range props {
		if key == PropertyPackageID || key == PropertyPackageSize {
			continue
		}
		name, ok := strings.CutPrefix(key, PropertyPrefix)
		if !ok || name == "" || value == nil {
			continue
		}
		if key == propertyRequestType {
			s, _ := value.(string)
			rt, err := ParseRequestType(s)
			if err != nil {
				return Item{}, fmt.Errorf("deserialize %s: %w", key, err)
			}
			value = rt
		}
		md[name] = value
	}
	return Item{packageID: packageID, size: size, metadata: md}, nil
}
