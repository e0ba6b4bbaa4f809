package checkout

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/opiegroup/atomictawk-sub002/internal/catalog"
)

// Stripe allows 50 metadata keys per object and 500 characters per value.
const (
	maxMetadataKeys  = 50
	maxMetadataValue = 500
	keysPerItem      = 6

	// MaxItems is the number of line items one session's metadata can carry.
	MaxItems = (maxMetadataKeys - 1) / keysPerItem

	// NoVariant stands in for an empty value; Stripe drops empty values.
	// A real value that equals NoVariant or starts with valueEscape is
	// written with valueEscape prepended.
	NoVariant   = "N/A"
	valueEscape = `\`
)

const (
	keyItemCount = "itemCount"

	fieldProductID = "productId"
	fieldSlug      = "slug"
	fieldSize      = "size"
	fieldQuantity  = "quantity"
	fieldName      = "name"
	fieldPrice     = "price"
)

var ErrCorruptMetadata = errors.New("corrupt checkout metadata")

// Metadata is the flat key/value map attached to a checkout session. It is the
// only record of order contents between session creation and fulfillment.
type Metadata map[string]string

// LineItem is one entry reconstructed from Metadata.
type LineItem struct {
	ProductID           string
	Slug                string
	Variant             string
	Quantity            int
	Name                string
	UnitPriceMinorUnits int64
}

// MetadataError describes the first key that could not be decoded.
type MetadataError struct {
	Key    string
	Reason string
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrCorruptMetadata, e.Key, e.Reason)
}

func (e *MetadataError) Unwrap() error { return ErrCorruptMetadata }

func itemKey(i int, field string) string {
	return fmt.Sprintf("item_%d_%s", i, field)
}

// EncodeMetadata always produces itemCount plus a contiguous run of indexes
// starting at 0, in request order.
func EncodeMetadata(items []catalog.PricedLineItem) Metadata {
	md := make(Metadata, 1+len(items)*keysPerItem)
	md[keyItemCount] = strconv.Itoa(len(items))
	for i, it := range items {
		md[itemKey(i, fieldProductID)] = encodeValue(it.ProductID)
		md[itemKey(i, fieldSlug)] = encodeValue(it.Slug)
		md[itemKey(i, fieldSize)] = encodeValue(it.Variant)
		md[itemKey(i, fieldQuantity)] = strconv.Itoa(it.Quantity)
		md[itemKey(i, fieldName)] = encodeName(it.Name)
		md[itemKey(i, fieldPrice)] = strconv.FormatInt(it.UnitPriceMinorUnits, 10)
	}
	return md
}

// DecodeMetadata fails on the first missing or malformed key; it never returns
// a partial item list. Only a missing key is corrupt for slug, size and name.
func DecodeMetadata(md Metadata) ([]LineItem, error) {
	raw, ok := md[keyItemCount]
	if !ok {
		return nil, &MetadataError{Key: keyItemCount, Reason: "missing"}
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count < 1 {
		return nil, &MetadataError{Key: keyItemCount, Reason: fmt.Sprintf("invalid value %q", raw)}
	}

	items := make([]LineItem, 0, count)
	for i := 0; i < count; i++ {
		fields := make(map[string]string, keysPerItem)
		for _, f := range []string{fieldProductID, fieldSlug, fieldSize, fieldQuantity, fieldName, fieldPrice} {
			v, ok := md[itemKey(i, f)]
			if !ok {
				return nil, &MetadataError{Key: itemKey(i, f), Reason: "missing"}
			}
			fields[f] = decodeValue(v)
		}
		if fields[fieldProductID] == "" {
			return nil, &MetadataError{Key: itemKey(i, fieldProductID), Reason: "empty"}
		}

		qty, err := strconv.Atoi(fields[fieldQuantity])
		if err != nil || qty <= 0 {
			return nil, &MetadataError{Key: itemKey(i, fieldQuantity), Reason: fmt.Sprintf("invalid value %q", fields[fieldQuantity])}
		}
		price, err := strconv.ParseInt(fields[fieldPrice], 10, 64)
		if err != nil || price < 0 {
			return nil, &MetadataError{Key: itemKey(i, fieldPrice), Reason: fmt.Sprintf("invalid value %q", fields[fieldPrice])}
		}

		items = append(items, LineItem{
			ProductID:           fields[fieldProductID],
			Slug:                fields[fieldSlug],
			Variant:             fields[fieldSize],
			Quantity:            qty,
			Name:                fields[fieldName],
			UnitPriceMinorUnits: price,
		})
	}
	return items, nil
}

func encodeValue(v string) string {
	switch {
	case v == "":
		return NoVariant
	case v == NoVariant, strings.HasPrefix(v, valueEscape):
		return valueEscape + v
	default:
		return v
	}
}

func decodeValue(v string) string {
	switch {
	case v == NoVariant:
		return ""
	case strings.HasPrefix(v, valueEscape):
		return v[len(valueEscape):]
	default:
		return v
	}
}

// encodeName keeps the encoded name within the provider's value limit.
func encodeName(name string) string {
	v := encodeValue(truncate(name, maxMetadataValue))
	if utf8.RuneCountInString(v) > maxMetadataValue {
		v = encodeValue(truncate(name, maxMetadataValue-1))
	}
	return v
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
