package protocol

import "strings"

const (
	arrayPrefix    = "ARRAY::"
	arraySeparator = "|:"
)

// Array is a multi-valued header, written on the wire as
// ARRAY::first|:second|:third.
type Array []string

// ParseArray decodes an ARRAY:: value. It returns false when the prefix is
// missing.
func ParseArray(s string) (Array, bool) {
	if !strings.HasPrefix(s, arrayPrefix) {
		return nil, false
	}

	return Array(strings.Split(s[len(arrayPrefix):], arraySeparator)), true
}

func (a Array) String() string {
	return arrayPrefix + strings.Join(a, arraySeparator)
}

// Push appends v.
func (a *Array) Push(v string) {
	*a = append(*a, v)
}

// Unshift prepends v.
func (a *Array) Unshift(v string) {
	*a = append(Array{v}, *a...)
}

// Part is one item of a multipart body. Items are written "mime/type:data".
type Part struct {
	MimeType string
	Data     string
}

// Multipart is an ARRAY:: value whose items are typed parts.
type Multipart []Part

// ParseMultipart decodes an ARRAY:: value of "mime/type:data" items. Items
// without a ':' are skipped.
func ParseMultipart(s string) (Multipart, bool) {
	items, ok := ParseArray(s)
	if !ok {
		return nil, false
	}

	parts := make(Multipart, 0, len(items))
	for _, item := range items {
		mime, data, found := strings.Cut(item, ":")
		if !found {
			continue
		}

		parts = append(parts, Part{MimeType: mime, Data: data})
	}

	return parts, true
}

// ByMimeType returns the data of every part with the given type, in order.
func (m Multipart) ByMimeType(mime string) []string {
	var out []string
	for _, p := range m {
		if p.MimeType == mime {
			out = append(out, p.Data)
		}
	}

	return out
}
