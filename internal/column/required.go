package column

import "github.com/apache/arrow-go/v18/arrow"

// RequiredKey is the field metadata key that makes a column reject rows
// whose value is missing or null. Arrow's Nullable flag alone never rejects
// a row: a plain field left at Nullable false still receives nulls.
const RequiredKey = "fastjsonl.required"

// Required reports whether f carries RequiredKey set to "true".
func Required(f arrow.Field) bool {
	i := f.Metadata.FindKey(RequiredKey)
	return i >= 0 && f.Metadata.Values()[i] == "true"
}

// RequiredField returns a non-nullable field marked with RequiredKey.
func RequiredField(name string, dt arrow.DataType) arrow.Field {
	return arrow.Field{
		Name:     name,
		Type:     dt,
		Metadata: arrow.NewMetadata([]string{RequiredKey}, []string{"true"}),
	}
}
