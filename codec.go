package chartz

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Codec defines the deserialization contract for fetched payloads.
// Implement this interface to use alternative formats like TOML or CSV.
type Codec interface {
	// Unmarshal deserializes bytes into a value.
	Unmarshal(data []byte, v any) error

	// ContentType returns the MIME type, used as the Accept header by HTTP fetchers.
	ContentType() string
}

// JSONCodec implements Codec using encoding/json.
type JSONCodec struct{}

// Unmarshal deserializes JSON bytes into v.
func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// ContentType returns the JSON MIME type.
func (JSONCodec) ContentType() string {
	return "application/json"
}

var _ Codec = JSONCodec{}

// YAMLCodec implements Codec using gopkg.in/yaml.v3.
type YAMLCodec struct{}

// Unmarshal deserializes YAML bytes into v.
func (YAMLCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

// ContentType returns the YAML MIME type.
func (YAMLCodec) ContentType() string {
	return "application/x-yaml"
}

var _ Codec = YAMLCodec{}

// Decoder turns a raw payload into the value a Source publishes.
type Decoder[T any] func(raw []byte) (T, error)

// Decode returns the identity decoder: the payload is unmarshaled straight
// into T with no further shaping.
func Decode[T any](codec Codec) Decoder[T] {
	return func(raw []byte) (T, error) {
		var v T
		if err := codec.Unmarshal(raw, &v); err != nil {
			return v, err
		}
		return v, nil
	}
}

// Transform returns a decoder that unmarshals the payload into an
// intermediate shape R and converts it with fn. No schema is enforced on R;
// whatever the codec produces is handed to fn as-is.
//
//	src := chartz.NewSource[chartz.ChartData](url, fetcher).
//	    Decoder(chartz.Transform(chartz.JSONCodec{}, func(r []Bucket) (chartz.ChartData, error) {
//	        return bucketsToChart(r), nil
//	    }))
func Transform[R, T any](codec Codec, fn func(R) (T, error)) Decoder[T] {
	return func(raw []byte) (T, error) {
		var r R
		if err := codec.Unmarshal(raw, &r); err != nil {
			var zero T
			return zero, err
		}
		v, err := fn(r)
		if err != nil {
			return v, fmt.Errorf("transform: %w", err)
		}
		return v, nil
	}
}
