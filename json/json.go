// Package json carries arbor values as JSON element trees.
package json

import (
	"github.com/goccy/go-json"
	"github.com/zoobzio/arbor"
	"github.com/zoobzio/arbor/tree"
)

// New returns a JSON codec.
func New(opts ...arbor.Option) arbor.Codec {
	return tree.NewSnapshotCodec("application/json", json.Marshal, json.Unmarshal, opts...)
}
