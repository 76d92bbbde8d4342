// Package yaml carries arbor values as YAML element trees.
package yaml

import (
	"github.com/zoobzio/arbor"
	"github.com/zoobzio/arbor/tree"
	"gopkg.in/yaml.v3"
)

// New returns a YAML codec.
func New(opts ...arbor.Option) arbor.Codec {
	return tree.NewSnapshotCodec("application/yaml", yaml.Marshal, yaml.Unmarshal, opts...)
}
