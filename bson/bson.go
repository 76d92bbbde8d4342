// Package bson carries arbor values as BSON element trees.
package bson

import (
	"github.com/zoobzio/arbor"
	"github.com/zoobzio/arbor/tree"
	"go.mongodb.org/mongo-driver/bson"
)

// New returns a BSON codec.
func New(opts ...arbor.Option) arbor.Codec {
	return tree.NewSnapshotCodec("application/bson", bson.Marshal, bson.Unmarshal, opts...)
}
