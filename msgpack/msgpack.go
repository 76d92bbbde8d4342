// Package msgpack carries arbor values as MessagePack element trees.
package msgpack

import (
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zoobzio/arbor"
	"github.com/zoobzio/arbor/tree"
)

// New returns a MessagePack codec.
func New(opts ...arbor.Option) arbor.Codec {
	return tree.NewSnapshotCodec("application/msgpack", msgpack.Marshal, msgpack.Unmarshal, opts...)
}
