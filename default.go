package arbor

// Defaulter allows types to provide the value decoding starts from.
//
// Fields absent from the input keep their default:
//
//	func (c Config) Default() Config {
//	    return Config{Retries: 3, Mode: "safe"}
//	}
//
// A Processor calls Default before every decode.
type Defaulter[T any] interface {
	Default() T
}
