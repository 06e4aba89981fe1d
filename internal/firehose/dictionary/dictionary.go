// Package dictionary embeds the zstd dictionary the Jetstream firehose was
// trained against. Without it, compressed frames cannot be decompressed.
package dictionary

import _ "embed"

//go:embed jetstream.dict
var bytes []byte

// Bytes returns the embedded ~110 KiB zstd dictionary.
func Bytes() []byte {
	return bytes
}
