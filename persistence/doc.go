// Package persistence frames serialized index configurations for storage.
//
// A frame is a fixed little-endian header followed by the payload:
//
//	offset size field
//	0      4    magic "LSHC"
//	4      2    format version
//	6      1    compression (0 none, 1 lz4, 2 zstd)
//	7      4    CRC32C of the stored payload
//	11     4    stored payload length
//	15     4    uncompressed payload length
//	19     n    payload
//
// The payload is the JSON-encoded lsh.Record. The checksum covers the bytes
// as stored, so corruption is reported before any decompression is attempted.
package persistence
