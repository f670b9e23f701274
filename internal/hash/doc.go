// Package hash holds the CRC32-Castagnoli helpers shared by config snapshot
// frames and S3 uploads.
//
//	sum := hash.CRC32C(frame)
//
// S3 conditional writes send hash.CRC32CBase64(body) as the object checksum.
package hash
