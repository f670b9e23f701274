// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "lshvec/")
//
// # Features
//
//   - Multipart uploads for large snapshots (feature/s3/manager)
//   - CRC32C integrity checksums on upload
//   - Conditional create via If-None-Match
//   - Automatic pagination for listing
package s3
