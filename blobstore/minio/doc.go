// Package minio provides a blobstore.Store for MinIO and other
// S3-compatible object stores via github.com/minio/minio-go/v7.
//
// # Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	store := minioblob.NewStore(client, "lshvec", "configs/")
//
// PutIfNotExists checks for the object before writing it. The check and
// the write are separate requests, so two concurrent creators of the same
// name may both succeed; use the s3 package against AWS for a conditional
// write.
package minio
