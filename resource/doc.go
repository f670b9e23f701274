// Package resource bounds the load an index puts on its storage backend.
//
// A Controller caps the number of in-flight requests with a weighted
// semaphore and paces reads and writes with token-bucket limiters, which maps
// onto provisioned-capacity stores such as DynamoDB. A nil *Controller is
// valid and imposes no limits.
package resource
