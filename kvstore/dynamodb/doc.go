// Package dynamodb implements kvstore.Store on Amazon DynamoDB.
//
// Each table has a single string partition key named "id". Vectors are
// stored as little-endian float32 binary attributes, metadata as JSON
// binary attributes and set columns as native string sets, so that
// UnionColumn is a single UpdateItem with an ADD action. DynamoDB applies
// ADD atomically, which makes concurrent bucket writers safe without
// conditional retries.
//
// Create a table with:
//
//	aws dynamodb create-table \
//	  --table-name myindex_vectors \
//	  --attribute-definitions AttributeName=id,AttributeType=S \
//	  --key-schema AttributeName=id,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
package dynamodb
