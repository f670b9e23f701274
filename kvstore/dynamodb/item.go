package dynamodb

import (
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/lshvec/kvstore"
)

func keyOf(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		kvstore.AttrID: &types.AttributeValueMemberS{Value: id},
	}
}

func encodeItem(r kvstore.Record) (map[string]types.AttributeValue, error) {
	if err := kvstore.ValidateRecord(r); err != nil {
		return nil, err
	}

	item := keyOf(r.ID)
	if r.Vector != nil {
		item[kvstore.AttrVector] = &types.AttributeValueMemberB{Value: kvstore.EncodeVector(r.Vector)}
	}
	if r.Metadata != nil {
		b, err := kvstore.EncodeMetadata(r.Metadata)
		if err != nil {
			return nil, err
		}
		item[kvstore.AttrMetadata] = &types.AttributeValueMemberB{Value: b}
	}
	if r.Data != nil {
		item[kvstore.AttrData] = &types.AttributeValueMemberB{Value: r.Data}
	}
	// Empty sets are not allowed in DynamoDB; NormalizeSets drops them.
	for col, vals := range kvstore.NormalizeSets(r.Sets) {
		item[col] = &types.AttributeValueMemberSS{Value: vals}
	}
	return item, nil
}

func decodeItem(item map[string]types.AttributeValue) (kvstore.Record, error) {
	var r kvstore.Record
	for name, av := range item {
		switch name {
		case kvstore.AttrID:
			v, ok := av.(*types.AttributeValueMemberS)
			if !ok {
				return kvstore.Record{}, fmt.Errorf("dynamodb: attribute %q has type %T", name, av)
			}
			r.ID = v.Value
		case kvstore.AttrVector, kvstore.AttrMetadata, kvstore.AttrData:
			v, ok := av.(*types.AttributeValueMemberB)
			if !ok {
				return kvstore.Record{}, fmt.Errorf("dynamodb: attribute %q has type %T", name, av)
			}
			if err := decodeBinary(&r, name, v.Value); err != nil {
				return kvstore.Record{}, err
			}
		default:
			// Attributes of other types belong to someone else.
			v, ok := av.(*types.AttributeValueMemberSS)
			if !ok {
				continue
			}
			if r.Sets == nil {
				r.Sets = make(map[string][]string)
			}
			vals := slices.Clone(v.Value)
			slices.Sort(vals)
			r.Sets[name] = vals
		}
	}
	if r.ID == "" {
		return kvstore.Record{}, fmt.Errorf("dynamodb: item without %q attribute", kvstore.AttrID)
	}
	return r, nil
}

func decodeBinary(r *kvstore.Record, name string, b []byte) error {
	var err error
	switch name {
	case kvstore.AttrVector:
		r.Vector, err = kvstore.DecodeVector(b)
	case kvstore.AttrMetadata:
		r.Metadata, err = kvstore.DecodeMetadata(b)
	case kvstore.AttrData:
		r.Data = slices.Clone(b)
	}
	return err
}
