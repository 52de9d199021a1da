package store

import (
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// normalizeItem decodes a raw DynamoDB item into native Go values with stable
// key casing. Numbers become float64 so items serialize to JSON the same way
// regardless of the stored numeric form.
func normalizeItem(raw map[string]types.AttributeValue) Item {
	item := make(Item, len(raw))
	for k, v := range raw {
		item[k] = normalizeValue(v)
	}
	return item
}

func normalizeValue(v types.AttributeValue) any {
	switch av := v.(type) {
	case *types.AttributeValueMemberS:
		return av.Value
	case *types.AttributeValueMemberN:
		f, err := strconv.ParseFloat(av.Value, 64)
		if err != nil {
			// Out-of-range or malformed numerics survive as their string form.
			return av.Value
		}
		return f
	case *types.AttributeValueMemberBOOL:
		return av.Value
	case *types.AttributeValueMemberNULL:
		return nil
	case *types.AttributeValueMemberL:
		list := make([]any, 0, len(av.Value))
		for _, el := range av.Value {
			list = append(list, normalizeValue(el))
		}
		return list
	case *types.AttributeValueMemberM:
		return map[string]any(normalizeItem(av.Value))
	case *types.AttributeValueMemberSS:
		list := make([]any, 0, len(av.Value))
		for _, s := range av.Value {
			list = append(list, s)
		}
		return list
	case *types.AttributeValueMemberNS:
		list := make([]any, 0, len(av.Value))
		for _, n := range av.Value {
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				list = append(list, f)
			} else {
				list = append(list, n)
			}
		}
		return list
	case *types.AttributeValueMemberB:
		return av.Value
	default:
		return nil
	}
}
