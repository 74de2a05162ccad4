package client

import (
	"encoding/base64"
	"fmt"

	"github.com/diwise/record-mirror/pkg/mirror/entities"
	"github.com/diwise/record-mirror/pkg/mirror/errors"
	"github.com/diwise/record-mirror/pkg/mirror/types"
)

// Reserved keys in the wire representation of a record. Scalars are sent
// as plain JSON values, references and byte blobs as __type tagged
// objects, and the access policy under the __acl key.
const (
	typeTagKey string = "__type"
	policyKey  string = "__acl"

	typeTagPointer string = "Pointer"
	typeTagBytes   string = "Bytes"
)

func encodeFields(cs *entities.Changeset) map[string]any {
	encoded := make(map[string]any, len(cs.Fields)+1)

	for name, value := range cs.Fields {
		encoded[name] = encodeValue(value)
	}

	if cs.PolicyChanged {
		if cs.Policy != nil {
			encoded[policyKey] = map[string]any(cs.Policy)
		} else {
			// an explicit null detaches the policy server side
			encoded[policyKey] = nil
		}
	}

	return encoded
}

func encodeValue(value types.Value) any {
	switch value.Kind() {
	case types.KindBytes:
		b, _ := value.Bytes()
		return map[string]any{
			typeTagKey: typeTagBytes,
			"base64":   base64.StdEncoding.EncodeToString(b),
		}
	case types.KindReference:
		ref, _ := value.Reference()
		identity, _ := ref.Resolve()
		return map[string]any{
			typeTagKey: typeTagPointer,
			"kind":     ref.Kind(),
			"identity": identity,
		}
	default:
		return value.Contents()
	}
}

func decodeFields(fields map[string]any) (map[string]types.Value, error) {
	decoded := make(map[string]types.Value, len(fields))

	for name, contents := range fields {
		if name == policyKey {
			continue
		}

		value, err := decodeValue(contents)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}

		decoded[name] = value
	}

	return decoded, nil
}

func decodeValue(contents any) (types.Value, error) {
	switch v := contents.(type) {
	case string:
		return types.Text(v), nil
	case float64:
		return types.Number(v), nil
	case bool:
		return types.Bool(v), nil
	case map[string]any:
		return decodeTaggedValue(v)
	default:
		return types.Value{}, errors.NewRemoteError(
			fmt.Sprintf("unsupported value of type %T in record", contents), nil,
		)
	}
}

func decodeTaggedValue(obj map[string]any) (types.Value, error) {
	tag, ok := obj[typeTagKey].(string)
	if !ok {
		return types.Value{}, errors.NewRemoteError("missing type tag on object value", nil)
	}

	switch tag {
	case typeTagBytes:
		encoded, _ := obj["base64"].(string)
		b, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return types.Value{}, errors.NewRemoteError(
				fmt.Sprintf("invalid base64 contents: %s", err.Error()), err,
			)
		}
		return types.Bytes(b), nil
	case typeTagPointer:
		kind, _ := obj["kind"].(string)
		identity, _ := obj["identity"].(string)
		if kind == "" || identity == "" {
			return types.Value{}, errors.NewRemoteError("pointer value lacks kind or identity", nil)
		}
		return types.EntityRef(types.ResolvedReference(kind, identity)), nil
	default:
		return types.Value{}, errors.NewRemoteError(
			fmt.Sprintf("unsupported type tag %q", tag), nil,
		)
	}
}
