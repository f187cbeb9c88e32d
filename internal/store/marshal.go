package store

import (
	"fmt"

	"github.com/roach88/fieldreg/internal/ir"
)

// marshalArgs converts Args to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalArgs(args ir.Args) (string, error) {
	if args == nil {
		args = ir.Args{}
	}
	data, err := ir.MarshalCanonical(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

// marshalResult converts a completion result to canonical JSON TEXT.
func marshalResult(result ir.Args) (string, error) {
	if result == nil {
		result = ir.Args{}
	}
	data, err := ir.MarshalCanonical(result)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}

// unmarshalArgs parses canonical JSON TEXT to Args. Integers come back as
// json.Number so values above 2^53 survive.
func unmarshalArgs(data string) (ir.Args, error) {
	args, err := ir.DecodeArgs([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	return args, nil
}

// unmarshalResult parses canonical JSON TEXT to a completion result.
func unmarshalResult(data string) (ir.Args, error) {
	result, err := ir.DecodeArgs([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, nil
}
