package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainInvocation = "fieldreg/invocation/v1"
	DomainCompletion = "fieldreg/completion/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// InvocationID computes the content-addressed id of an invocation.
//
// The caller and height are part of the id: unlike a pure request, a
// registry action's meaning depends on who ran it and when (ownership
// checks, registration and transfer dates).
func InvocationID(token string, action ActionRef, args Args, caller Principal, height, seq int64) (string, error) {
	if args == nil {
		args = Args{}
	}
	obj := map[string]any{
		"token":  token,
		"action": string(action),
		"args":   args,
		"caller": string(caller),
		"height": height,
		"seq":    seq,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("InvocationID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainInvocation, canonical), nil
}

// CompletionID computes the content-addressed id of a completion.
func CompletionID(invocationID, outputCase string, code int, result Args, seq int64) (string, error) {
	if result == nil {
		result = Args{}
	}
	obj := map[string]any{
		"invocation_id": invocationID,
		"output_case":   outputCase,
		"code":          code,
		"result":        result,
		"seq":           seq,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("CompletionID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainCompletion, canonical), nil
}

// MustInvocationID is like InvocationID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustInvocationID(token string, action ActionRef, args Args, caller Principal, height, seq int64) string {
	id, err := InvocationID(token, action, args, caller, height, seq)
	if err != nil {
		panic(err)
	}
	return id
}
