package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Canonicalize re-encodes a JSON document deterministically so that
// semantically identical payloads hash identically across runs: object
// keys are emitted in sorted order (Go marshals map keys sorted) and
// numbers keep their original textual form via json.Number, so no
// precision or formatting drift sneaks into the fingerprint.
func Canonicalize(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode JSON document: %w", err)
	}
	// Trailing garbage after the document is a malformed payload.
	if dec.More() {
		return nil, fmt.Errorf("unexpected trailing data after JSON document")
	}

	canonical, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("re-encode JSON document: %w", err)
	}
	return canonical, nil
}
