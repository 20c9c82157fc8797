package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cognicore/commonworks/pkg/commonworks/internalerr"
)

// Decode parses a wire document and checks the structure every run needs:
// a header with a sender id, a group-type registry and a group array.
// All failures are *internalerr.StructuralError.
func Decode(data []byte) (*Raw, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, structural(internalerr.ErrEmptyDocument)
	}

	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, structural(fmt.Errorf("malformed document: %w", err))
	}
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	return &raw, nil
}

// DecodeReader reads r fully and decodes it.
func DecodeReader(r io.Reader) (*Raw, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Decode(data)
}

// Validate checks the document-level structure.
func (r *Raw) Validate() error {
	if r.Header == nil && r.GroupTypes == nil && r.Groups == nil {
		return structural(internalerr.ErrEmptyDocument)
	}
	if r.Header == nil {
		return structural(internalerr.ErrMissingHeader)
	}
	if r.Header.SenderID == "" {
		return structural(internalerr.ErrMissingSubmitter)
	}
	if r.GroupTypes == nil {
		return structural(internalerr.ErrMissingGroupTypes)
	}
	if r.Groups == nil {
		return structural(internalerr.ErrMissingGroups)
	}
	return nil
}

func structural(err error) error {
	return &internalerr.StructuralError{Err: err}
}
