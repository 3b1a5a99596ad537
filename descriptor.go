package fontpack

import (
	"bytes"
	"encoding/json"
	"os"
)

// LoadDescriptor reads a JSON package descriptor from path and validates it.
func LoadDescriptor(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, WrapError(err, EMISSING, "%s is not found.", path)
		}
		return nil, err
	}
	return ParseDescriptor(data)
}

// ParseDescriptor decodes a JSON package descriptor and validates it.
// A top-level "$schema" key is accepted and ignored; any other unknown key is
// an error.
func ParseDescriptor(data []byte) (*Package, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, WrapError(err, EINVALID, "malformed package descriptor: %v", err)
	}
	delete(raw, "$schema")
	stripped, err := json.Marshal(raw)
	if err != nil {
		return nil, WrapError(err, EINTERNAL, "cannot re-encode descriptor: %v", err)
	}
	dec := json.NewDecoder(bytes.NewReader(stripped))
	dec.DisallowUnknownFields()
	pkg := &Package{}
	if err := dec.Decode(pkg); err != nil {
		return nil, WrapError(err, EINVALID, "invalid package descriptor: %v", err)
	}
	if err := pkg.Validate(); err != nil {
		return nil, err
	}
	return pkg, nil
}
