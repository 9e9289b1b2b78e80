package results

import (
	"encoding/json"
	"fmt"
	"os"
)

// encode renders the document with the indentation the CLI and the stored
// report files share.
func encode(r *Results) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}
	return data, nil
}

// WriteJSON stores the result document at path.
func WriteJSON(r *Results, path string) error {
	data, err := encode(r)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadJSON loads a result document previously stored with WriteJSON.
func ReadJSON(path string) (*Results, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return FromJSON(string(data))
}

// ToJSON renders the document as an indented JSON string.
func ToJSON(r *Results) (string, error) {
	data, err := encode(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FromJSON parses a result document from its JSON form.
func FromJSON(s string) (*Results, error) {
	var r Results
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return &r, nil
}
