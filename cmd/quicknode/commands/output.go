package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// formatter writes command results in the selected format
type formatter func(w io.Writer, v any) error

func newFormatter(format string) (formatter, error) {
	switch format {
	case "json", "":
		return writeJSON, nil
	case "yaml", "yml":
		return writeYAML, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (want json or yaml)", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeYAML goes through JSON first so field names and embedded structs match the
// JSON output and the API.
func writeYAML(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("failed to decode value: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}

// print writes v to the command's stdout in the selected format
func (o *options) print(w io.Writer, v any) error {
	f, err := newFormatter(o.output)
	if err != nil {
		return err
	}
	return f(w, v)
}
