package output

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// yamlOutput is the document written by YAMLFormatter.
type yamlOutput struct {
	Result   `yaml:",inline"`
	Duration string `yaml:"duration"`
}

// YAMLFormatter formats output as YAML with the same fields as
// JSONFormatter.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(yamlOutput{Result: *r, Duration: r.Stats.Duration.String()}); err != nil {
		return err
	}
	return encoder.Close()
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
