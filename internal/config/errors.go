package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// ConfigError reports an invalid or inconsistent configuration value. Path is
// the dotted field path of the offending value, when one applies.
type ConfigError struct {
	Path string
	Msg  string
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return "invalid configuration: " + e.Msg
	}
	return fmt.Sprintf("invalid configuration at %s: %s", e.Path, e.Msg)
}

func errorf(path []string, format string, args ...any) *ConfigError {
	return &ConfigError{Path: strings.Join(path, "."), Msg: fmt.Sprintf(format, args...)}
}

// formatCtyPath renders a cty.Path the same way override paths are written.
func formatCtyPath(p cty.Path) string {
	var b strings.Builder
	for _, step := range p {
		switch s := step.(type) {
		case cty.GetAttrStep:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(s.Name)
		case cty.IndexStep:
			switch s.Key.Type() {
			case cty.String:
				fmt.Fprintf(&b, "[%q]", s.Key.AsString())
			case cty.Number:
				fmt.Fprintf(&b, "[%s]", s.Key.AsBigFloat().Text('f', -1))
			}
		}
	}
	return b.String()
}

// decodeError turns a gocty decoding failure into a ConfigError.
func decodeError(err error) error {
	var pe cty.PathError
	if errors.As(err, &pe) {
		return &ConfigError{Path: formatCtyPath(pe.Path), Msg: pe.Error()}
	}
	return &ConfigError{Msg: err.Error()}
}
