package hcl

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/mjlaunch/internal/config"
	"github.com/specialistvlad/mjlaunch/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Sources lists where overrides come from. Files are applied first, in
// order, then assignments, in order; later values win.
type Sources struct {
	Files       []string
	Assignments []string
}

// Load reads every source and combines them into one override tree. It
// returns cty.NilVal when there is nothing to override.
func Load(ctx context.Context, src Sources) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)
	tree := cty.NilVal
	for _, path := range src.Files {
		v, err := LoadFile(path)
		if err != nil {
			return cty.NilVal, err
		}
		logger.Debug("Loaded override file.", "path", path)
		tree = config.Overlay(tree, v)
	}
	for _, a := range src.Assignments {
		v, err := ParseAssignment(a)
		if err != nil {
			return cty.NilVal, err
		}
		tree = config.Overlay(tree, v)
	}
	return tree, nil
}

// LoadFile parses an override file. Attributes become leaves or nested
// objects; blocks become nested objects, and block labels address map keys,
// so `commands "twist" { resampling_time_s = 5 }` overrides
// env.commands["twist"] when written inside an env block.
func LoadFile(path string) (cty.Value, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to read override file: %w", err)
	}
	file, diags := hclsyntax.ParseConfig(src, path, hcl.InitialPos)
	if diags.HasErrors() {
		return cty.NilVal, &config.ConfigError{Msg: fmt.Sprintf("failed to parse override file %s: %s", path, diags.Error())}
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return cty.NilVal, fmt.Errorf("unexpected body type %T in %s", file.Body, path)
	}
	v, diags := bodyValue(body)
	if diags.HasErrors() {
		return cty.NilVal, &config.ConfigError{Msg: fmt.Sprintf("failed to evaluate override file %s: %s", path, diags.Error())}
	}
	return v, nil
}

func bodyValue(body *hclsyntax.Body) (cty.Value, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	attrs := map[string]cty.Value{}
	for name, attr := range body.Attributes {
		v, d := attr.Expr.Value(nil)
		diags = append(diags, d...)
		attrs[name] = v
	}
	for _, block := range body.Blocks {
		v, d := bodyValue(block.Body)
		diags = append(diags, d...)
		for i := len(block.Labels) - 1; i >= 0; i-- {
			v = cty.ObjectVal(map[string]cty.Value{block.Labels[i]: v})
		}
		attrs[block.Type] = config.Overlay(attrs[block.Type], v)
	}
	return cty.ObjectVal(attrs), diags
}

// ParseAssignment parses "dotted.path=value" into a nested override tree.
// The value is read as an HCL literal, template, tuple or object; anything
// else, such as a bare word, a file path or a date, is taken as a string.
func ParseAssignment(s string) (cty.Value, error) {
	key, raw, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return cty.NilVal, &config.ConfigError{Msg: fmt.Sprintf("override %q must have the form path=value", s)}
	}
	path := strings.Split(key, ".")
	for _, part := range path {
		if strings.TrimSpace(part) == "" {
			return cty.NilVal, &config.ConfigError{Path: key, Msg: "empty path segment"}
		}
	}
	v, err := parseValue(raw)
	if err != nil {
		return cty.NilVal, &config.ConfigError{Path: key, Msg: err.Error()}
	}
	for i := len(path) - 1; i >= 0; i-- {
		v = cty.ObjectVal(map[string]cty.Value{strings.TrimSpace(path[i]): v})
	}
	return v, nil
}

func parseValue(raw string) (cty.Value, error) {
	raw = strings.TrimSpace(raw)
	expr, diags := hclsyntax.ParseExpression([]byte(raw), "<override>", hcl.InitialPos)
	if diags.HasErrors() || !isLiteral(expr) {
		return cty.StringVal(raw), nil
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	return v, nil
}

// isLiteral reports whether expr is a value a user would type on purpose:
// literals, quoted templates, negated numbers and collection constructors.
func isLiteral(expr hclsyntax.Expression) bool {
	if len(expr.Variables()) > 0 {
		return false
	}
	switch e := expr.(type) {
	case *hclsyntax.LiteralValueExpr, *hclsyntax.TemplateExpr, *hclsyntax.TemplateWrapExpr:
		return true
	case *hclsyntax.UnaryOpExpr:
		return isLiteral(e.Val)
	case *hclsyntax.TupleConsExpr:
		for _, item := range e.Exprs {
			if !isLiteral(item) {
				return false
			}
		}
		return true
	case *hclsyntax.ObjectConsExpr:
		for _, item := range e.Items {
			if !isLiteral(item.ValueExpr) {
				return false
			}
		}
		return true
	}
	return false
}
