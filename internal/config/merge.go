package config

import (
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Merge overlays override onto base and returns the merged tree, which always
// has the type of base.
//
// Objects merge attribute by attribute and maps merge key by key; attributes
// missing from override keep their base value. Every other value is a leaf
// and is replaced after conversion to the base type. Overriding an attribute
// the base does not declare is an error.
func Merge(base, override cty.Value) (cty.Value, error) {
	return merge(nil, base, override)
}

func merge(path []string, base, override cty.Value) (cty.Value, error) {
	if override.IsNull() {
		return cty.NilVal, errorf(path, "null is not a valid override")
	}
	if !override.IsWhollyKnown() {
		return cty.NilVal, errorf(path, "override value must be known")
	}
	ty := base.Type()
	switch {
	case base.IsNull():
		return mergeLeaf(path, base, override)
	case ty.IsObjectType():
		return mergeObject(path, base, override)
	case ty.IsMapType():
		return mergeMap(path, base, override)
	default:
		return mergeLeaf(path, base, override)
	}
}

func mergeObject(path []string, base, override cty.Value) (cty.Value, error) {
	if !isObjectLike(override.Type()) {
		return cty.NilVal, errorf(path, "expected an object, got %s", override.Type().FriendlyName())
	}
	attrs := base.AsValueMap()
	if attrs == nil {
		attrs = map[string]cty.Value{}
	}
	for it := override.ElementIterator(); it.Next(); {
		k, v := it.Element()
		name := k.AsString()
		child := appendPath(path, name)
		cur, ok := attrs[name]
		if !ok {
			return cty.NilVal, errorf(child, "unknown field")
		}
		merged, err := merge(child, cur, v)
		if err != nil {
			return cty.NilVal, err
		}
		attrs[name] = merged
	}
	return cty.ObjectVal(attrs), nil
}

func mergeMap(path []string, base, override cty.Value) (cty.Value, error) {
	if !isObjectLike(override.Type()) {
		return cty.NilVal, errorf(path, "expected a map, got %s", override.Type().FriendlyName())
	}
	ety := base.Type().ElementType()
	entries := base.AsValueMap()
	if entries == nil {
		entries = map[string]cty.Value{}
	}
	for it := override.ElementIterator(); it.Next(); {
		k, v := it.Element()
		key := k.AsString()
		child := appendPath(path, key)
		if cur, ok := entries[key]; ok {
			merged, err := merge(child, cur, v)
			if err != nil {
				return cty.NilVal, err
			}
			entries[key] = merged
			continue
		}
		added, err := convert.Convert(v, ety)
		if err != nil {
			return cty.NilVal, errorf(child, "new entry is not a complete %s: %s", ety.FriendlyName(), err)
		}
		entries[key] = added
	}
	if len(entries) == 0 {
		return cty.MapValEmpty(ety), nil
	}
	return cty.MapVal(entries), nil
}

func mergeLeaf(path []string, base, override cty.Value) (cty.Value, error) {
	v, err := convert.Convert(override, base.Type())
	if err != nil {
		return cty.NilVal, errorf(path, "cannot use %s as %s", override.Type().FriendlyName(), base.Type().FriendlyName())
	}
	return v, nil
}

// Overlay combines two partial override trees. Where both sides are objects
// or maps they are combined recursively; otherwise b wins. Either side may be
// cty.NilVal.
func Overlay(a, b cty.Value) cty.Value {
	if a == cty.NilVal || a.IsNull() {
		return b
	}
	if b == cty.NilVal {
		return a
	}
	if b.IsNull() || !isObjectLike(a.Type()) || !isObjectLike(b.Type()) {
		return b
	}
	attrs := map[string]cty.Value{}
	for it := a.ElementIterator(); it.Next(); {
		k, v := it.Element()
		attrs[k.AsString()] = v
	}
	for it := b.ElementIterator(); it.Next(); {
		k, v := it.Element()
		name := k.AsString()
		if cur, ok := attrs[name]; ok {
			attrs[name] = Overlay(cur, v)
			continue
		}
		attrs[name] = v
	}
	return cty.ObjectVal(attrs)
}

// Without returns the override tree with the top-level key removed, along
// with the removed value (cty.NilVal when absent).
func Without(tree cty.Value, key string) (rest, removed cty.Value) {
	if tree == cty.NilVal || tree.IsNull() || !isObjectLike(tree.Type()) {
		return tree, cty.NilVal
	}
	attrs := map[string]cty.Value{}
	removed = cty.NilVal
	for it := tree.ElementIterator(); it.Next(); {
		k, v := it.Element()
		if k.AsString() == key {
			removed = v
			continue
		}
		attrs[k.AsString()] = v
	}
	return cty.ObjectVal(attrs), removed
}

func isObjectLike(ty cty.Type) bool {
	return ty.IsObjectType() || ty.IsMapType()
}

func appendPath(path []string, name string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, name)
}
