package audit

// Sanitize removes every absent object field and array element at every
// depth. Absent array elements are dropped rather than replaced by null, and
// null values are kept as they are. Sanitize is idempotent.
func Sanitize(v Value) Value {
	switch v.kind {
	case KindObject:
		fields := make(map[string]Value, len(v.fields))
		for k, f := range v.fields {
			clean := Sanitize(f)
			if clean.kind == KindAbsent {
				continue
			}
			fields[k] = clean
		}
		return Value{kind: KindObject, fields: fields}
	case KindArray:
		items := make([]Value, 0, len(v.items))
		for _, item := range v.items {
			clean := Sanitize(item)
			if clean.kind == KindAbsent {
				continue
			}
			items = append(items, clean)
		}
		return Value{kind: KindArray, items: items}
	default:
		return v
	}
}

// ContainsAbsent reports whether an absent marker appears anywhere below the
// root of v.
func ContainsAbsent(v Value) bool {
	switch v.kind {
	case KindObject:
		for _, f := range v.fields {
			if f.kind == KindAbsent || ContainsAbsent(f) {
				return true
			}
		}
	case KindArray:
		for _, item := range v.items {
			if item.kind == KindAbsent || ContainsAbsent(item) {
				return true
			}
		}
	}
	return false
}
