package restcache

// Merge reconciles incoming into seq and returns the resulting sequence.
//
// When seq already holds an entity with the same identifier, that entity is
// overwritten field by field in place: its position and map identity are
// kept, so holders of the map observe the update. Otherwise incoming is
// appended. Entities without an identifier are always appended.
func Merge(seq []Entity, incoming Entity, idKey string) []Entity {
	if i := indexOf(seq, incoming[idKey], idKey); i >= 0 {
		existing := seq[i]
		for k, v := range incoming {
			existing[k] = v
		}
		return seq
	}
	return append(seq, incoming)
}

// indexOf returns the position of the entity whose idKey equals id, or -1.
func indexOf(seq []Entity, id any, idKey string) int {
	want, ok := normID(id)
	if !ok {
		return -1
	}
	for i, e := range seq {
		if got, ok := normID(e[idKey]); ok && got == want {
			return i
		}
	}
	return -1
}
