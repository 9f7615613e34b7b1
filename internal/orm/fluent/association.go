package fluent

// AssociationMap is a pending association. Nothing is recorded until ToOne
// or ToMany names the other side's keys.
type AssociationMap[T any] struct {
	owner     *FieldMap[T]
	canBeNull bool
	thisKeys  []string
}

// ToOne finishes a one-to-one association. Other keys are members of the
// associated member's type.
func (a *AssociationMap[T]) ToOne(otherKey string, otherKeys ...string) *FieldMap[T] {
	fieldType := a.owner.path.Type
	if isCollection(fieldType) {
		panic(&InvalidExpressionError{
			Type:   a.owner.typ,
			Expr:   a.owner.path.Path,
			Reason: "one-to-one association on a collection member",
		})
	}
	return a.finish(otherKey, otherKeys)
}

// ToMany finishes a one-to-many association. Other keys are members of the
// collection's element type.
func (a *AssociationMap[T]) ToMany(otherKey string, otherKeys ...string) *FieldMap[T] {
	if !isCollection(a.owner.path.Type) {
		panic(&InvalidExpressionError{
			Type:   a.owner.typ,
			Expr:   a.owner.path.Path,
			Reason: "one-to-many association on a single-valued member",
		})
	}
	return a.finish(otherKey, otherKeys)
}

func (a *AssociationMap[T]) finish(otherKey string, otherKeys []string) *FieldMap[T] {
	other := elementType(a.owner.path.Type)
	keys := make([]string, 0, len(otherKeys)+1)
	for _, k := range append([]string{otherKey}, otherKeys...) {
		keys = append(keys, mustResolve(other, k).Path)
	}
	return a.owner.Apply(AssociationAttr{
		ThisKey:   a.thisKeys,
		OtherKey:  keys,
		CanBeNull: a.canBeNull,
	})
}
