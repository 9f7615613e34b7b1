package extension

// MemberExtension holds the attributes configured for one member of a type.
// Name is the dotted member path ("Address.Street").
type MemberExtension struct {
	Name       string
	Attributes AttributeNameCollection
}

// NewMemberExtension creates an empty member node
func NewMemberExtension(name string) *MemberExtension {
	return &MemberExtension{
		Name:       name,
		Attributes: make(AttributeNameCollection),
	}
}

// MemberList is an insertion-ordered set of member nodes keyed by path
type MemberList struct {
	order   []string
	members map[string]*MemberExtension
}

// Get returns the member registered under name
func (l *MemberList) Get(name string) (*MemberExtension, bool) {
	m, ok := l.members[name]
	return m, ok
}

// GetOrAdd returns the member registered under name, creating it when absent.
// Repeated calls with the same name return the same node.
func (l *MemberList) GetOrAdd(name string) *MemberExtension {
	if m, ok := l.members[name]; ok {
		return m
	}
	if l.members == nil {
		l.members = make(map[string]*MemberExtension)
	}
	m := NewMemberExtension(name)
	l.members[name] = m
	l.order = append(l.order, name)
	return m
}

// Names returns member paths in insertion order
func (l *MemberList) Names() []string {
	names := make([]string, len(l.order))
	copy(names, l.order)
	return names
}

// Len returns the number of members
func (l *MemberList) Len() int {
	return len(l.order)
}

// TypeExtension is the metadata tree of one mapped type
type TypeExtension struct {
	Name       string
	Attributes AttributeNameCollection
	Members    MemberList
}

// NewTypeExtension creates an empty tree for the named type
func NewTypeExtension(name string) *TypeExtension {
	return &TypeExtension{
		Name:       name,
		Attributes: make(AttributeNameCollection),
	}
}

// Member returns the member node registered under path, if any
func (t *TypeExtension) Member(path string) (*MemberExtension, bool) {
	return t.Members.Get(path)
}
