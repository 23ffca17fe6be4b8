package signal

import (
	"fmt"
	"reflect"
)

// Class is the attribute table of an owner type: the signals and sockets
// declared on it, by name. Scripting bridges use it to reach an owner's
// dispatchers without knowing T.
type Class struct {
	name  string
	owner reflect.Type
	attrs map[string]Attribute
	order []string
}

// NewClass creates the table for owners of type *T. It panics if two
// attributes share a name.
func NewClass[T any](name string, attrs ...Attribute) *Class {
	c := &Class{
		name:  name,
		owner: reflect.TypeFor[*T](),
		attrs: make(map[string]Attribute, len(attrs)),
	}
	for _, a := range attrs {
		if _, dup := c.attrs[a.Name()]; dup {
			panic(fmt.Sprintf("class %s: duplicate attribute %q", name, a.Name()))
		}
		c.attrs[a.Name()] = a
		c.order = append(c.order, a.Name())
	}
	return c
}

// Name returns the class name.
func (c *Class) Name() string {
	return c.name
}

// OwnerType returns the owner type, a pointer type.
func (c *Class) OwnerType() reflect.Type {
	return c.owner
}

// Lookup returns the attribute itself rather than an owner's value.
func (c *Class) Lookup(name string) (Attribute, bool) {
	a, ok := c.attrs[name]
	return a, ok
}

// Attributes returns the attributes in declaration order.
func (c *Class) Attributes() []Attribute {
	out := make([]Attribute, len(c.order))
	for i, name := range c.order {
		out[i] = c.attrs[name]
	}
	return out
}

// Get returns the value of attribute name for owner.
func (c *Class) Get(owner any, name string) (any, error) {
	a, err := c.attr(name)
	if err != nil {
		return nil, err
	}
	return a.Get(owner)
}

// Set assigns the value of attribute name for owner.
func (c *Class) Set(owner any, name string, value any) error {
	a, err := c.attr(name)
	if err != nil {
		return err
	}
	return a.Set(owner, value)
}

// Delete deletes attribute name for owner.
func (c *Class) Delete(owner any, name string) error {
	a, err := c.attr(name)
	if err != nil {
		return err
	}
	return a.Delete(owner)
}

func (c *Class) attr(name string) (Attribute, error) {
	a, ok := c.attrs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrNoAttribute, c.name, name)
	}
	return a, nil
}
