package page

import (
	"errors"
	"fmt"
)

// ErrElementNotFound is returned by lookups that require an element.
var ErrElementNotFound = errors.New("page: element not found")

// Element is a node of the page addressed by id. Table elements carry their
// header separately from the body rows so clearing rows keeps the header.
type Element struct {
	ID     string
	Tag    string
	Text   string
	Color  string
	Header []string
	Rows   [][]string

	listeners []func()
}

// Document is an in-memory page. It is not safe for concurrent use.
type Document struct {
	Title    string
	elements map[string]*Element
	order    []string
}

// NewDocument constructs an empty document.
func NewDocument(title string) *Document {
	return &Document{Title: title, elements: make(map[string]*Element)}
}

// Add inserts el, replacing any element with the same id.
func (d *Document) Add(el *Element) {
	if el == nil || el.ID == "" {
		return
	}
	if _, exists := d.elements[el.ID]; !exists {
		d.order = append(d.order, el.ID)
	}
	d.elements[el.ID] = el
}

// Remove deletes the element with id, if present.
func (d *Document) Remove(id string) {
	if _, ok := d.elements[id]; !ok {
		return
	}
	delete(d.elements, id)
	for i, existing := range d.order {
		if existing == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// GetElementByID returns the element with id or nil.
func (d *Document) GetElementByID(id string) *Element {
	return d.elements[id]
}

// Elements returns the elements in insertion order.
func (d *Document) Elements() []*Element {
	out := make([]*Element, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.elements[id])
	}
	return out
}

// OnClick registers fn as a click listener on the element with id.
func (d *Document) OnClick(id string, fn func()) error {
	el := d.GetElementByID(id)
	if el == nil {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	if fn != nil {
		el.listeners = append(el.listeners, fn)
	}
	return nil
}

// Click fires the listeners of the element with id in registration order.
func (d *Document) Click(id string) error {
	el := d.GetElementByID(id)
	if el == nil {
		return fmt.Errorf("%w: %s", ErrElementNotFound, id)
	}
	for _, fn := range el.listeners {
		fn()
	}
	return nil
}
