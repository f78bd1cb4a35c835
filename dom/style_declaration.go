package dom

import (
	"strings"
)

// CSSStyleDeclaration gives property-level access to an element's inline
// style attribute. Changes are written straight back to the attribute.
type CSSStyleDeclaration struct {
	element *Element
}

type styleProperty struct {
	name  string
	value string
}

// Style returns the inline style declaration of the element.
func (e *Element) Style() *CSSStyleDeclaration {
	return &CSSStyleDeclaration{element: e}
}

func parseInlineStyle(text string) []styleProperty {
	var props []styleProperty
	for _, part := range strings.Split(text, ";") {
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		props = append(props, styleProperty{name: name, value: value})
	}
	return props
}

func serializeInlineStyle(props []styleProperty) string {
	var sb strings.Builder
	for i, p := range props {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(p.name)
		sb.WriteString(": ")
		sb.WriteString(p.value)
		sb.WriteString(";")
	}
	return sb.String()
}

// CSSText returns the serialized inline style.
func (s *CSSStyleDeclaration) CSSText() string {
	return s.element.GetAttribute("style")
}

// Length returns the number of declared properties.
func (s *CSSStyleDeclaration) Length() int {
	return len(parseInlineStyle(s.CSSText()))
}

// GetPropertyValue returns the value of a property, or "" if not set.
func (s *CSSStyleDeclaration) GetPropertyValue(name string) string {
	name = strings.ToLower(name)
	props := parseInlineStyle(s.CSSText())
	for i := len(props) - 1; i >= 0; i-- {
		if props[i].name == name {
			return props[i].value
		}
	}
	return ""
}

// SetProperty sets a property, replacing any previous value.
func (s *CSSStyleDeclaration) SetProperty(name, value string) {
	name = strings.ToLower(name)
	value = strings.TrimSpace(value)
	if value == "" {
		s.RemoveProperty(name)
		return
	}
	props := parseInlineStyle(s.CSSText())
	found := false
	for i := range props {
		if props[i].name == name {
			props[i].value = value
			found = true
		}
	}
	if !found {
		props = append(props, styleProperty{name: name, value: value})
	}
	s.element.SetAttribute("style", serializeInlineStyle(props))
}

// RemoveProperty removes a property and returns its old value.
func (s *CSSStyleDeclaration) RemoveProperty(name string) string {
	name = strings.ToLower(name)
	props := parseInlineStyle(s.CSSText())
	old := ""
	kept := props[:0]
	for _, p := range props {
		if p.name == name {
			old = p.value
			continue
		}
		kept = append(kept, p)
	}
	if old == "" {
		return ""
	}
	if len(kept) == 0 {
		s.element.RemoveAttribute("style")
	} else {
		s.element.SetAttribute("style", serializeInlineStyle(kept))
	}
	return old
}

// Properties returns the declared property names in order.
func (s *CSSStyleDeclaration) Properties() []string {
	var names []string
	for _, p := range parseInlineStyle(s.CSSText()) {
		names = append(names, p.name)
	}
	return names
}
