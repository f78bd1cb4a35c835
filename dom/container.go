package dom

// nonContainers are elements the paginator renders together with their
// children as a single unit.
var nonContainers = map[string]bool{
	"a": true, "abbr": true, "acronym": true, "b": true, "bdo": true, "big": true,
	"br": true, "button": true, "cite": true, "code": true, "dfn": true, "em": true,
	"i": true, "img": true, "input": true, "kbd": true, "label": true, "map": true,
	"object": true, "q": true, "samp": true, "script": true, "select": true,
	"small": true, "span": true, "strong": true, "sub": true, "sup": true,
	"textarea": true, "time": true, "tt": true, "var": true,
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"figcaption": true, "blockquote": true, "pre": true, "li": true, "tr": true,
	"dt": true, "dd": true, "video": true, "canvas": true,
}

// IsContainer reports whether the element starts a structural container:
// the paginator descends into containers child by child, while every other
// element is placed as a whole. Elements hidden through an inline
// display: none are never containers.
func IsContainer(e *Element) bool {
	if e == nil {
		return true
	}
	if e.Style().GetPropertyValue("display") == "none" {
		return false
	}
	return !nonContainers[e.LocalName()]
}
