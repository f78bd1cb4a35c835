package js

import (
	"github.com/dop251/goja"

	"github.com/chrisuehlinger/folio/css"
	"github.com/chrisuehlinger/folio/dom"
	"github.com/chrisuehlinger/folio/paged"
)

// binder exposes DOM elements and pages to scripts. Bound objects are
// cached so that a node keeps its identity across hook calls.
type binder struct {
	vm       *goja.Runtime
	elements map[*dom.Element]*goja.Object
	pages    map[*paged.Page]*goja.Object
}

func newBinder(vm *goja.Runtime) *binder {
	return &binder{
		vm:       vm,
		elements: make(map[*dom.Element]*goja.Object),
		pages:    make(map[*paged.Page]*goja.Object),
	}
}

func (b *binder) getter(fn func() any) goja.Value {
	return b.vm.ToValue(func(goja.FunctionCall) goja.Value {
		return b.vm.ToValue(fn())
	})
}

func (b *binder) readOnly(obj *goja.Object, name string, fn func() any) {
	obj.DefineAccessorProperty(name, b.getter(fn), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
}

// element binds el. A nil element binds to null.
func (b *binder) element(el *dom.Element) goja.Value {
	if el == nil {
		return goja.Null()
	}
	if obj, ok := b.elements[el]; ok {
		return obj
	}
	vm := b.vm
	obj := vm.NewObject()
	b.elements[el] = obj

	b.readOnly(obj, "tagName", func() any { return el.TagName() })
	b.readOnly(obj, "id", func() any { return el.Id() })
	b.readOnly(obj, "className", func() any { return el.ClassName() })
	b.readOnly(obj, "textContent", func() any { return el.TextContent() })

	obj.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		v, ok := el.LookupAttribute(call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(v)
	})
	obj.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		el.SetAttribute(call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	obj.Set("hasAttribute", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(el.HasAttribute(call.Argument(0).String()))
	})
	obj.Set("removeAttribute", func(call goja.FunctionCall) goja.Value {
		el.RemoveAttribute(call.Argument(0).String())
		return goja.Undefined()
	})

	classList := vm.NewObject()
	classList.Set("add", func(call goja.FunctionCall) goja.Value {
		for _, arg := range call.Arguments {
			el.AddClass(arg.String())
		}
		return goja.Undefined()
	})
	classList.Set("remove", func(call goja.FunctionCall) goja.Value {
		for _, arg := range call.Arguments {
			el.RemoveClass(arg.String())
		}
		return goja.Undefined()
	})
	classList.Set("contains", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(el.HasClass(call.Argument(0).String()))
	})
	obj.Set("classList", classList)

	style := vm.NewObject()
	style.Set("getPropertyValue", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(el.Style().GetPropertyValue(call.Argument(0).String()))
	})
	style.Set("setProperty", func(call goja.FunctionCall) goja.Value {
		el.Style().SetProperty(call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	style.Set("removeProperty", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(el.Style().RemoveProperty(call.Argument(0).String()))
	})
	obj.Set("style", style)

	obj.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		found, err := css.QuerySelectorAll(el.AsNode(), call.Argument(0).String())
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return b.list(found)
	})
	obj.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		found, err := css.QuerySelector(el.AsNode(), call.Argument(0).String())
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return b.element(found)
	})
	return obj
}

func (b *binder) list(els []*dom.Element) goja.Value {
	items := make([]any, len(els))
	for i, el := range els {
		items[i] = b.element(el)
	}
	return b.vm.NewArray(items...)
}

// page binds a page of the book being rendered.
func (b *binder) page(p *paged.Page) *goja.Object {
	if obj, ok := b.pages[p]; ok {
		return obj
	}
	obj := b.vm.NewObject()
	b.pages[p] = obj
	obj.Set("number", p.Number())
	obj.Set("side", p.Side())
	obj.Set("continuation", p.ClonedFrom >= 0)
	obj.Set("element", b.element(p.Element))
	obj.Set("content", b.element(p.Content))
	obj.Set("footnotes", b.element(p.Footnotes.InnerContent))
	b.readOnly(obj, "reservedHeight", func() any { return p.Footnotes.ReservedHeight })
	return obj
}

func (b *binder) book(book *paged.Book) *goja.Object {
	obj := b.vm.NewObject()
	pages := make([]any, len(book.Pages))
	for i, p := range book.Pages {
		pages[i] = b.page(p)
	}
	obj.Set("pages", b.vm.NewArray(pages...))
	obj.Set("report", func(goja.FunctionCall) goja.Value {
		return b.vm.ToValue(book.Report())
	})
	return obj
}
