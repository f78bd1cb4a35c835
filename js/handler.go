package js

import (
	"fmt"
	"log/slog"

	"github.com/dop251/goja"

	"github.com/chrisuehlinger/folio/dom"
	"github.com/chrisuehlinger/folio/paged"
)

// Handler runs pagination hooks written in JavaScript. Scripts register
// objects with folio.registerHandler; each object may define
//
//	afterParsed(body)
//	beforePageLayout(page)
//	afterPageLayout(page, done)
//	afterRendered(book)
//
// Hooks of every registered object run in registration order. An
// exception aborts the render.
type Handler struct {
	rt    *Runtime
	b     *binder
	hooks []*goja.Object
}

// NewHandler creates a handler with its own runtime. Console output goes
// to log.
func NewHandler(log *slog.Logger) *Handler {
	rt := NewRuntime(log)
	vm := rt.VM()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	h := &Handler{rt: rt, b: newBinder(vm)}

	folio := vm.NewObject()
	folio.Set("registerHandler", func(call goja.FunctionCall) goja.Value {
		for _, arg := range call.Arguments {
			obj, ok := arg.(*goja.Object)
			if !ok {
				panic(vm.NewTypeError("registerHandler: expected an object, got %s", formatValue(arg)))
			}
			h.hooks = append(h.hooks, obj)
		}
		return goja.Undefined()
	})
	vm.Set("folio", folio)
	return h
}

// Runtime returns the runtime scripts run in.
func (h *Handler) Runtime() *Runtime {
	return h.rt
}

// Load runs a script. name identifies it in errors.
func (h *Handler) Load(code, name string) error {
	if err := h.rt.ExecuteScript(code, name); err != nil {
		return fmt.Errorf("js: load %s: %w", name, err)
	}
	return nil
}

// Registered returns the number of registered hook objects.
func (h *Handler) Registered() int {
	return len(h.hooks)
}

func (h *Handler) run(hook string, args ...goja.Value) error {
	for _, obj := range h.hooks {
		fn, ok := goja.AssertFunction(obj.Get(hook))
		if !ok {
			continue
		}
		if _, err := h.rt.Call(fn, obj, args...); err != nil {
			return fmt.Errorf("js: %s: %w", hook, err)
		}
	}
	return nil
}

// AfterParsed calls afterParsed with the body of the source document.
func (h *Handler) AfterParsed(doc *dom.Document) error {
	return h.run("afterParsed", h.b.element(doc.Body()))
}

// BeforePageLayout calls beforePageLayout with the page.
func (h *Handler) BeforePageLayout(page *paged.Page) error {
	return h.run("beforePageLayout", h.b.page(page))
}

// AfterPageLayout calls afterPageLayout with the page and whether the
// source is exhausted.
func (h *Handler) AfterPageLayout(_ *dom.Element, page *paged.Page, token *paged.BreakToken, _ paged.Cloner) error {
	return h.run("afterPageLayout", h.b.page(page), h.rt.VM().ToValue(token == nil))
}

// AfterRendered calls afterRendered with the book.
func (h *Handler) AfterRendered(book *paged.Book) error {
	return h.run("afterRendered", h.b.book(book))
}
