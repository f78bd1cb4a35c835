package paged

import (
	"github.com/chrisuehlinger/folio/css"
	"github.com/chrisuehlinger/folio/dom"
)

// Handler extends pagination. A handler implements any subset of the hook
// interfaces below; the chunker calls each hook a handler implements, in
// registration order.
type Handler any

// DeclarationHook sees every declaration of the author style sheets before
// they are used. Returning true removes the declaration.
type DeclarationHook interface {
	OnDeclaration(decl *css.Declaration, rule *css.StyleRule) bool
}

// PseudoSelectorHook sees every compound selector that carries a
// pseudo-element and may rewrite the rule's selector in place.
type PseudoSelectorHook interface {
	OnPseudoSelector(pseudo *css.PseudoElementSelector, compound *css.CompoundSelector, rule *css.StyleRule)
}

// AfterParsedHook runs once on the source document after style sheets were
// processed and before any page is laid out.
type AfterParsedHook interface {
	AfterParsed(doc *dom.Document) error
}

// RenderNodeHook runs for every element the chunker places on a page. The
// node is the copy in the page, not the source node.
type RenderNodeHook interface {
	RenderNode(page *Page, node *dom.Node) error
}

// BeforePageLayoutHook runs on a new page before any content is placed.
type BeforePageLayoutHook interface {
	BeforePageLayout(page *Page) error
}

// AfterPageLayoutHook runs once the content of a page is placed. token is
// where the next page continues, or nil when the source is exhausted.
type AfterPageLayoutHook interface {
	AfterPageLayout(pageElement *dom.Element, page *Page, token *BreakToken, cloner Cloner) error
}

// AfterRenderedHook runs once after the last page.
type AfterRenderedHook interface {
	AfterRendered(book *Book) error
}

// Cloner adds continuation pages.
type Cloner interface {
	// ClonePage appends an empty page that continues page. Hooks run on the
	// new page as for any other page, with no break token.
	ClonePage(page *Page) error
}
