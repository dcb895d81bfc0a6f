package model

import "encoding/json"

// Page is a workspace record as carried in sync events. Properties holds
// the normalized property map; RawProperties, when the producer included
// it, holds the untouched Notion API payload per property. Lookups prefer
// the raw shape because normalization is lossy (rich text reduced to a
// single run, formula results flattened).
type Page struct {
	ID            string                     `json:"page_id"`
	URL           string                     `json:"url"`
	DatabaseID    string                     `json:"database_id"`
	Properties    map[string]Property        `json:"properties"`
	RawProperties map[string]json.RawMessage `json:"raw_properties,omitempty"`
}

// Prop returns the named property, decoding from RawProperties when the
// raw payload is present and well-formed, falling back to the normalized
// map otherwise.
func (p *Page) Prop(name string) (Property, bool) {
	if raw, ok := p.RawProperties[name]; ok {
		var prop Property
		if err := prop.UnmarshalJSON(raw); err == nil && prop.Type != PropertyUnknown {
			return prop, true
		}
	}
	prop, ok := p.Properties[name]
	return prop, ok
}

// FirstProp returns the first non-empty property among the candidate
// names, in order. The boolean reports whether any candidate matched.
func (p *Page) FirstProp(names ...string) (Property, bool) {
	for _, name := range names {
		if prop, ok := p.Prop(name); ok && !prop.Empty() {
			return prop, true
		}
	}
	return Property{}, false
}
