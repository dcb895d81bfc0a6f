package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PropertyType identifies the kind of value a Notion page property carries.
type PropertyType string

const (
	PropertyTitle       PropertyType = "title"
	PropertyRichText    PropertyType = "rich_text"
	PropertySelect      PropertyType = "select"
	PropertyMultiSelect PropertyType = "multi_select"
	PropertyStatus      PropertyType = "status"
	PropertyPeople      PropertyType = "people"
	PropertyRelation    PropertyType = "relation"
	PropertyFormula     PropertyType = "formula"
	PropertyURL         PropertyType = "url"
	PropertyEmail       PropertyType = "email"
	PropertyCheckbox    PropertyType = "checkbox"
	PropertyNumber      PropertyType = "number"
	PropertyDate        PropertyType = "date"
	PropertyUnknown     PropertyType = "unknown"
)

// Person is a single entry of a people property.
type Person struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Property is the shape-independent form of a page property. Exactly one
// of the value fields is meaningful, selected by Type. Properties arrive
// in two wire shapes: the raw Notion API shape (typed containers such as
// title run arrays and select objects) and a previously-normalized shape
// ({type, value}). UnmarshalJSON accepts either transparently; malformed
// input degrades to a zero value rather than failing the whole page.
type Property struct {
	Type PropertyType

	// Text holds title/rich_text run concatenations (newlines preserved),
	// url, email, and string formula results.
	Text string

	// Select holds the selected option name for select and status.
	Select string

	// MultiSelect holds all option names for multi_select.
	MultiSelect []string

	// People holds people entries in property order.
	People []Person

	// RelationIDs holds the linked page ids of a relation.
	RelationIDs []string

	// Number holds number and numeric formula results.
	Number float64

	// Bool holds checkbox and boolean formula results.
	Bool bool

	// Date holds the start date of a date property or date formula result.
	Date string
}

// Empty reports whether the property carries no usable value.
func (p Property) Empty() bool {
	switch p.Type {
	case PropertyTitle, PropertyRichText, PropertyURL, PropertyEmail:
		return strings.TrimSpace(p.Text) == ""
	case PropertySelect, PropertyStatus:
		return p.Select == ""
	case PropertyMultiSelect:
		return len(p.MultiSelect) == 0
	case PropertyPeople:
		return len(p.People) == 0
	case PropertyRelation:
		return len(p.RelationIDs) == 0
	case PropertyFormula:
		return strings.TrimSpace(p.Text) == "" && p.Number == 0 && !p.Bool && p.Date == ""
	case PropertyDate:
		return p.Date == ""
	case PropertyCheckbox, PropertyNumber:
		return false
	default:
		return true
	}
}

// PlainText renders the property as a plain string where that makes sense,
// or "" otherwise. Multi-valued properties yield their first element.
func (p Property) PlainText() string {
	switch p.Type {
	case PropertyTitle, PropertyRichText, PropertyURL, PropertyEmail:
		return strings.TrimSpace(p.Text)
	case PropertySelect, PropertyStatus:
		return p.Select
	case PropertyMultiSelect:
		if len(p.MultiSelect) > 0 {
			return p.MultiSelect[0]
		}
		return ""
	case PropertyFormula:
		if s := strings.TrimSpace(p.Text); s != "" {
			return s
		}
		return p.Date
	case PropertyDate:
		return p.Date
	default:
		return ""
	}
}

// richTextRun is one run of a title or rich_text container.
type richTextRun struct {
	PlainText string `json:"plain_text"`
}

// selectOption is the option object of select, multi_select, and status.
type selectOption struct {
	Name string `json:"name"`
}

// rawPerson is a people entry in the raw API shape, where the email is
// nested under a person object.
type rawPerson struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Person struct {
		Email string `json:"email"`
	} `json:"person"`
}

// relationRef is one entry of a raw relation array.
type relationRef struct {
	ID string `json:"id"`
}

// formulaResult is the raw formula container; exactly one branch is set.
type formulaResult struct {
	String  *string  `json:"string"`
	Number  *float64 `json:"number"`
	Boolean *bool    `json:"boolean"`
	Date    *struct {
		Start string `json:"start"`
	} `json:"date"`
}

// rawProperty covers the raw Notion API property shape. Only the container
// matching Type is populated on the wire.
type rawProperty struct {
	Type        string          `json:"type"`
	Title       []richTextRun   `json:"title"`
	RichText    []richTextRun   `json:"rich_text"`
	Select      *selectOption   `json:"select"`
	MultiSelect []selectOption  `json:"multi_select"`
	Status      *selectOption   `json:"status"`
	People      []rawPerson     `json:"people"`
	Relation    []relationRef   `json:"relation"`
	Formula     *formulaResult  `json:"formula"`
	URL         *string         `json:"url"`
	Email       *string         `json:"email"`
	Checkbox    *bool           `json:"checkbox"`
	Number      *float64        `json:"number"`
	Date        *struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"date"`
}

// normalizedProperty covers the pre-normalized {type, value} shape produced
// by the webhook ingestion path.
type normalizedProperty struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// UnmarshalJSON decodes a property from either wire shape. The presence of
// a "value" key selects the normalized decoder; otherwise the raw typed
// container is used. Unknown property types decode to PropertyUnknown
// instead of returning an error.
func (p *Property) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("decoding property: %w", err)
	}

	if _, ok := probe["value"]; ok {
		var np normalizedProperty
		if err := json.Unmarshal(data, &np); err != nil {
			return fmt.Errorf("decoding normalized property: %w", err)
		}
		*p = decodeNormalized(np)
		return nil
	}

	var rp rawProperty
	if err := json.Unmarshal(data, &rp); err != nil {
		return fmt.Errorf("decoding raw property: %w", err)
	}
	*p = decodeRaw(rp)
	return nil
}

// decodeRaw converts a raw API property into the union form.
func decodeRaw(rp rawProperty) Property {
	p := Property{Type: PropertyType(rp.Type)}

	switch p.Type {
	case PropertyTitle:
		p.Text = joinRuns(rp.Title)
	case PropertyRichText:
		p.Text = joinRuns(rp.RichText)
	case PropertySelect:
		if rp.Select != nil {
			p.Select = rp.Select.Name
		}
	case PropertyMultiSelect:
		for _, opt := range rp.MultiSelect {
			p.MultiSelect = append(p.MultiSelect, opt.Name)
		}
	case PropertyStatus:
		if rp.Status != nil {
			p.Select = rp.Status.Name
		}
	case PropertyPeople:
		for _, rperson := range rp.People {
			p.People = append(p.People, Person{
				ID:    rperson.ID,
				Name:  rperson.Name,
				Email: rperson.Person.Email,
			})
		}
	case PropertyRelation:
		for _, ref := range rp.Relation {
			p.RelationIDs = append(p.RelationIDs, ref.ID)
		}
	case PropertyFormula:
		if rp.Formula != nil {
			switch {
			case rp.Formula.String != nil:
				p.Text = *rp.Formula.String
			case rp.Formula.Number != nil:
				p.Number = *rp.Formula.Number
			case rp.Formula.Boolean != nil:
				p.Bool = *rp.Formula.Boolean
			case rp.Formula.Date != nil:
				p.Date = rp.Formula.Date.Start
			}
		}
	case PropertyURL:
		if rp.URL != nil {
			p.Text = *rp.URL
		}
	case PropertyEmail:
		if rp.Email != nil {
			p.Text = *rp.Email
		}
	case PropertyCheckbox:
		if rp.Checkbox != nil {
			p.Bool = *rp.Checkbox
		}
	case PropertyNumber:
		if rp.Number != nil {
			p.Number = *rp.Number
		}
	case PropertyDate:
		if rp.Date != nil {
			p.Date = rp.Date.Start
		}
	default:
		p.Type = PropertyUnknown
	}

	return p
}

// decodeNormalized converts a {type, value} property into the union form.
// The normalized shape is lossy (rich text reduced to one run), so callers
// should prefer raw data when both are available.
func decodeNormalized(np normalizedProperty) Property {
	p := Property{Type: PropertyType(np.Type)}
	if len(np.Value) == 0 || string(np.Value) == "null" {
		if p.Type != PropertyTitle && !knownType(p.Type) {
			p.Type = PropertyUnknown
		}
		return p
	}

	switch p.Type {
	case PropertyTitle, PropertyRichText, PropertyURL, PropertyEmail:
		_ = json.Unmarshal(np.Value, &p.Text)
	case PropertySelect, PropertyStatus:
		_ = json.Unmarshal(np.Value, &p.Select)
	case PropertyMultiSelect:
		_ = json.Unmarshal(np.Value, &p.MultiSelect)
	case PropertyPeople:
		_ = json.Unmarshal(np.Value, &p.People)
	case PropertyRelation:
		// The normalized relation value has been observed both as a plain
		// id list and as a list of {id} objects; accept either.
		if err := json.Unmarshal(np.Value, &p.RelationIDs); err != nil {
			var refs []relationRef
			if json.Unmarshal(np.Value, &refs) == nil {
				for _, ref := range refs {
					p.RelationIDs = append(p.RelationIDs, ref.ID)
				}
			}
		}
	case PropertyFormula:
		if err := json.Unmarshal(np.Value, &p.Text); err != nil {
			if json.Unmarshal(np.Value, &p.Number) != nil {
				_ = json.Unmarshal(np.Value, &p.Bool)
			}
		}
	case PropertyCheckbox:
		_ = json.Unmarshal(np.Value, &p.Bool)
	case PropertyNumber:
		_ = json.Unmarshal(np.Value, &p.Number)
	case PropertyDate:
		_ = json.Unmarshal(np.Value, &p.Date)
	default:
		p.Type = PropertyUnknown
	}

	return p
}

// knownType reports whether t is one of the decodable property types.
func knownType(t PropertyType) bool {
	switch t {
	case PropertyTitle, PropertyRichText, PropertySelect, PropertyMultiSelect,
		PropertyStatus, PropertyPeople, PropertyRelation, PropertyFormula,
		PropertyURL, PropertyEmail, PropertyCheckbox, PropertyNumber,
		PropertyDate:
		return true
	}
	return false
}

// joinRuns concatenates text runs preserving internal newlines.
func joinRuns(runs []richTextRun) string {
	if len(runs) == 0 {
		return ""
	}
	var b strings.Builder
	for _, run := range runs {
		b.WriteString(run.PlainText)
	}
	return b.String()
}
