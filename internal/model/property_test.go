package model_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notion2jira/internal/model"
)

func decode(t *testing.T, payload string) model.Property {
	t.Helper()

	var p model.Property
	require.NoError(t, json.Unmarshal([]byte(payload), &p))
	return p
}

func TestPropertyDecodeRawTitle(t *testing.T) {
	p := decode(t, `{
		"id": "abc",
		"type": "title",
		"title": [
			{"plain_text": "Support WPA3 "},
			{"plain_text": "on guest networks"}
		]
	}`)

	assert.Equal(t, model.PropertyTitle, p.Type)
	assert.Equal(t, "Support WPA3 on guest networks", p.Text)
}

func TestPropertyDecodeRawRichTextPreservesNewlines(t *testing.T) {
	p := decode(t, `{
		"type": "rich_text",
		"rich_text": [
			{"plain_text": "first line\n"},
			{"plain_text": "second line"}
		]
	}`)

	assert.Equal(t, "first line\nsecond line", p.Text)
}

func TestPropertyDecodeRawSelectAndStatus(t *testing.T) {
	sel := decode(t, `{"type": "select", "select": {"name": "Gateway"}}`)
	assert.Equal(t, model.PropertySelect, sel.Type)
	assert.Equal(t, "Gateway", sel.Select)

	nullSel := decode(t, `{"type": "select", "select": null}`)
	assert.True(t, nullSel.Empty())

	status := decode(t, `{"type": "status", "status": {"name": "待评估 UR"}}`)
	assert.Equal(t, model.PropertyStatus, status.Type)
	assert.Equal(t, "待评估 UR", status.Select)
}

func TestPropertyDecodeRawPeople(t *testing.T) {
	p := decode(t, `{
		"type": "people",
		"people": [
			{"id": "u1", "name": "Zhu", "person": {"email": "zhu@example.com"}}
		]
	}`)

	require.Len(t, p.People, 1)
	assert.Equal(t, "zhu@example.com", p.People[0].Email)
	assert.Equal(t, "Zhu", p.People[0].Name)
}

func TestPropertyDecodeRawRelation(t *testing.T) {
	p := decode(t, `{"type": "relation", "relation": [{"id": "page-1"}, {"id": "page-2"}]}`)

	assert.Equal(t, []string{"page-1", "page-2"}, p.RelationIDs)
}

func TestPropertyDecodeRawFormula(t *testing.T) {
	str := decode(t, `{"type": "formula", "formula": {"type": "string", "string": "PROJ-12, PROJ-34"}}`)
	assert.Equal(t, "PROJ-12, PROJ-34", str.Text)

	num := decode(t, `{"type": "formula", "formula": {"type": "number", "number": 42}}`)
	assert.Equal(t, 42.0, num.Number)
}

func TestPropertyDecodeRawScalars(t *testing.T) {
	url := decode(t, `{"type": "url", "url": "http://jira.example.com/browse/PROJ-1"}`)
	assert.Equal(t, "http://jira.example.com/browse/PROJ-1", url.Text)

	checkbox := decode(t, `{"type": "checkbox", "checkbox": true}`)
	assert.True(t, checkbox.Bool)

	date := decode(t, `{"type": "date", "date": {"start": "2025-06-01", "end": null}}`)
	assert.Equal(t, "2025-06-01", date.Date)
}

func TestPropertyDecodeUnknownTypeDegrades(t *testing.T) {
	p := decode(t, `{"type": "rollup", "rollup": {"number": 3}}`)

	assert.Equal(t, model.PropertyUnknown, p.Type)
	assert.True(t, p.Empty())
}

func TestPropertyDecodeNormalizedShape(t *testing.T) {
	sel := decode(t, `{"type": "select", "value": "高 High"}`)
	assert.Equal(t, "高 High", sel.Select)

	title := decode(t, `{"type": "title", "value": "Roaming issue"}`)
	assert.Equal(t, "Roaming issue", title.Text)

	people := decode(t, `{"type": "people", "value": [{"id": "u1", "name": "Lu", "email": "lu@example.com"}]}`)
	require.Len(t, people.People, 1)
	assert.Equal(t, "lu@example.com", people.People[0].Email)
}

func TestPropertyDecodeNormalizedRelationBothForms(t *testing.T) {
	ids := decode(t, `{"type": "relation", "value": ["a", "b"]}`)
	assert.Equal(t, []string{"a", "b"}, ids.RelationIDs)

	objs := decode(t, `{"type": "relation", "value": [{"id": "a"}, {"id": "b"}]}`)
	assert.Equal(t, []string{"a", "b"}, objs.RelationIDs)
}

func TestPropertyDecodeNormalizedNullValue(t *testing.T) {
	p := decode(t, `{"type": "select", "value": null}`)

	assert.Equal(t, model.PropertySelect, p.Type)
	assert.True(t, p.Empty())
}

func TestPagePropPrefersRawOverNormalized(t *testing.T) {
	page := model.Page{
		Properties: map[string]model.Property{
			"功能说明 Desc": {Type: model.PropertyRichText, Text: "truncated"},
		},
		RawProperties: map[string]json.RawMessage{
			"功能说明 Desc": json.RawMessage(`{
				"type": "rich_text",
				"rich_text": [
					{"plain_text": "full text\n"},
					{"plain_text": "second run"}
				]
			}`),
		},
	}

	p, ok := page.Prop("功能说明 Desc")
	require.True(t, ok)
	assert.Equal(t, "full text\nsecond run", p.Text)
}

func TestPageFirstPropCandidateOrder(t *testing.T) {
	page := model.Page{
		Properties: map[string]model.Property{
			"功能 Name": {Type: model.PropertyTitle, Text: ""},
			"title":   {Type: model.PropertyTitle, Text: "fallback title"},
		},
	}

	p, ok := page.FirstProp("功能 Name", "title", "name")
	require.True(t, ok)
	assert.Equal(t, "fallback title", p.Text)

	_, ok = page.FirstProp("missing", "also-missing")
	assert.False(t, ok)
}
