// Package clinic loads the clinic-info file and exposes the clinic identity,
// the appointment type catalog, and the flattened document set that feeds the
// FAQ knowledge base.
package clinic

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

const (
	DefaultName  = "HealthCare Plus Clinic"
	DefaultPhone = "+1-555-123-4567"
	DefaultEmail = "info@healthcareplus.com"
)

// Document is one unit of knowledge-base text with retrieval metadata.
type Document struct {
	Content  string
	Metadata map[string]string
}

// Info is the parsed clinic-info file.
type Info struct {
	Name  string
	Phone string
	Email string

	sections map[string]json.RawMessage
}

// Load reads and parses the clinic-info JSON file.
func Load(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read clinic info file: %w", err)
	}
	return Parse(data)
}

// Parse decodes clinic-info JSON.
func Parse(data []byte) (*Info, error) {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("invalid clinic info JSON: %w", err)
	}

	info := &Info{
		Name:     DefaultName,
		Phone:    DefaultPhone,
		Email:    DefaultEmail,
		sections: sections,
	}

	if raw, ok := sections["clinic_details"]; ok {
		var details map[string]any
		if err := json.Unmarshal(raw, &details); err == nil {
			if v, ok := details["name"].(string); ok && v != "" {
				info.Name = v
			}
			if v, ok := details["phone"].(string); ok && v != "" {
				info.Phone = v
			}
			if v, ok := details["email"].(string); ok && v != "" {
				info.Email = v
			}
		}
	}

	return info, nil
}

// Documents flattens every section of the clinic-info file into knowledge-base
// documents. Maps are walked in sorted key order so output is deterministic.
func (info *Info) Documents() []Document {
	sectionNames := make([]string, 0, len(info.sections))
	for name := range info.sections {
		sectionNames = append(sectionNames, name)
	}
	sort.Strings(sectionNames)

	var docs []Document
	for _, name := range sectionNames {
		var value any
		if err := json.Unmarshal(info.sections[name], &value); err != nil {
			continue
		}
		docs = append(docs, flattenSection(name, value)...)
	}
	return docs
}

func flattenSection(section string, value any) []Document {
	var docs []Document

	switch data := value.(type) {
	case map[string]any:
		for _, key := range sortedKeys(data) {
			docs = append(docs, flattenEntry(section, key, data[key])...)
		}
	case []any:
		for _, item := range data {
			docs = append(docs, flattenListItem(section, item))
		}
	}

	return docs
}

func flattenEntry(section, key string, value any) []Document {
	meta := func(kind string) map[string]string {
		return map[string]string{"section": section, "subsection": key, "kind": kind}
	}

	switch v := value.(type) {
	case string, float64, bool:
		content := fmt.Sprintf("%s - %s: %v", titleize(section), titleize(key), v)
		return []Document{{Content: content, Metadata: meta("info")}}

	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, fmt.Sprint(item))
		}
		joined := strings.Join(items, ", ")

		// Insurance and payment lists read better as full sentences.
		var content string
		switch key {
		case "accepted_insurance":
			content = "Accepted Insurance: We accept " + joined
		case "payment_methods":
			content = "Payment Methods: We accept " + joined
		default:
			content = titleize(key) + ": " + joined
		}
		return []Document{{Content: content, Metadata: meta("list")}}

	case map[string]any:
		var docs []Document
		for _, subKey := range sortedKeys(v) {
			nested, ok := v[subKey].(map[string]any)
			if !ok {
				continue
			}
			parts := []string{titleize(key) + " - " + titleize(subKey)}
			for _, k := range sortedKeys(nested) {
				parts = append(parts, fmt.Sprintf("%s: %v", titleize(k), nested[k]))
			}
			docs = append(docs, Document{
				Content: strings.Join(parts, "\n"),
				Metadata: map[string]string{
					"section":    section,
					"subsection": key,
					"item":       subKey,
					"kind":       "nested_info",
				},
			})
		}
		return docs
	}

	return nil
}

func flattenListItem(section string, item any) Document {
	obj, ok := item.(map[string]any)
	if ok {
		question, qok := obj["question"].(string)
		answer, aok := obj["answer"].(string)
		if qok && aok {
			return Document{
				Content:  "Q: " + question + "\nA: " + answer,
				Metadata: map[string]string{"section": section, "kind": "faq"},
			}
		}
		encoded, _ := json.MarshalIndent(obj, "", "  ")
		return Document{
			Content:  string(encoded),
			Metadata: map[string]string{"section": section, "kind": "structured_data"},
		}
	}

	return Document{
		Content:  fmt.Sprint(item),
		Metadata: map[string]string{"section": section, "kind": "info"},
	}
}

func titleize(snake string) string {
	words := strings.Split(strings.ReplaceAll(snake, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
