package r5

import "strings"

// Practitioner represents a FHIR R5 Practitioner resource.
type Practitioner struct {
	ResourceType string       `json:"resourceType"`
	ID           string       `json:"id,omitempty"`
	Meta         *Meta        `json:"meta,omitempty"`
	Identifier   []Identifier `json:"identifier,omitempty"`
	Active       bool         `json:"active,omitempty"`
	Name         []HumanName  `json:"name,omitempty"`
}

// OfficialName returns the official name, falling back to the first one
func (p *Practitioner) OfficialName() *HumanName {
	for i := range p.Name {
		if p.Name[i].Use == "official" {
			return &p.Name[i]
		}
	}
	if len(p.Name) > 0 {
		return &p.Name[0]
	}
	return nil
}

// DisplayName joins prefix, given and family names with single spaces.
// A name with no parts falls back to its text.
func (p *Practitioner) DisplayName() string {
	name := p.OfficialName()
	if name == nil {
		return ""
	}
	var parts []string
	parts = append(parts, name.Prefix...)
	parts = append(parts, name.Given...)
	if name.Family != "" {
		parts = append(parts, name.Family)
	}
	joined := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	if joined == "" {
		return strings.TrimSpace(name.Text)
	}
	return joined
}
