// Package metadata fetches and caches the self-reported /metadata documents
// of assistant agents. Agents are third-party services; their metadata is
// untrusted input and is validated permissively (any JSON object qualifies).
package metadata

import (
	"encoding/json"
)

// SupportedModel is one entry of an agent's supported model list.
type SupportedModel struct {
	ModelID           string   `json:"model_id"`
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	AcceptedFileTypes []string `json:"accepted_file_types,omitempty"`
}

// ProvidedDataType declares a data feed the agent can serve via /data.
type ProvidedDataType struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// AgentMetadata is the typed view over an agent's metadata document. All
// fields are optional; Raw always holds the full document.
type AgentMetadata struct {
	Name              string             `json:"name,omitempty"`
	Description       string             `json:"description,omitempty"`
	Version           string             `json:"version,omitempty"`
	Developer         string             `json:"developer,omitempty"`
	Capabilities      []string           `json:"capabilities,omitempty"`
	SupportedModels   []SupportedModel   `json:"supported_models,omitempty"`
	SamplePrompts     []string           `json:"sample_prompts,omitempty"`
	ProvidedDataTypes []ProvidedDataType `json:"provided_data_types,omitempty"`
	Contact           string             `json:"contact,omitempty"`
	Status            string             `json:"status,omitempty"`
	Icon              string             `json:"icon,omitempty"`

	Raw map[string]interface{} `json:"-"`
}

// Parse validates that body is a JSON object and decodes the conventional
// fields. Fields of unexpected shape are dropped rather than failing the
// whole document, since third-party agents vary in what they report.
func Parse(body []byte) (*AgentMetadata, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	meta := &AgentMetadata{Raw: raw}

	// Best-effort typed decode; a type mismatch on one field must not
	// discard the document.
	var typed AgentMetadata
	if err := json.Unmarshal(body, &typed); err == nil {
		typed.Raw = raw
		return &typed, nil
	}

	if name, ok := raw["name"].(string); ok {
		meta.Name = name
	}
	if desc, ok := raw["description"].(string); ok {
		meta.Description = desc
	}
	if status, ok := raw["status"].(string); ok {
		meta.Status = status
	}
	return meta, nil
}

// DisplayName returns the agent's reported name, falling back to the given
// alias when the agent omits it.
func (m *AgentMetadata) DisplayName(alias string) string {
	if m == nil || m.Name == "" {
		return alias
	}
	return m.Name
}
