package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/wms-platform/reallocation-service/pkg/cloudevents"
)

// schemaBaseURL matches the $id prefix of the bundled schemas so relative $refs resolve offline
const schemaBaseURL = "https://wms-platform/schemas/"

// EventValidator validates CloudEvent data against per-type JSON Schemas
type EventValidator struct {
	schemas map[string]*jsonschema.Schema
}

// NewEventValidator compiles every *.json schema in fsys. Schemas with a title are event
// schemas keyed by that title; the rest are only available as $ref targets.
func NewEventValidator(fsys fs.FS) (*EventValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat()

	eventTypes := make(map[string]string)
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(name, ".json") {
			return nil
		}

		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("failed to read schema %s: %w", name, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("failed to parse schema %s: %w", name, err)
		}

		url := schemaBaseURL + path.Base(name)
		if err := compiler.AddResource(url, doc); err != nil {
			return fmt.Errorf("failed to add schema %s: %w", name, err)
		}
		if obj, ok := doc.(map[string]any); ok {
			if title, ok := obj["title"].(string); ok && title != "" {
				eventTypes[title] = url
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	schemas := make(map[string]*jsonschema.Schema, len(eventTypes))
	for eventType, url := range eventTypes {
		compiled, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema for %s: %w", eventType, err)
		}
		schemas[eventType] = compiled
	}

	return &EventValidator{schemas: schemas}, nil
}

// ValidateEvent validates the data of a CloudEvent against the schema of its type
func (v *EventValidator) ValidateEvent(event *cloudevents.WMSCloudEvent) error {
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if event.Data == nil {
		return fmt.Errorf("event %s has no data", event.Type)
	}

	raw, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	return v.validate(event.Type, raw)
}

// ValidateEventJSON validates a serialized CloudEvent, as stored in the outbox
func (v *EventValidator) ValidateEventJSON(payload []byte) error {
	var envelope struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("failed to parse CloudEvent: %w", err)
	}
	if envelope.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if len(envelope.Data) == 0 {
		return fmt.Errorf("event %s has no data", envelope.Type)
	}
	return v.validate(envelope.Type, envelope.Data)
}

// EventTypes returns the event types that have a schema, sorted
func (v *EventValidator) EventTypes() []string {
	types := make([]string, 0, len(v.schemas))
	for eventType := range v.schemas {
		types = append(types, eventType)
	}
	sort.Strings(types)
	return types
}

func (v *EventValidator) validate(eventType string, data []byte) error {
	schema, ok := v.schemas[eventType]
	if !ok {
		return fmt.Errorf("no schema for event type %s", eventType)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse event data: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("event data validation failed for %s: %w", eventType, err)
	}
	return nil
}
