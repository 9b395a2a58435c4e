/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"encoding/json"
	"fmt"
)

// IDField is the JSON property every stored document is identified by.
const IDField = "id"

// Identifiable is implemented by documents that expose their id directly.
type Identifiable interface {
	DocumentID() string
}

// DocumentID returns the id of doc. Documents implementing Identifiable are
// asked directly; anything else is encoded to JSON and its "id" property read.
func DocumentID(doc any) (string, error) {
	if d, ok := doc.(Identifiable); ok {
		return d.DocumentID(), nil
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", fmt.Errorf("document is not a JSON object: %w", err)
	}
	idRaw, ok := fields[IDField]
	if !ok {
		return "", nil
	}
	var id string
	if err := json.Unmarshal(idRaw, &id); err != nil {
		return "", fmt.Errorf("document id is not a string: %w", err)
	}
	return id, nil
}
