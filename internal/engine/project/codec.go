package project

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// snapshotJSON is used for stored payloads; apiJSON matches encoding/json output.
var (
	snapshotJSON = jsoniter.ConfigFastest
	apiJSON      = jsoniter.ConfigCompatibleWithStandardLibrary
)

// Marshal encodes a project for storage.
func Marshal(p Project) ([]byte, error) {
	data, err := snapshotJSON.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal project %s: %w", p.ID, err)
	}
	return data, nil
}

// Unmarshal decodes a stored project payload.
func Unmarshal(data []byte) (Project, error) {
	if !snapshotJSON.Valid(data) {
		return Project{}, fmt.Errorf("unmarshal project: invalid json")
	}
	var p Project
	if err := snapshotJSON.Unmarshal(data, &p); err != nil {
		return Project{}, fmt.Errorf("unmarshal project: %w", err)
	}
	return p, nil
}

// API returns the jsoniter configuration used for HTTP responses.
func API() jsoniter.API {
	return apiJSON
}
