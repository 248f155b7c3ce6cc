package ingest

import (
	"encoding/json"
	"strings"

	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

// ParseLeadFile validates a dropped lead file. Field names are matched
// case-insensitively since upstream exporters disagree on casing. The
// whole original document rides along in Payload untouched.
func ParseLeadFile(raw []byte) (*models.Lead, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, domain.NewValidationError("lead file is not a JSON object")
	}

	fields := make(map[string]json.RawMessage, len(doc))
	for k, v := range doc {
		fields[strings.ToLower(k)] = v
	}

	name, ok := stringField(fields, "name")
	if !ok {
		return nil, domain.NewValidationError("missing or empty field: name")
	}
	contact, ok := stringField(fields, "contact")
	if !ok {
		return nil, domain.NewValidationError("missing or empty field: contact")
	}
	problem, ok := stringField(fields, "problem")
	if !ok {
		return nil, domain.NewValidationError("missing or empty field: problem")
	}

	recovery, ok := boolField(fields, "rec")
	if !ok {
		recovery, ok = boolField(fields, "recovery")
	}
	if !ok {
		return nil, domain.NewValidationError("missing boolean field: rec")
	}

	return &models.Lead{
		Name:     name,
		Contact:  contact,
		Problem:  problem,
		Recovery: recovery,
		Status:   models.StatusAvailable,
		Payload:  json.RawMessage(raw),
	}, nil
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	v, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func boolField(fields map[string]json.RawMessage, key string) (bool, bool) {
	v, ok := fields[key]
	if !ok {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(v, &b); err != nil {
		return false, false
	}
	return b, true
}
