// Package template implements the Template Registry (SPEC_FULL §4.A): the
// fixed set of Flow and Task templates the orchestrator knows how to run,
// ported from orch.flows/orch.tasks and their respective FlowTemplate/
// TaskTemplate base classes.
package template

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/jordigilh/orch/internal/model"
	"github.com/jordigilh/orch/internal/orcherr"
)

var validate = validator.New()

// DecodeArgs strictly decodes args into dst: unknown fields are rejected the
// same way pydantic's `Config.extra = "forbid"` rejects them on the
// original FlowTemplate/TaskTemplate base classes. This is the one place in
// the orchestrator that reaches for encoding/json directly: no library in
// the corpus offers a "reject unknown JSON keys" strict-decode mode, so
// DisallowUnknownFields is layered under validator struct tags for the
// actual field constraints.
func DecodeArgs(args model.JSONMap, dst any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return orcherr.Wrap(err, orcherr.ErrorTypeValidation, "marshal task args")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return orcherr.Wrapf(err, orcherr.ErrorTypeValidation, "decode arguments into %T", dst)
	}

	if err := validate.Struct(dst); err != nil {
		return orcherr.Wrapf(err, orcherr.ErrorTypeValidation, "validate arguments for %T", dst)
	}

	return nil
}

// ToJSONMap converts any JSON-marshalable value into the map[string]any
// representation used to persist task args/output as jsonb.
func ToJSONMap(v any) (model.JSONMap, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}

	m := model.JSONMap{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal %T into map: %w", v, err)
	}

	return m, nil
}
