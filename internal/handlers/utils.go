package handlers

import (
	"encoding/json"

	"chatserver/internal/errors"
)

// decodeBody unmarshals a JSON request body, treating an empty body
// as a zero-valued v rather than an error. Several endpoints accept an
// entirely optional body.
func decodeBody(body []byte, v interface{}) error {
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.New(errors.BadRequest)
	}
	return nil
}

func encodeJSON(v interface{}) []byte {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return []byte(`{}`)
	}
	return data
}