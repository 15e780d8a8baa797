package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type auditBody struct {
	IdeaID int64 `json:"idea_id" validate:"required,gt=0"`
}

type feed struct {
	Name string `yaml:"name" validate:"required"`
	URL  string `yaml:"url" validate:"required,url"`
}

type settings struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Feeds []feed `yaml:"feeds" validate:"dive"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	v := New()
	require.NoError(t, v.Validate(auditBody{IdeaID: 3}))

	err := v.Validate(auditBody{})
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "idea_id")
	assert.Contains(t, err.Error(), "idea_id is required")
}

func TestValidateNestedYAMLNames(t *testing.T) {
	v := New()
	err := v.Validate(settings{Level: "loud", Feeds: []feed{{Name: "x", URL: "not a url"}}})
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "level")
	assert.Contains(t, verr.Fields, "feeds[0].url")
}
