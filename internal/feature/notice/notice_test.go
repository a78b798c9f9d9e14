package notice

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"skilllink-client/internal/apiclient"
	"skilllink-client/pkg/validation"
)

func TestFailure(t *testing.T) {
	apiErr := &apiclient.APIError{Status: http.StatusBadRequest, Message: "Budget must be positive"}
	assert.Equal(t, Notice{Kind: KindError, Message: "Budget must be positive"}, Failure(fmt.Errorf("create: %w", apiErr), "Failed to create job."))
	assert.Equal(t, "Failed to create job.", Failure(errors.New("dial tcp: refused"), "Failed to create job.").Message)

	type form struct {
		Title string `json:"title" validate:"notblank"`
	}
	err := validation.New().Struct(form{Title: "  "})
	assert.Equal(t, "title is required", Text(fmt.Errorf("wrap: %w", err), "x"))
}

func TestSuccess(t *testing.T) {
	n := Success("Proposal submitted.")
	assert.Equal(t, KindSuccess, n.Kind)
	assert.False(t, n.Empty())
	assert.True(t, Notice{}.Empty())
}
