package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cell struct {
	Zone string `json:"zone" validate:"court_zone"`
	Type string `json:"type" validate:"omitempty,shot_type"`
}

func TestCourtValidations(t *testing.T) {
	tests := []struct {
		name    string
		in      cell
		wantErr bool
	}{
		{name: "known zone", in: cell{Zone: "mid_right"}},
		{name: "known zone and type", in: cell{Zone: "far_left", Type: "smash"}},
		{name: "unknown zone", in: cell{Zone: "backcourt"}, wantErr: true},
		{name: "unknown type", in: cell{Zone: "near_center", Type: "tumble"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := GetValidator().Struct(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidationErrorsUseJSONNames(t *testing.T) {
	err := GetValidator().Struct(cell{Zone: "nowhere"})
	require.Error(t, err)

	var errs validator.ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "zone", errs[0].Field())
}

func TestRegisterCourtValidations(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterCourtValidations(v))
	assert.Error(t, v.Struct(cell{Zone: "nowhere"}))
}
