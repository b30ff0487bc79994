package validator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidMonth(t *testing.T) {
	valid := []string{"2024-06", "2000-12"}
	invalid := []string{"2024-13", "2024/06", "2024-06-01", ""}
	for _, m := range valid {
		if _, ok := IsValidMonth(m); !ok {
			t.Errorf("IsValidMonth(%q) = false, want true", m)
		}
	}
	for _, m := range invalid {
		if _, ok := IsValidMonth(m); ok {
			t.Errorf("IsValidMonth(%q) = true, want false", m)
		}
	}
}

type structItem struct {
	EmployeeID string          `json:"employee_id" validate:"required,uuid"`
	Amount     decimal.Decimal `json:"amount" validate:"gte=0"`
}

type structRequest struct {
	Items []structItem `json:"items" validate:"required,min=1,dive"`
}

func TestStruct(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		req := structRequest{Items: []structItem{
			{EmployeeID: "0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b", Amount: decimal.NewFromInt(10)},
		}}
		assert.NoError(t, Struct(req))
	})

	t.Run("reports json paths", func(t *testing.T) {
		req := structRequest{Items: []structItem{
			{EmployeeID: "0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b", Amount: decimal.NewFromInt(-1)},
			{EmployeeID: "", Amount: decimal.Zero},
		}}

		err := Struct(req)
		require.Error(t, err)

		var errs ValidationErrors
		require.ErrorAs(t, err, &errs)
		m := errs.ToMap()
		assert.Equal(t, "must be greater than or equal to 0", m["items[0].amount"])
		assert.Equal(t, "is required", m["items[1].employee_id"])
	})

	t.Run("empty list", func(t *testing.T) {
		err := Struct(structRequest{})
		var errs ValidationErrors
		require.ErrorAs(t, err, &errs)
		assert.Contains(t, errs.ToMap(), "items")
	})
}
