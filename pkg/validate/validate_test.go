package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/pkg/validate"
)

type registerInput struct {
	Name     string `json:"name"     validate:"required,min=3,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func TestValidInput(t *testing.T) {
	errs := validate.Struct(registerInput{Name: "Asha", Email: "asha@example.com", Password: "secret1"})
	assert.False(t, validate.HasErrors(errs), "%v", errs)
}

func TestRequiredReportsEveryField(t *testing.T) {
	errs := validate.Struct(registerInput{})

	assert.Equal(t, []string{"email", "name", "password"}, errs.Fields())
}

func TestAllViolationsOnAFieldAreReported(t *testing.T) {
	type in struct {
		Code string `json:"code" validate:"required,min=5,alpha_dash"`
	}
	errs := validate.Struct(in{Code: "a b"})

	assert.Len(t, errs["code"], 2)
}

func TestInRuleWithCommaSeparatedValues(t *testing.T) {
	type in struct {
		Status string `json:"status" validate:"required,in=active,inactive,out_of_stock,max=20"`
	}
	assert.Empty(t, validate.Struct(in{Status: "out_of_stock"}))
	assert.Contains(t, validate.Struct(in{Status: "archived"}), "status")
}

func TestNullableSkipsEmpty(t *testing.T) {
	type in struct {
		Brand *string `json:"brand" validate:"nullable,in=Apple,Dell"`
	}
	assert.Empty(t, validate.Struct(in{}))

	bad := "Nokia"
	assert.Contains(t, validate.Struct(in{Brand: &bad}), "brand")
}

func TestRequiredPointer(t *testing.T) {
	type in struct {
		Quantity *int `json:"quantity" validate:"required,gte=1"`
	}
	assert.Contains(t, validate.Struct(in{}), "quantity")

	zero := 0
	assert.Contains(t, validate.Struct(in{Quantity: &zero}), "quantity")

	two := 2
	assert.Empty(t, validate.Struct(in{Quantity: &two}))
}

func TestObjectIDRule(t *testing.T) {
	type in struct {
		ProductID string `json:"product_id" validate:"required,objectid"`
	}
	assert.Contains(t, validate.Struct(in{ProductID: "123"}), "product_id")
	assert.Empty(t, validate.Struct(in{ProductID: "65f1c0a2b3c4d5e6f7a8b9c0"}))

	assert.True(t, validate.ObjectID("65F1C0A2B3C4D5E6F7A8B9C0"))
	assert.False(t, validate.ObjectID("zzf1c0a2b3c4d5e6f7a8b9c0"))
}

func TestMoneyIsNumeric(t *testing.T) {
	type in struct {
		Price models.Money `json:"price" validate:"required,min=1,max=1000000"`
	}
	assert.Contains(t, validate.Struct(in{Price: models.MoneyFromFloat(0.5)}), "price")
	assert.Contains(t, validate.Struct(in{}), "price")
	assert.Empty(t, validate.Struct(in{Price: models.MoneyFromInt(499)}))
}

func TestDiveIntoNestedStruct(t *testing.T) {
	type in struct {
		Name    string          `json:"name"    validate:"required"`
		Address *models.Address `json:"address" validate:"nullable,dive"`
	}
	errs := validate.Struct(in{Name: "Ravi", Address: &models.Address{Name: "Ravi", City: "Pu"}})

	assert.Contains(t, errs, "address.city")
	assert.Contains(t, errs, "address.street")
	assert.NotContains(t, errs, "address.name")

	assert.Empty(t, validate.Struct(in{Name: "Ravi"}))
}

func TestDiveIntoSlice(t *testing.T) {
	type item struct {
		Name string `json:"name" validate:"required"`
	}
	type in struct {
		Items []item `json:"items" validate:"required,dive"`
	}
	errs := validate.Struct(in{Items: []item{{Name: "ok"}, {}}})

	assert.Equal(t, []string{"items.1.name"}, errs.Fields())
}

func TestMinMaxCountSliceItems(t *testing.T) {
	type in struct {
		Tags []string `json:"tags" validate:"min=1,max=2"`
	}

	assert.Contains(t, validate.Struct(in{}), "tags")
	assert.Empty(t, validate.Struct(in{Tags: []string{"a", "b"}}))
	assert.Equal(t, []string{"The tags must not have more than 2 items."},
		validate.Struct(in{Tags: []string{"a", "b", "c"}})["tags"])
}
