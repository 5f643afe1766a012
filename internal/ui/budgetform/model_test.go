package budgetform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount("1000"))
	assert.NoError(t, ValidateAmount(" 12.50 "))
	assert.Error(t, ValidateAmount(""))
	assert.Error(t, ValidateAmount("abc"))
	assert.Error(t, ValidateAmount("0"))
	assert.Error(t, ValidateAmount("-5"))
}

func TestValidateDays(t *testing.T) {
	assert.NoError(t, ValidateDays("30"))
	assert.NoError(t, ValidateDays("1"))
	assert.Error(t, ValidateDays("0"))
	assert.Error(t, ValidateDays("400"))
	assert.Error(t, ValidateDays("two"))
}

func TestStartResetsFields(t *testing.T) {
	m := New(14, 80, 24)
	m.fb.amount = "99"

	m.Start("a1")

	assert.Equal(t, "a1", m.accountID)
	assert.Equal(t, "", m.fb.amount)
	assert.Equal(t, "14", m.fb.days)
	assert.NotEmpty(t, m.View())
}

func TestHandleSubmit(t *testing.T) {
	m := New(30, 80, 24)
	m.Start("a1")
	m.fb.amount = "250.75"

	msg := m.handleSubmit()()
	got, ok := msg.(BudgetSubmittedMsg)
	if assert.True(t, ok) {
		assert.Equal(t, "a1", got.AccountID)
		assert.Equal(t, "250.75", got.Amount.String())
		assert.Equal(t, 30, got.Days)
	}
}
