package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "hello", SanitizeInput("  hello  "))
	assert.Equal(t, "&lt;script&gt;", SanitizeInput("<script>"))
	assert.Equal(t, "", SanitizeInput("   "))
}

func TestIsE164(t *testing.T) {
	valid := []string{"+14155550100", "+918527419635", "+4915123456789"}
	for _, phone := range valid {
		assert.True(t, IsE164(phone), phone)
	}

	invalid := []string{"", "14155550100", "+1", "+1415555010a", "+1 415 555 0100", "+123456789012345678"}
	for _, phone := range invalid {
		assert.False(t, IsE164(phone), phone)
	}
}
