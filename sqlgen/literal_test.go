package sqlgen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "NULL", FormatValue(nil))
	assert.Equal(t, "42", FormatValue(42))
	assert.Equal(t, "1500.5", FormatValue(1500.5))
	assert.Equal(t, "1", FormatValue(true))
	assert.Equal(t, "0", FormatValue(false))
	assert.Equal(t, "'2024-01-15'", FormatValue(time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC)))
	assert.Equal(t, "'it''s'", FormatValue("it's"))
}

func TestInlineSkipsQuotedText(t *testing.T) {
	got := Inline(`SELECT '?' AS q, [a?] FROM "t?" WHERE x = ? AND y = ?`, []any{1, "b"})
	assert.Equal(t, `SELECT '?' AS q, [a?] FROM "t?" WHERE x = 1 AND y = 'b'`, got)
}
