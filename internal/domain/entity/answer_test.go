package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerMap_HasValue(t *testing.T) {
	answers := AnswerMap{
		"text":   "4",
		"blank":  "   ",
		"null":   nil,
		"number": 3.0,
		"list":   []interface{}{"a"},
	}

	assert.True(t, answers.HasValue("text"))
	assert.False(t, answers.HasValue("blank"))
	assert.False(t, answers.HasValue("null"))
	assert.False(t, answers.HasValue("missing"))
	assert.True(t, answers.HasValue("number"), "Нестроковые значения считаются ответом")
	assert.True(t, answers.HasValue("list"))
}

func TestAnswerMap_ScanValue(t *testing.T) {
	answers := AnswerMap{"q1": "4", "q2": "red"}

	raw, err := answers.Value()
	require.NoError(t, err)

	var scanned AnswerMap
	require.NoError(t, scanned.Scan(raw))
	assert.Equal(t, answers, scanned)

	var empty AnswerMap
	require.NoError(t, empty.Scan(nil))
	assert.NotNil(t, empty)

	raw, err = AnswerMap{}.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), raw)

	assert.Error(t, empty.Scan(1))
}

func TestStringMap_ScanValue(t *testing.T) {
	var key StringMap
	raw, err := key.Value()
	require.NoError(t, err)
	assert.Nil(t, raw, "Отсутствующий снимок хранится как NULL")

	key = StringMap{"q1": "4"}
	raw, err = key.Value()
	require.NoError(t, err)

	var scanned StringMap
	require.NoError(t, scanned.Scan(raw))
	assert.Equal(t, key, scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)
}

func TestIdentity_Keys(t *testing.T) {
	registered := Registered(42, "alice")
	assert.True(t, registered.IsRegistered())
	assert.Equal(t, "user:42", registered.Key())
	assert.Equal(t, "alice", registered.DisplayName)

	assert.Equal(t, "user #5", Registered(5, " ").DisplayName)

	freeform := Freeform("Al")
	assert.False(t, freeform.IsRegistered())
	assert.Equal(t, "name:Al", freeform.Key())
	assert.NotEqual(t, freeform.Key(), Freeform("al").Key(), "Имена сравниваются точно")

	assert.Equal(t, AnonymousName, Freeform("").DisplayName)

	// Пространства ключей не пересекаются
	assert.NotEqual(t, Freeform("user:42").Key(), registered.Key())
}

func TestIdentity_ApplyAndRestore(t *testing.T) {
	var answer Answer

	Registered(3, "bob").Apply(&answer)
	require.NotNil(t, answer.UserID)
	assert.Equal(t, uint(3), *answer.UserID)
	assert.Equal(t, "bob", answer.RespondentName)
	assert.Equal(t, "user:3", answer.RespondentKey)
	assert.Equal(t, answer.RespondentKey, answer.Identity().Key())

	Freeform("Cy").Apply(&answer)
	assert.Nil(t, answer.UserID)
	assert.Equal(t, "name:Cy", answer.RespondentKey)
	assert.Equal(t, answer.RespondentKey, answer.Identity().Key())
}

func TestAnswer_IsScored(t *testing.T) {
	score := 0
	assert.False(t, (&Answer{}).IsScored())
	assert.True(t, (&Answer{Score: &score}).IsScored())
}
