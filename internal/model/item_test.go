package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeTags_SortsLowercasesDedups(t *testing.T) {
	// Given: mixed-case tags with a duplicate
	tags := []string{"Python", "asyncio", "Python"}

	// When: canonicalizing
	got, err := CanonicalizeTags(tags)

	// Then: stored form is sorted, lowercase, deduplicated, delimited both ends
	require.NoError(t, err)
	assert.Equal(t, ",asyncio,python,", got)
}

func TestCanonicalizeTags_Empty(t *testing.T) {
	got, err := CanonicalizeTags(nil)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestCanonicalizeTags_RejectsCommaToken(t *testing.T) {
	_, err := CanonicalizeTags([]string{"a,b"})
	require.Error(t, err)
	var badTok *BadTagTokenError
	assert.ErrorAs(t, err, &badTok)
}

func TestCanonicalizeTags_Idempotent(t *testing.T) {
	// Given: an already-canonical string decoded back to tokens
	once, err := CanonicalizeTags([]string{"b", "a", "c"})
	require.NoError(t, err)

	// When: re-canonicalizing its decoded tokens
	twice, err := CanonicalizeTags(DecodeTags(once))
	require.NoError(t, err)

	// Then: the result is unchanged
	assert.Equal(t, once, twice)
}

func TestContainsToken_ExactSubstringMatch(t *testing.T) {
	canonical := ",asyncio,python,"

	assert.True(t, ContainsToken(canonical, "python"))
	assert.False(t, ContainsToken(canonical, "pyth"))
	assert.False(t, ContainsToken(canonical, "thon"))
}

func TestMergeTags_UnionsPrimaryAndPrefix(t *testing.T) {
	got, err := MergeTags([]string{"python"}, []string{"work", "python"})
	require.NoError(t, err)
	assert.Equal(t, ",python,work,", got)
}

func TestResolvedSystemTag_PrecedenceOrder(t *testing.T) {
	it := &Item{Tags: ",_shell_,_snip_,"}
	assert.Equal(t, SystemTagSnippet, it.ResolvedSystemTag())
}

func TestResolvedSystemTag_DefaultWhenNoneMatch(t *testing.T) {
	it := &Item{Tags: ",python,work,"}
	assert.Equal(t, SystemTag(""), it.ResolvedSystemTag())
}

func TestNonSystemTags_FiltersReservedTokens(t *testing.T) {
	it := &Item{Tags: ",_shell_,deploy,ops,"}
	assert.Equal(t, []string{"deploy", "ops"}, it.NonSystemTags())
}

func TestEmbeddingInput_FixedFieldOrder(t *testing.T) {
	it := &Item{Metadata: "m", Description: "d", URL: "u", Tags: ",t,"}
	assert.Equal(t, "m\x1fd\x1fu\x1f,t,", it.EmbeddingInput())
}
