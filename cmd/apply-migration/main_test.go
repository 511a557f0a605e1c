package main

import (
	"testing"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	got := splitStatements(`
-- header
CREATE TABLE a (id INT);

-- only a comment;
CREATE INDEX i ON a (id);
`)
	require.Len(t, got, 2)
	assert.Equal(t, "CREATE TABLE a (id INT)", got[0])
	assert.Equal(t, "CREATE INDEX i ON a (id)", got[1])
}

func TestSplitStatements_EmbeddedSchema(t *testing.T) {
	stmts := splitStatements(repository.Schema)
	assert.NotEmpty(t, stmts)
	for _, s := range stmts {
		assert.NotContains(t, s, "\n--")
	}
}
