package sqlsafe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tokens, err := Tokenize(`SELECT "My Col", 'it''s' /* c */ FROM t -- tail
WHERE x >= 1.5e3`)
	require.NoError(t, err)

	want := []Token{
		{Kind: TokenWord, Text: "SELECT"},
		{Kind: TokenQuotedIdent, Text: "My Col"},
		{Kind: TokenSymbol, Text: ","},
		{Kind: TokenString, Text: "it's"},
		{Kind: TokenWord, Text: "FROM"},
		{Kind: TokenWord, Text: "t"},
		{Kind: TokenWord, Text: "WHERE"},
		{Kind: TokenWord, Text: "x"},
		{Kind: TokenSymbol, Text: ">"},
		{Kind: TokenSymbol, Text: "="},
		{Kind: TokenNumber, Text: "1.5e3"},
	}
	assert.Equal(t, want, tokens)
}

func TestTokenize_Unterminated(t *testing.T) {
	for _, sql := range []string{"SELECT 'abc", `SELECT "abc`, "SELECT /* abc"} {
		_, err := Tokenize(sql)
		assert.Error(t, err, sql)
	}
}

func TestFirstKeyword(t *testing.T) {
	tests := map[string]string{
		"select 1":                   "SELECT",
		"  -- note\n  WITH x AS (1)": "WITH",
		"/* hi */ insert into t":     "INSERT",
		"((SELECT 1))":               "SELECT",
		"":                           "",
		"'lit'":                      "",
	}
	for sql, want := range tests {
		got, err := FirstKeyword(sql)
		require.NoError(t, err, sql)
		assert.Equal(t, want, got, sql)
	}
}

func TestStatementCount(t *testing.T) {
	tests := map[string]int{
		"SELECT 1":                    1,
		"SELECT 1;":                   1,
		"SELECT 1; SELECT 2":          2,
		"SELECT ';' FROM t":           1,
		"SELECT 1 -- ; DROP TABLE x":  1,
		"SELECT 1 /* ; */":            1,
		";;":                          0,
		"SELECT 1; DELETE FROM t; --": 2,
	}
	for sql, want := range tests {
		got, err := StatementCount(sql)
		require.NoError(t, err, sql)
		assert.Equal(t, want, got, sql)
	}
}

// FuzzTokenize checks the lexer never panics.
func FuzzTokenize(f *testing.F) {
	f.Add("SELECT * FROM t WHERE a = 'b'")
	f.Add("'")
	f.Add("/*")
	f.Add("--")
	f.Add(`"a""b"`)
	f.Add(".5e")

	f.Fuzz(func(_ *testing.T, sql string) {
		_, _ = Tokenize(sql)
		_, _ = StatementCount(sql)
		_, _ = FirstKeyword(sql)
	})
}
