package glossary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupExact(t *testing.T) {
	d := NewBuiltin()

	for i := 0; i < 3; i++ {
		got, ok := d.Lookup("技術力", "ja", "en")
		require.True(t, ok)
		assert.Equal(t, "Technical Skills", got)
	}

	got, ok := d.Lookup("技術力", "JA", "EN")
	require.True(t, ok)
	assert.Equal(t, "Technical Skills", got)
}

func TestLookupMiss(t *testing.T) {
	d := NewBuiltin()

	_, ok := d.Lookup("xyzzy123", "ja", "en")
	assert.False(t, ok)

	_, ok = d.Lookup("技術力", "ja", "fr")
	assert.False(t, ok)

	_, ok = d.Lookup("", "ja", "en")
	assert.False(t, ok)
}

func TestLookupSubstringReplacesFirstOnly(t *testing.T) {
	d := New()
	d.Add("ja", "en", map[string]string{"安全": "Safety"})

	got, ok := d.Lookup("安全第一と安全確認", "ja", "en")
	require.True(t, ok)
	assert.Equal(t, "Safety第一と安全確認", got)
}

func TestLookupPrefersLongestTerm(t *testing.T) {
	d := New()
	d.Add("ja", "en", map[string]string{
		"目標":   "Goal",
		"目標設定": "Goal Setting",
	})

	got, ok := d.Lookup("来期の目標設定について", "ja", "en")
	require.True(t, ok)
	assert.Equal(t, "来期のGoal Settingについて", got)
}

func TestAddOverridesAndCounts(t *testing.T) {
	d := New()
	d.Add("en", "ja", map[string]string{"Goal": "目標", "": "ignored"})
	d.Add("en", "ja", map[string]string{"Goal": "ゴール"})
	d.Add("en", "vi", map[string]string{"Goal": "Mục tiêu"})

	got, ok := d.Lookup("Goal", "en", "ja")
	require.True(t, ok)
	assert.Equal(t, "ゴール", got)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []string{"Goal"}, d.Terms("en"))
	assert.Equal(t, []string{"en->ja", "en->vi"}, d.Pairs())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.toml")
	content := `
[[tables]]
source_lang = "ja"
target_lang = "en"
[tables.terms]
"納期遵守" = "On-time Delivery"

[[tables]]
source_lang = "en"
target_lang = "vi"
[tables.terms]
"On-time Delivery" = "Giao hàng đúng hạn"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	d := NewBuiltin()
	require.NoError(t, d.LoadFile(path))

	got, ok := d.Lookup("納期遵守", "ja", "en")
	require.True(t, ok)
	assert.Equal(t, "On-time Delivery", got)

	got, ok = d.Lookup("On-time Delivery", "en", "vi")
	require.True(t, ok)
	assert.Equal(t, "Giao hàng đúng hạn", got)

	got, ok = d.Lookup("技術力", "ja", "en")
	require.True(t, ok)
	assert.Equal(t, "Technical Skills", got)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[tables]]\nsource_lang = \"ja\"\n"), 0644))
	_, err = LoadFile(path)
	assert.ErrorContains(t, err, "missing source_lang or target_lang")
}
