package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		typ  Type
		want bool
	}{
		{TypeOpenAPI, true},
		{TypeAPIIndex, true},
		{TypeDBSchema, true},
		{TypeBPMN, true},
		{TypeSkill, true},
		{Type("unknown"), false},
		{Type(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.IsValid())
		})
	}
}

func TestParseTypeAndMode(t *testing.T) {
	typ, ok := ParseType(" OpenAPI ")
	assert.True(t, ok)
	assert.Equal(t, TypeOpenAPI, typ)

	_, ok = ParseType("yaml")
	assert.False(t, ok)

	mode, ok := ParseMode("Generated")
	assert.True(t, ok)
	assert.Equal(t, ModeGenerated, mode)

	_, ok = ParseMode("derived")
	assert.False(t, ok)
}

func TestChecksum(t *testing.T) {
	sum := Checksum([]byte("hello\n"))
	assert.Equal(t, "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03", sum)
	assert.True(t, IsChecksum(sum))
	assert.False(t, IsChecksum("sha256:"+sum))
	assert.False(t, IsChecksum("ABC"))
}

func TestWriteFileAndChecksumFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "file.txt")

	require.NoError(t, WriteFile(path, []byte("hello\n")))
	sum, err := ChecksumFile(path)
	require.NoError(t, err)
	assert.Equal(t, Checksum([]byte("hello\n")), sum)

	require.NoError(t, WriteFile(path, []byte("replaced")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")

	_, err = ChecksumFile(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, os.IsNotExist(err))
}
